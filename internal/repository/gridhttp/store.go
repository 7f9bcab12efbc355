// Package gridhttp implements the row-store boundary against a hosted
// row-store HTTP API. Records travel as {id, fields} pairs; logical table
// names map to the workspace's table ids through configuration.
package gridhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/packtrack/internal/config"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

// Store is a resty-backed implementation of rowstore.Store.
type Store struct {
	httpClient *resty.Client
	tables     map[string]string
}

// NewStore builds a grid API client using the provided configuration values.
func NewStore(cfg config.Grid) *Store {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/api", base)).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIToken)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	return &Store{
		httpClient: restyClient,
		tables: map[string]string{
			rowstore.TableProducts:          cfg.TableProducts,
			rowstore.TableProductComponents: cfg.TableProductComponents,
			rowstore.TablePackagingRecords:  cfg.TablePackagingRecords,
			rowstore.TablePackagingItems:    cfg.TablePackagingItems,
			rowstore.TableAuditLogs:         cfg.TableAuditLogs,
		},
	}
}

// record mirrors the API's row envelope.
type record struct {
	ID     string       `json:"id"`
	Fields rowstore.Row `json:"fields"`
}

// listResponse mirrors the API's paged listing payload.
type listResponse struct {
	Records []record `json:"records"`
	Total   int      `json:"total"`
}

// apiError represents the grid API error payload.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// filterClause is one predicate in the API's filter JSON.
type filterClause struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value,omitempty"`
	In    []any  `json:"in,omitempty"`
}

// CreateRow stores data as a new record.
func (s *Store) CreateRow(ctx context.Context, table string, data rowstore.Row) (rowstore.Row, error) {
	tableID, err := s.tableID(table)
	if err != nil {
		return nil, err
	}

	result := new(record)
	apiErr := new(apiError)

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"fields": fieldsOf(data)}).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("/table/%s/record", tableID))
	if err != nil {
		return nil, fmt.Errorf("create row in %s: %w", table, err)
	}
	if err := statusError(resp, apiErr, table, ""); err != nil {
		return nil, err
	}

	return result.row(), nil
}

// GetRow fetches a record by id.
func (s *Store) GetRow(ctx context.Context, table, id string) (rowstore.Row, error) {
	tableID, err := s.tableID(table)
	if err != nil {
		return nil, err
	}

	result := new(record)
	apiErr := new(apiError)

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get(fmt.Sprintf("/table/%s/record/%s", tableID, id))
	if err != nil {
		return nil, fmt.Errorf("get row from %s: %w", table, err)
	}
	if err := statusError(resp, apiErr, table, id); err != nil {
		return nil, err
	}

	return result.row(), nil
}

// ListRows returns the records matching q along with the total match count.
// The hosted API breaks orderBy ties by record id, which is what the
// boundary's paging contract requires of a backend.
func (s *Store) ListRows(ctx context.Context, table string, q rowstore.Query) (rowstore.ListResult, error) {
	if err := q.Validate(); err != nil {
		return rowstore.ListResult{}, err
	}
	tableID, err := s.tableID(table)
	if err != nil {
		return rowstore.ListResult{}, err
	}

	params := map[string]string{}
	if len(q.Predicates) > 0 {
		clauses := make([]filterClause, 0, len(q.Predicates))
		for _, p := range q.Predicates {
			clause := filterClause{Field: p.Field, Op: string(p.Op)}
			if p.Op == rowstore.OpIn {
				clause.In = p.Values
			} else {
				clause.Value = p.Value
			}
			clauses = append(clauses, clause)
		}
		filter, err := json.Marshal(clauses)
		if err != nil {
			return rowstore.ListResult{}, fmt.Errorf("encode filter for %s: %w", table, err)
		}
		params["filter"] = string(filter)
	}
	if q.OrderBy != "" {
		params["orderBy"] = q.OrderBy
		params["order"] = "asc"
		if q.Descending {
			params["order"] = "desc"
		}
	}
	if q.Limit > 0 {
		params["take"] = fmt.Sprintf("%d", q.Limit)
	}
	if q.Offset > 0 {
		params["skip"] = fmt.Sprintf("%d", q.Offset)
	}

	result := new(listResponse)
	apiErr := new(apiError)

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		SetError(apiErr).
		Get(fmt.Sprintf("/table/%s/record", tableID))
	if err != nil {
		return rowstore.ListResult{}, fmt.Errorf("list rows from %s: %w", table, err)
	}
	if err := statusError(resp, apiErr, table, ""); err != nil {
		return rowstore.ListResult{}, err
	}

	rows := make([]rowstore.Row, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, rec.row())
	}
	return rowstore.ListResult{Rows: rows, Total: result.Total}, nil
}

// UpdateRow applies patch to the record and returns the updated record.
func (s *Store) UpdateRow(ctx context.Context, table, id string, patch rowstore.Row) (rowstore.Row, error) {
	tableID, err := s.tableID(table)
	if err != nil {
		return nil, err
	}

	result := new(record)
	apiErr := new(apiError)

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"fields": fieldsOf(patch)}).
		SetResult(result).
		SetError(apiErr).
		Patch(fmt.Sprintf("/table/%s/record/%s", tableID, id))
	if err != nil {
		return nil, fmt.Errorf("update row in %s: %w", table, err)
	}
	if err := statusError(resp, apiErr, table, id); err != nil {
		return nil, err
	}

	return result.row(), nil
}

// DeleteRow removes the record by id.
func (s *Store) DeleteRow(ctx context.Context, table, id string) error {
	tableID, err := s.tableID(table)
	if err != nil {
		return err
	}

	apiErr := new(apiError)

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetError(apiErr).
		Delete(fmt.Sprintf("/table/%s/record/%s", tableID, id))
	if err != nil {
		return fmt.Errorf("delete row from %s: %w", table, err)
	}
	return statusError(resp, apiErr, table, id)
}

func (s *Store) tableID(table string) (string, error) {
	id, ok := s.tables[table]
	if !ok || id == "" {
		return "", fmt.Errorf("no grid table configured for %q", table)
	}
	return id, nil
}

func (r *record) row() rowstore.Row {
	row := make(rowstore.Row, len(r.Fields)+1)
	for k, v := range r.Fields {
		row[k] = v
	}
	row["id"] = r.ID
	return row
}

func fieldsOf(row rowstore.Row) rowstore.Row {
	fields := make(rowstore.Row, len(row))
	for k, v := range row {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	return fields
}

// statusError maps API failure statuses onto the boundary's sentinel errors.
func statusError(resp *resty.Response, apiErr *apiError, table, id string) error {
	code := resp.StatusCode()
	if code < http.StatusBadRequest {
		return nil
	}

	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("table %s id %s: %w", table, id, rowstore.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("table %s: %w", table, rowstore.ErrConflict)
	}

	message := ""
	if apiErr != nil {
		message = apiErr.Message
	}
	return fmt.Errorf("grid api error on %s: status=%d, message=%s", table, code, message)
}
