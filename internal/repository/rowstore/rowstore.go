// Package rowstore defines the boundary to the external document store the
// packaging engine reads and writes through. The store offers single-row
// primitives only; there are no multi-document transactions, which is why the
// engine aggregates its deltas before writing.
package rowstore

import (
	"context"
	"errors"
	"fmt"
)

// Logical table names. Each backend maps them to its own collection or table id.
const (
	TableProducts          = "products"
	TableProductComponents = "product_components"
	TablePackagingRecords  = "packaging_records"
	TablePackagingItems    = "packaging_items"
	TableAuditLogs         = "audit_logs"
)

// MaxInValues is the largest value list a backend accepts for an In predicate.
const MaxInValues = 60

// ErrNotFound is returned when a row id does not exist in the table.
var ErrNotFound = errors.New("row not found")

// ErrConflict is returned when a create violates a uniqueness constraint, such
// as the (packaging_date, waybill_number) index on packaging records.
var ErrConflict = errors.New("row conflicts with an existing row")

// Row is one stored document. Every row carries a string "id" field once stored.
type Row map[string]any

// ID returns the row's id field, or the empty string.
func (r Row) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Op enumerates the predicate operators every backend supports.
type Op string

const (
	// OpEq matches rows whose field equals the single value.
	OpEq Op = "eq"
	// OpIn matches rows whose field equals any of a bounded value list.
	OpIn Op = "in"
)

// Predicate narrows a ListRows call to matching rows.
type Predicate struct {
	Field  string
	Op     Op
	Value  any   // used by OpEq
	Values []any // used by OpIn, at most MaxInValues entries
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// In builds a membership predicate over the given values.
func In(field string, values ...any) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: values}
}

// Query describes the predicate set, ordering and paging of a ListRows call.
// A zero Query lists the whole table. Backends break OrderBy ties by id and
// order by id alone when OrderBy is empty, so rows never shift between offset
// pages of one listing.
type Query struct {
	Predicates []Predicate
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// Validate rejects queries no backend can serve, in particular In predicates
// exceeding MaxInValues.
func (q Query) Validate() error {
	for _, p := range q.Predicates {
		switch p.Op {
		case OpEq:
		case OpIn:
			if len(p.Values) == 0 {
				return fmt.Errorf("predicate on %q: empty value list", p.Field)
			}
			if len(p.Values) > MaxInValues {
				return fmt.Errorf("predicate on %q: %d values exceeds the store limit of %d", p.Field, len(p.Values), MaxInValues)
			}
		default:
			return fmt.Errorf("predicate on %q: unsupported operator %q", p.Field, p.Op)
		}
	}
	return nil
}

// ListResult carries one page of rows plus the total match count.
type ListResult struct {
	Rows  []Row
	Total int
}

// Store is the document-store client surface consumed by the engine. Backends
// must treat every call as an independent suspension point; no call depends on
// session state.
type Store interface {
	// CreateRow stores data as a new row and returns it with its id assigned.
	CreateRow(ctx context.Context, table string, data Row) (Row, error)
	// GetRow fetches a row by id, returning ErrNotFound when absent.
	GetRow(ctx context.Context, table, id string) (Row, error)
	// ListRows returns the rows matching q along with the total match count.
	ListRows(ctx context.Context, table string, q Query) (ListResult, error)
	// UpdateRow applies patch to the row and returns the updated row.
	UpdateRow(ctx context.Context, table, id string, patch Row) (Row, error)
	// DeleteRow removes the row by id. Deleting an absent row returns ErrNotFound.
	DeleteRow(ctx context.Context, table, id string) error
}
