// Package memstore implements the row-store boundary on plain in-process maps.
// It backs STORE_BACKEND=memory for local runs and serves as the store double
// in tests. Uniqueness constraints mirror what the managed backends enforce.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

// uniqueIndexes declares the per-table uniqueness constraints the store
// enforces on create and update, matching the managed backends' indexes.
var uniqueIndexes = map[string][][]string{
	rowstore.TablePackagingRecords: {{"packaging_date", "waybill_number"}},
	rowstore.TableProducts:         {{"barcode"}},
}

// Store is an in-memory rowstore.Store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]rowstore.Row
}

// New returns an empty store.
func New() *Store {
	return &Store{tables: make(map[string]map[string]rowstore.Row)}
}

// CreateRow stores data as a new row, assigning an id when none is supplied.
func (s *Store) CreateRow(_ context.Context, table string, data rowstore.Row) (rowstore.Row, error) {
	row := clone(data)
	if row.ID() == "" {
		row["id"] = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[table]
	if rows == nil {
		rows = make(map[string]rowstore.Row)
		s.tables[table] = rows
	}
	if _, exists := rows[row.ID()]; exists {
		return nil, fmt.Errorf("table %s id %s: %w", table, row.ID(), rowstore.ErrConflict)
	}
	if err := s.checkUnique(table, row, row.ID()); err != nil {
		return nil, err
	}

	rows[row.ID()] = row
	return clone(row), nil
}

// GetRow fetches a row by id.
func (s *Store) GetRow(_ context.Context, table, id string) (rowstore.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tables[table][id]
	if !ok {
		return nil, fmt.Errorf("table %s id %s: %w", table, id, rowstore.ErrNotFound)
	}
	return clone(row), nil
}

// ListRows returns the rows matching q. Ties on the order key fall back to
// id, and an empty OrderBy sorts by id alone, so offset pages are disjoint
// and exhaustive no matter how the backing map iterates.
func (s *Store) ListRows(_ context.Context, table string, q rowstore.Query) (rowstore.ListResult, error) {
	if err := q.Validate(); err != nil {
		return rowstore.ListResult{}, err
	}

	s.mu.RLock()
	matched := make([]rowstore.Row, 0)
	for _, row := range s.tables[table] {
		if matches(row, q.Predicates) {
			matched = append(matched, clone(row))
		}
	}
	s.mu.RUnlock()

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	sort.SliceStable(matched, func(i, j int) bool {
		c := compareValues(matched[i][orderBy], matched[j][orderBy])
		if c == 0 {
			c = compareValues(matched[i]["id"], matched[j]["id"])
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	total := len(matched)
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	return rowstore.ListResult{Rows: matched, Total: total}, nil
}

// UpdateRow merges patch into the row and returns the merged result.
func (s *Store) UpdateRow(_ context.Context, table, id string, patch rowstore.Row) (rowstore.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.tables[table][id]
	if !ok {
		return nil, fmt.Errorf("table %s id %s: %w", table, id, rowstore.ErrNotFound)
	}

	merged := clone(row)
	for k, v := range patch {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	if err := s.checkUnique(table, merged, id); err != nil {
		return nil, err
	}

	s.tables[table][id] = merged
	return clone(merged), nil
}

// DeleteRow removes the row by id.
func (s *Store) DeleteRow(_ context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table][id]; !ok {
		return fmt.Errorf("table %s id %s: %w", table, id, rowstore.ErrNotFound)
	}
	delete(s.tables[table], id)
	return nil
}

// checkUnique verifies row violates no unique index of table, ignoring the
// row stored under selfID. Callers must hold the write lock.
func (s *Store) checkUnique(table string, row rowstore.Row, selfID string) error {
	for _, fields := range uniqueIndexes[table] {
		for id, other := range s.tables[table] {
			if id == selfID {
				continue
			}
			same := true
			for _, f := range fields {
				if compareValues(row[f], other[f]) != 0 {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("table %s unique index (%s): %w", table, strings.Join(fields, ","), rowstore.ErrConflict)
			}
		}
	}
	return nil
}

func matches(row rowstore.Row, predicates []rowstore.Predicate) bool {
	for _, p := range predicates {
		switch p.Op {
		case rowstore.OpEq:
			if compareValues(row[p.Field], p.Value) != 0 {
				return false
			}
		case rowstore.OpIn:
			found := false
			for _, v := range p.Values {
				if compareValues(row[p.Field], v) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// compareValues orders two row values. Numbers compare numerically across the
// machine types, times chronologically, everything else as strings. RFC 3339
// timestamp strings therefore sort chronologically as well.
func compareValues(a, b any) int {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func clone(r rowstore.Row) rowstore.Row {
	out := make(rowstore.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
