// Package packaging implements the stock reconciliation engine: the Create,
// Update and Delete lifecycle operations over packaging records, bundle
// expansion into component stock requirements, and batched stock mutation
// with per-item failure isolation. The backing store offers no transactions;
// the engine aggregates deltas before writing and reports granular outcomes
// instead of pretending atomicity.
package packaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

// ErrInvalidRequest indicates the operation payload failed validation.
var ErrInvalidRequest = errors.New("invalid request payload")

const (
	// writeBatchSize bounds concurrent row writes per chunk.
	writeBatchSize = 20
	// idQueryBatchSize bounds id lists per read, matching the store's In limit.
	idQueryBatchSize = rowstore.MaxInValues
	// itemPageSize pages item listings for one record.
	itemPageSize = 200
)

// Lifecycle action labels used for metrics and log fields.
const (
	actionCreate = "create"
	actionUpdate = "update"
	actionDelete = "delete"
)

// AuditRecorder defines the audit functions required by the lifecycle
// operations. Recording is best-effort; implementations never return errors.
type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditLogEntry)
}

// Service implements the packaging lifecycle operations.
type Service struct {
	store   rowstore.Store
	audit   AuditRecorder
	recipes *RecipeCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new packaging service instance.
func NewService(store rowstore.Store, auditRecorder AuditRecorder, recipes *RecipeCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recipes == nil {
		recipes = NewRecipeCache(defaultRecipeCacheSize, defaultRecipeCacheTTL)
	}
	return &Service{
		store:   store,
		audit:   auditRecorder,
		recipes: recipes,
		logger:  logger,
		now:     time.Now,
	}
}

// fetchProductsByBarcodes reads products for the given barcodes in chunks the
// store's In predicate accepts, keyed by barcode. Absent barcodes are simply
// absent from the map; a store failure is returned as is.
func (s *Service) fetchProductsByBarcodes(ctx context.Context, barcodes []string) (map[string]models.Product, error) {
	products := make(map[string]models.Product, len(barcodes))
	err := s.fetchProducts(ctx, "barcode", barcodes, func(p models.Product) {
		products[p.Barcode] = p
	})
	return products, err
}

// fetchProductsByIDs reads products for the given ids in chunks, keyed by id.
func (s *Service) fetchProductsByIDs(ctx context.Context, ids []string) (map[string]models.Product, error) {
	products := make(map[string]models.Product, len(ids))
	err := s.fetchProducts(ctx, "id", ids, func(p models.Product) {
		products[p.ID] = p
	})
	return products, err
}

func (s *Service) fetchProducts(ctx context.Context, field string, values []string, collect func(models.Product)) error {
	for start := 0; start < len(values); start += idQueryBatchSize {
		end := start + idQueryBatchSize
		if end > len(values) {
			end = len(values)
		}
		chunk := make([]any, 0, end-start)
		for _, v := range values[start:end] {
			chunk = append(chunk, v)
		}

		res, err := s.store.ListRows(ctx, rowstore.TableProducts, rowstore.Query{
			Predicates: []rowstore.Predicate{rowstore.In(field, chunk...)},
		})
		if err != nil {
			return fmt.Errorf("fetching products by %s: %w", field, err)
		}
		for _, row := range res.Rows {
			collect(models.ProductFromRow(row))
		}
	}
	return nil
}

// listItemsForRecord returns every item referencing the record. Pages order
// by id, the one key that is unique: batch-scanned items share a scanned_at
// value, and paging over a tied key can skip rows or return them twice.
// Callers that need scan order sort the full list afterwards.
func (s *Service) listItemsForRecord(ctx context.Context, recordID string) ([]models.PackagingItem, error) {
	var items []models.PackagingItem
	for offset := 0; ; offset += itemPageSize {
		res, err := s.store.ListRows(ctx, rowstore.TablePackagingItems, rowstore.Query{
			Predicates: []rowstore.Predicate{rowstore.Eq("packaging_record_id", recordID)},
			OrderBy:    "id",
			Limit:      itemPageSize,
			Offset:     offset,
		})
		if err != nil {
			return nil, fmt.Errorf("listing items for record %s: %w", recordID, err)
		}
		for _, row := range res.Rows {
			items = append(items, models.PackagingItemFromRow(row))
		}
		if len(res.Rows) < itemPageSize {
			return items, nil
		}
	}
}

// recordAudit emits one best-effort audit entry for the operation. The
// recorder swallows its own failures.
func (s *Service) recordAudit(ctx context.Context, trace *TraceContext, action, resourceID, status, errMessage string, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, models.AuditLogEntry{
		UserID:       trace.UserID,
		ActionType:   action,
		ResourceType: models.AuditResourcePackaging,
		ResourceID:   resourceID,
		Details:      details,
		Status:       status,
		ErrorMessage: errMessage,
	})
}

// sortedKeys returns the map's keys in a stable order so batched writes and
// error lists do not depend on map iteration.
func sortedKeys(deltas map[string]models.StockDelta) []string {
	keys := make([]string, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
