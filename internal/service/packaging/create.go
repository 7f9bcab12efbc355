package packaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
	"github.com/mamadbah2/packtrack/pkg/batch"
)

// Create records a new packaging event: one record write, batched item
// writes, and optionally the precomputed stock deductions. The record write
// is the only fatal step after validation; item and stock phases report
// per-item failures in the result instead of aborting.
func (s *Service) Create(ctx context.Context, req models.CreatePackagingRequest) (*models.CreatePackagingResult, error) {
	started := s.now()
	trace := newTrace(req.UserID)

	result, err := s.create(ctx, trace, req)
	observeOperation(actionCreate, err != nil, s.now().Sub(started).Seconds())
	if err != nil {
		s.logger.Error("packaging create failed", append(trace.Fields(), zap.Error(err))...)
		return nil, err
	}

	s.logger.Info("packaging record created",
		append(trace.Fields(),
			zap.Int("items_created", len(result.Items)),
			zap.Int("item_errors", len(result.ItemErrors)))...)
	return result, nil
}

func (s *Service) create(ctx context.Context, trace *TraceContext, req models.CreatePackagingRequest) (*models.CreatePackagingResult, error) {
	trace.Waybill = req.WaybillNumber
	trace.Date = req.PackagingDate
	barcodes := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		barcodes = append(barcodes, it.ProductBarcode)
	}
	trace.SetBarcodes(barcodes)

	if err := req.Validate(); err != nil {
		return nil, fatal(trace, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	trace.Step(stateCreatingRecord)
	record := models.PackagingRecord{
		PackagingDate: req.PackagingDate,
		WaybillNumber: req.WaybillNumber,
	}
	row, err := s.store.CreateRow(ctx, rowstore.TablePackagingRecords, record.Row())
	if err != nil {
		err = fmt.Errorf("creating packaging record: %w", err)
		s.auditFailure(ctx, trace, models.AuditActionPackagingCreate, "", err, map[string]any{
			"packaging_date": req.PackagingDate,
			"waybill_number": req.WaybillNumber,
		})
		return nil, fatal(trace, err)
	}
	record = models.PackagingRecordFromRow(row)
	trace.RecordID = record.ID

	trace.Step(stateCreatingItems)
	items, itemErrors := s.createItems(ctx, record.ID, req.Items)

	var stock *models.StockOutcome
	if len(req.StockUpdates) > 0 {
		trace.Step(stateUpdatingStock)
		deltas := make(map[string]models.StockDelta, len(req.StockUpdates))
		for _, u := range req.StockUpdates {
			delta := deltas[u.ProductID]
			delta.Quantity += u.DeductAmount
			deltas[u.ProductID] = delta
		}
		stock, err = s.applyStockDeltas(ctx, trace, deltas, -1)
		if err != nil {
			s.auditFailure(ctx, trace, models.AuditActionPackagingCreate, record.ID, err, map[string]any{
				"packaging_date": record.PackagingDate,
				"waybill_number": record.WaybillNumber,
				"items_created":  len(items),
			})
			return nil, fatal(trace, err)
		}
	}

	trace.Step(stateWritingAuditLog)
	details := map[string]any{
		"packaging_date":  record.PackagingDate,
		"waybill_number":  record.WaybillNumber,
		"items_requested": len(req.Items),
		"items_created":   len(items),
	}
	if len(itemErrors) > 0 {
		details["item_errors"] = itemErrors
	}
	if stock != nil {
		details["stock_updated"] = stock.Updated
		if len(stock.Errors) > 0 {
			details["stock_errors"] = stock.Errors
		}
		if len(stock.Mutations) > 0 {
			details["stock_mutations"] = stock.Mutations
		}
	}
	s.recordAudit(ctx, trace, models.AuditActionPackagingCreate, record.ID, models.AuditStatusSuccess, "", details)

	trace.Step(stateDone)
	return &models.CreatePackagingResult{
		Success:    true,
		Record:     record,
		Items:      items,
		ItemErrors: itemErrors,
		Stock:      stock,
	}, nil
}

// createItems writes the item rows through the batch executor and splits the
// outcomes into created items and per-item error messages.
func (s *Service) createItems(ctx context.Context, recordID string, newItems []models.NewPackagingItem) ([]models.PackagingItem, []string) {
	results := batch.Run(ctx, newItems, writeBatchSize, func(ctx context.Context, it models.NewPackagingItem) (models.PackagingItem, error) {
		item := models.PackagingItem{
			PackagingRecordID: recordID,
			ProductBarcode:    it.ProductBarcode,
			ScannedAt:         s.now().UTC(),
		}
		if it.ScannedAt != nil {
			item.ScannedAt = it.ScannedAt.UTC()
		}
		row, err := s.store.CreateRow(ctx, rowstore.TablePackagingItems, item.Row())
		if err != nil {
			return models.PackagingItem{}, err
		}
		return models.PackagingItemFromRow(row), nil
	})

	items := make([]models.PackagingItem, 0, len(newItems))
	var itemErrors []string
	for i, r := range results {
		if !r.Ok() {
			itemErrors = append(itemErrors, fmt.Sprintf("Item create failed for barcode %s: %v", newItems[i].ProductBarcode, r.Err))
			continue
		}
		items = append(items, r.Value)
	}
	return items, itemErrors
}

// auditFailure records a failure entry for a fatal runtime error. Validation
// failures never reach it; they occur before any side effect.
func (s *Service) auditFailure(ctx context.Context, trace *TraceContext, actionType string, resourceID string, err error, details map[string]any) {
	s.recordAudit(ctx, trace, actionType, resourceID, models.AuditStatusFailure, err.Error(), details)
}
