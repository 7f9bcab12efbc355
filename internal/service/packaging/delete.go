package packaging

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
	"github.com/mamadbah2/packtrack/pkg/batch"
)

// Delete reverses a packaging event: it restores the stock its items consumed
// (bundle-expanded, sign +1), deletes the items in batches, then deletes the
// record. A missing record is not fatal; the operation continues so orphaned
// items are still cleaned up and stock is still restored from the item list
// alone. Running Delete twice on the same id therefore completes softly with
// nothing touched.
func (s *Service) Delete(ctx context.Context, recordID string, req models.DeletePackagingRequest) (*models.DeletePackagingResult, error) {
	started := s.now()
	trace := newTrace(req.UserID)
	trace.RecordID = recordID

	result, err := s.delete(ctx, trace, recordID, req)
	observeOperation(actionDelete, err != nil, s.now().Sub(started).Seconds())
	if err != nil {
		s.logger.Error("packaging delete failed", append(trace.Fields(), zap.Error(err))...)
		return nil, err
	}

	s.logger.Info("packaging record deleted",
		append(trace.Fields(),
			zap.Bool("record_found", result.RecordFound),
			zap.Int("items_deleted", result.ItemsDeleted))...)
	return result, nil
}

func (s *Service) delete(ctx context.Context, trace *TraceContext, recordID string, req models.DeletePackagingRequest) (*models.DeletePackagingResult, error) {
	if recordID == "" {
		return nil, fatal(trace, fmt.Errorf("%w: record id is required", ErrInvalidRequest))
	}
	if err := req.Validate(); err != nil {
		return nil, fatal(trace, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	result := &models.DeletePackagingResult{Success: true, RecordID: recordID}

	trace.Step(stateFetchingRecord)
	recordFound := false
	row, err := s.store.GetRow(ctx, rowstore.TablePackagingRecords, recordID)
	switch {
	case err == nil:
		recordFound = true
		record := models.PackagingRecordFromRow(row)
		trace.Waybill = record.WaybillNumber
		trace.Date = record.PackagingDate
	case errors.Is(err, rowstore.ErrNotFound):
		s.logger.Warn("packaging record not found, continuing cleanup", trace.Fields()...)
	default:
		// The fetch soft-fails either way; items can still be cleaned up.
		s.logger.Warn("packaging record fetch failed, continuing cleanup", append(trace.Fields(), zap.Error(err))...)
	}
	result.RecordFound = recordFound

	trace.Step(stateFetchingItems)
	items, err := s.listItemsForRecord(ctx, recordID)
	if err != nil {
		s.auditFailure(ctx, trace, models.AuditActionPackagingDelete, recordID, err, nil)
		return nil, fatal(trace, err)
	}
	barcodes := make([]string, 0, len(items))
	for _, it := range items {
		barcodes = append(barcodes, it.ProductBarcode)
	}
	trace.SetBarcodes(barcodes)

	// Stock restoration must run before item deletion; the items are the only
	// source of the barcodes to restore.
	if req.ShouldRestoreStock() && len(items) > 0 {
		trace.Step(stateRestoringStock)
		deltas, soft, err := s.resolveStockRequirements(ctx, items)
		if err != nil {
			s.auditFailure(ctx, trace, models.AuditActionPackagingDelete, recordID, err, nil)
			return nil, fatal(trace, err)
		}
		result.Errors = append(result.Errors, soft...)

		stock, err := s.applyStockDeltas(ctx, trace, deltas, +1)
		if err != nil {
			s.auditFailure(ctx, trace, models.AuditActionPackagingDelete, recordID, err, nil)
			return nil, fatal(trace, err)
		}
		result.Stock = stock
	}

	trace.Step(stateDeletingItems)
	deleteResults := batch.Run(ctx, items, writeBatchSize, func(ctx context.Context, it models.PackagingItem) (struct{}, error) {
		return struct{}{}, s.store.DeleteRow(ctx, rowstore.TablePackagingItems, it.ID)
	})
	for i, r := range deleteResults {
		if !r.Ok() {
			result.ItemErrors = append(result.ItemErrors, fmt.Sprintf("Item delete failed for barcode %s: %v", items[i].ProductBarcode, r.Err))
			continue
		}
		result.ItemsDeleted++
	}

	trace.Step(stateDeletingRecord)
	if recordFound {
		if err := s.store.DeleteRow(ctx, rowstore.TablePackagingRecords, recordID); err != nil && !errors.Is(err, rowstore.ErrNotFound) {
			s.logger.Warn("record delete failed", append(trace.Fields(), zap.Error(err))...)
			result.Errors = append(result.Errors, fmt.Sprintf("Record delete failed: %v", err))
		}
	}

	trace.Step(stateWritingAuditLog)
	details := map[string]any{
		"record_found":  recordFound,
		"restore_stock": req.ShouldRestoreStock(),
		"items_deleted": result.ItemsDeleted,
	}
	if result.Stock != nil {
		details["stock_updated"] = result.Stock.Updated
		if len(result.Stock.Errors) > 0 {
			details["stock_errors"] = result.Stock.Errors
		}
		if len(result.Stock.Mutations) > 0 {
			details["stock_mutations"] = result.Stock.Mutations
		}
	}
	if len(result.ItemErrors) > 0 {
		details["item_errors"] = result.ItemErrors
	}
	if len(result.Errors) > 0 {
		details["errors"] = result.Errors
	}
	s.recordAudit(ctx, trace, models.AuditActionPackagingDelete, recordID, models.AuditStatusSuccess, "", details)

	trace.Step(stateDone)
	return result, nil
}
