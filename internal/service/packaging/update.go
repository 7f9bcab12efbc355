package packaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
	"github.com/mamadbah2/packtrack/pkg/batch"
)

// Update mutates an existing record's waybill number, its item list, or both.
// Item replacement is delete-all then create-all, never a diff, so a partial
// failure can leave the record with fewer items than either list; that is
// reported, not rolled back. Update never touches product stock, even when
// the item list changes. Stock stays correct only when item lists change
// through Create and Delete; this asymmetry is a deliberate capability limit
// of the operation, not an oversight.
func (s *Service) Update(ctx context.Context, recordID string, req models.UpdatePackagingRequest) (*models.UpdatePackagingResult, error) {
	started := s.now()
	trace := newTrace(req.UserID)
	trace.RecordID = recordID

	result, err := s.update(ctx, trace, recordID, req)
	observeOperation(actionUpdate, err != nil, s.now().Sub(started).Seconds())
	if err != nil {
		s.logger.Error("packaging update failed", append(trace.Fields(), zap.Error(err))...)
		return nil, err
	}

	s.logger.Info("packaging record updated",
		append(trace.Fields(),
			zap.Bool("items_replaced", result.ItemsReplaced),
			zap.Int("item_errors", len(result.ItemErrors)))...)
	return result, nil
}

func (s *Service) update(ctx context.Context, trace *TraceContext, recordID string, req models.UpdatePackagingRequest) (*models.UpdatePackagingResult, error) {
	if recordID == "" {
		return nil, fatal(trace, fmt.Errorf("%w: record id is required", ErrInvalidRequest))
	}
	if err := req.Validate(); err != nil {
		return nil, fatal(trace, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	trace.Step(stateFetchingOriginal)
	row, err := s.store.GetRow(ctx, rowstore.TablePackagingRecords, recordID)
	if err != nil {
		err = fmt.Errorf("fetching packaging record %s: %w", recordID, err)
		s.auditFailure(ctx, trace, models.AuditActionPackagingUpdate, recordID, err, nil)
		return nil, fatal(trace, err)
	}
	record := models.PackagingRecordFromRow(row)
	trace.Waybill = record.WaybillNumber
	trace.Date = record.PackagingDate

	result := &models.UpdatePackagingResult{Success: true}
	waybillUpdated := false

	if req.WaybillNumber != nil {
		trace.Step(stateUpdatingWaybill)
		updated, err := s.store.UpdateRow(ctx, rowstore.TablePackagingRecords, recordID, rowstore.Row{
			"waybill_number": *req.WaybillNumber,
		})
		if err != nil {
			// Not in the fatal taxonomy; the item phase still runs.
			s.logger.Warn("waybill update failed", append(trace.Fields(), zap.Error(err))...)
			result.Errors = append(result.Errors, fmt.Sprintf("Waybill update failed: %v", err))
		} else {
			record = models.PackagingRecordFromRow(updated)
			trace.Waybill = record.WaybillNumber
			waybillUpdated = true
		}
	}

	details := map[string]any{
		"waybill_number":  record.WaybillNumber,
		"waybill_updated": waybillUpdated,
		"items_replaced":  false,
	}

	if req.ReplacesItems() {
		newItems := *req.Items
		barcodes := make([]string, 0, len(newItems))
		for _, it := range newItems {
			barcodes = append(barcodes, it.ProductBarcode)
		}
		trace.SetBarcodes(barcodes)

		trace.Step(stateFetchingExistingItems)
		existing, err := s.listItemsForRecord(ctx, recordID)
		if err != nil {
			s.auditFailure(ctx, trace, models.AuditActionPackagingUpdate, recordID, err, details)
			return nil, fatal(trace, err)
		}

		trace.Step(stateDeletingExistingItems)
		deleteResults := batch.Run(ctx, existing, writeBatchSize, func(ctx context.Context, it models.PackagingItem) (struct{}, error) {
			return struct{}{}, s.store.DeleteRow(ctx, rowstore.TablePackagingItems, it.ID)
		})
		for i, r := range deleteResults {
			if !r.Ok() {
				result.ItemErrors = append(result.ItemErrors, fmt.Sprintf("Item delete failed for barcode %s: %v", existing[i].ProductBarcode, r.Err))
			}
		}

		trace.Step(stateCreatingNewItems)
		created, createErrors := s.createItems(ctx, recordID, newItems)
		result.Items = created
		result.ItemErrors = append(result.ItemErrors, createErrors...)
		result.ItemsReplaced = true

		details["items_replaced"] = true
		details["items_removed"] = len(existing)
		details["items_created"] = len(created)
	}

	trace.Step(stateWritingAuditLog)
	if len(result.ItemErrors) > 0 {
		details["item_errors"] = result.ItemErrors
	}
	if len(result.Errors) > 0 {
		details["errors"] = result.Errors
	}
	s.recordAudit(ctx, trace, models.AuditActionPackagingUpdate, recordID, models.AuditStatusSuccess, "", details)

	trace.Step(stateDone)
	result.Record = record
	return result, nil
}
