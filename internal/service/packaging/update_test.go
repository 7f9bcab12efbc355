package packaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/memstore"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

func strPtr(s string) *string { return &s }

func itemsPtr(items []models.NewPackagingItem) *[]models.NewPackagingItem { return &items }

func createRecord(t *testing.T, svc *Service, date, waybill string, barcodes ...string) models.PackagingRecord {
	t.Helper()
	items := make([]models.NewPackagingItem, 0, len(barcodes))
	for _, b := range barcodes {
		items = append(items, models.NewPackagingItem{ProductBarcode: b})
	}
	result, err := svc.Create(context.Background(), models.CreatePackagingRequest{
		PackagingDate: date,
		WaybillNumber: waybill,
		Items:         items,
		UserID:        "u1",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return result.Record
}

func TestUpdate_WaybillOnly(t *testing.T) {
	store := memstore.New()
	svc, recorder := newTestService(store)
	record := createRecord(t, svc, "2024-01-15", "WB-1", "A")

	result, err := svc.Update(context.Background(), record.ID, models.UpdatePackagingRequest{
		WaybillNumber: strPtr("WB-2"),
		UserID:        "u1",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if result.Record.WaybillNumber != "WB-2" {
		t.Errorf("waybill = %q, want WB-2", result.Record.WaybillNumber)
	}
	if result.ItemsReplaced {
		t.Error("ItemsReplaced = true, want false when items are not supplied")
	}
	if got := len(itemsOf(t, store, record.ID)); got != 1 {
		t.Errorf("persisted items = %d, want untouched 1", got)
	}

	last := recorder.entries[len(recorder.entries)-1]
	if last.ActionType != "packaging_record_update" || last.Status != models.AuditStatusSuccess {
		t.Errorf("audit entry = %+v, want successful update entry", last)
	}
}

func TestUpdate_RequiresAtLeastOneMutation(t *testing.T) {
	store := memstore.New()
	svc, _ := newTestService(store)
	record := createRecord(t, svc, "2024-01-15", "WB-1", "A")

	_, err := svc.Update(context.Background(), record.ID, models.UpdatePackagingRequest{UserID: "u1"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestUpdate_EmptyItemListRejected(t *testing.T) {
	store := memstore.New()
	svc, _ := newTestService(store)
	record := createRecord(t, svc, "2024-01-15", "WB-1", "A")

	_, err := svc.Update(context.Background(), record.ID, models.UpdatePackagingRequest{
		Items:  itemsPtr([]models.NewPackagingItem{}),
		UserID: "u1",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest for an empty replacement list", err)
	}
}

func TestUpdate_MissingRecordIsFatal(t *testing.T) {
	store := memstore.New()
	svc, recorder := newTestService(store)

	_, err := svc.Update(context.Background(), "missing", models.UpdatePackagingRequest{
		WaybillNumber: strPtr("WB-2"),
		UserID:        "u1",
	})
	if !errors.Is(err, rowstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatal("error does not carry an OperationError")
	}
	if opErr.Trace.Operation != "fetching original record" {
		t.Errorf("trace operation = %q, want fetching original record", opErr.Trace.Operation)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Status != models.AuditStatusFailure {
		t.Errorf("audit entries = %+v, want one failure entry", recorder.entries)
	}
}

func TestUpdate_ReplacesItemsWholesale(t *testing.T) {
	store := memstore.New()
	svc, _ := newTestService(store)
	record := createRecord(t, svc, "2024-01-15", "WB-1", "A", "B")

	result, err := svc.Update(context.Background(), record.ID, models.UpdatePackagingRequest{
		Items: itemsPtr([]models.NewPackagingItem{
			{ProductBarcode: "C"},
			{ProductBarcode: "D"},
			{ProductBarcode: "E"},
		}),
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !result.ItemsReplaced {
		t.Error("ItemsReplaced = false, want true")
	}
	if len(result.Items) != 3 {
		t.Errorf("new items = %d, want 3", len(result.Items))
	}

	persisted := itemsOf(t, store, record.ID)
	if len(persisted) != 3 {
		t.Fatalf("persisted items = %d, want 3 (old fully removed)", len(persisted))
	}
	for _, row := range persisted {
		b := rowstore.String(row, "product_barcode")
		if b == "A" || b == "B" {
			t.Errorf("old item %s survived the replacement", b)
		}
	}
}

// Replacing the items of a record larger than one listing page must remove
// every old row, tied scanned_at values included.
func TestUpdate_ReplacementCoversEveryItemPage(t *testing.T) {
	store := memstore.New()
	svc, _ := newTestService(store)
	ctx := context.Background()

	scanned := testClock.Add(-30 * time.Minute)
	total := itemPageSize + 30
	old := make([]models.NewPackagingItem, total)
	for i := range old {
		old[i] = models.NewPackagingItem{ProductBarcode: "OLD", ScannedAt: &scanned}
	}
	created, err := svc.Create(ctx, models.CreatePackagingRequest{
		PackagingDate: "2024-01-15",
		WaybillNumber: "WB-1",
		Items:         old,
		UserID:        "u1",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	result, err := svc.Update(ctx, created.Record.ID, models.UpdatePackagingRequest{
		Items: itemsPtr([]models.NewPackagingItem{
			{ProductBarcode: "N1"},
			{ProductBarcode: "N2"},
		}),
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if len(result.ItemErrors) != 0 {
		t.Errorf("ItemErrors = %v, want none", result.ItemErrors)
	}

	persisted := itemsOf(t, store, created.Record.ID)
	if len(persisted) != 2 {
		t.Fatalf("persisted items = %d, want 2", len(persisted))
	}
	for _, row := range persisted {
		if rowstore.String(row, "product_barcode") == "OLD" {
			t.Error("an old item survived the replacement")
		}
	}
}

// Stock stays untouched by Update even when the item list changes. Stock
// correctness holds only when item lists change through Create and Delete.
func TestUpdate_NeverTouchesStock(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "p1", "A", "Alpha", models.ProductTypeSingle, 5)
	seedProduct(t, store, "p2", "B", "Beta", models.ProductTypeSingle, 8)
	svc, _ := newTestService(store)

	result, err := svc.Create(context.Background(), models.CreatePackagingRequest{
		PackagingDate: "2024-01-15",
		WaybillNumber: "WB-1",
		Items:         []models.NewPackagingItem{{ProductBarcode: "A"}},
		StockUpdates:  []models.StockUpdate{{ProductID: "p1", DeductAmount: 1}},
		UserID:        "u1",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got := productStock(t, store, "p1"); got != 4 {
		t.Fatalf("p1 stock after create = %d, want 4", got)
	}

	_, err = svc.Update(context.Background(), result.Record.ID, models.UpdatePackagingRequest{
		Items: itemsPtr([]models.NewPackagingItem{
			{ProductBarcode: "B"},
			{ProductBarcode: "B"},
		}),
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if got := productStock(t, store, "p1"); got != 4 {
		t.Errorf("p1 stock after update = %d, want 4 (update must not restore)", got)
	}
	if got := productStock(t, store, "p2"); got != 8 {
		t.Errorf("p2 stock after update = %d, want 8 (update must not deduct)", got)
	}
}

func TestUpdate_WaybillWriteFailureIsSoft(t *testing.T) {
	store := memstore.New()
	svc, _ := newTestService(store)
	record := createRecord(t, svc, "2024-01-15", "WB-1", "A")

	hook := &hookStore{Store: store}
	hook.updateRowFn = func(ctx context.Context, table, id string, patch rowstore.Row) (rowstore.Row, error) {
		if table == rowstore.TablePackagingRecords {
			return nil, errors.New("write refused")
		}
		return store.UpdateRow(ctx, table, id, patch)
	}
	hooked, _ := newTestService(hook)

	result, err := hooked.Update(context.Background(), record.ID, models.UpdatePackagingRequest{
		WaybillNumber: strPtr("WB-2"),
		Items:         itemsPtr([]models.NewPackagingItem{{ProductBarcode: "C"}}),
		UserID:        "u1",
	})
	if err != nil {
		t.Fatalf("Update returned a hard failure: %v", err)
	}
	if !result.Success {
		t.Error("result.Success = false, want true")
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want exactly one waybill failure", result.Errors)
	}
	if !result.ItemsReplaced {
		t.Error("item replacement did not run after the waybill failure")
	}
	if result.Record.WaybillNumber != "WB-1" {
		t.Errorf("waybill = %q, want unchanged WB-1", result.Record.WaybillNumber)
	}
}
