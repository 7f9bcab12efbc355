package packaging

import (
	"context"
	"strings"
	"testing"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/memstore"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

func itemsWithBarcodes(barcodes ...string) []models.PackagingItem {
	items := make([]models.PackagingItem, 0, len(barcodes))
	for _, b := range barcodes {
		items = append(items, models.PackagingItem{ProductBarcode: b})
	}
	return items
}

func TestResolve_AggregatesDuplicateBarcodes(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "pa", "A", "Alpha", models.ProductTypeSingle, 10)
	seedProduct(t, store, "pb", "B", "Beta", models.ProductTypeSingle, 10)
	svc, _ := newTestService(store)

	deltas, soft, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("A", "A", "B"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if len(soft) != 0 {
		t.Errorf("soft errors = %v, want none", soft)
	}
	if len(deltas) != 2 {
		t.Fatalf("len(deltas) = %d, want 2", len(deltas))
	}
	if deltas["pa"].Quantity != 2 {
		t.Errorf("requirement for pa = %d, want 2", deltas["pa"].Quantity)
	}
	if deltas["pb"].Quantity != 1 {
		t.Errorf("requirement for pb = %d, want 1", deltas["pb"].Quantity)
	}
	if deltas["pa"].Product == nil || deltas["pa"].Product.Name != "Alpha" {
		t.Errorf("pa snapshot = %+v, want product Alpha", deltas["pa"].Product)
	}
}

func TestResolve_BundleExpansion(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "px", "X", "Gift Box", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pc1", "C1", "Mug", models.ProductTypeSingle, 50)
	seedProduct(t, store, "pc2", "C2", "Coaster", models.ProductTypeSingle, 50)
	seedComponent(t, store, "px", "pc1", 2)
	seedComponent(t, store, "px", "pc2", 1)
	svc, _ := newTestService(store)

	deltas, soft, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("X", "X", "X"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if len(soft) != 0 {
		t.Errorf("soft errors = %v, want none", soft)
	}
	if _, hasBundle := deltas["px"]; hasBundle {
		t.Error("bundle px received a stock requirement; bundles must never get one")
	}
	if deltas["pc1"].Quantity != 6 {
		t.Errorf("requirement for pc1 = %d, want 6", deltas["pc1"].Quantity)
	}
	if deltas["pc2"].Quantity != 3 {
		t.Errorf("requirement for pc2 = %d, want 3", deltas["pc2"].Quantity)
	}
}

func TestResolve_MixedSinglesAndBundleAggregate(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "px", "X", "Kit", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pc", "C", "Part", models.ProductTypeSingle, 50)
	seedComponent(t, store, "px", "pc", 2)
	svc, _ := newTestService(store)

	// C is consumed both directly and through the bundle: 1 + 2*2 = 5.
	deltas, _, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("C", "X", "X"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if deltas["pc"].Quantity != 5 {
		t.Errorf("requirement for pc = %d, want 5", deltas["pc"].Quantity)
	}
}

func TestResolve_MissingProductSoftError(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "pa", "A", "Alpha", models.ProductTypeSingle, 10)
	svc, _ := newTestService(store)

	deltas, soft, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("A", "GHOST"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if len(deltas) != 1 || deltas["pa"].Quantity != 1 {
		t.Errorf("deltas = %+v, want only pa:1", deltas)
	}
	if len(soft) != 1 || soft[0] != "Product not found: GHOST" {
		t.Errorf("soft errors = %v, want [Product not found: GHOST]", soft)
	}
}

func TestResolve_EmptyComponentsSoftError(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "px", "X", "Hollow Box", models.ProductTypeBundle, 0)
	svc, _ := newTestService(store)

	deltas, soft, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("X"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if len(deltas) != 0 {
		t.Errorf("deltas = %+v, want none", deltas)
	}
	if len(soft) != 1 || !strings.Contains(soft[0], "No components found for bundle: X") {
		t.Errorf("soft errors = %v, want a no-components message for X", soft)
	}
}

func TestResolve_NestedBundleExpands(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "pouter", "OUT", "Outer", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pinner", "IN", "Inner", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pc", "C", "Part", models.ProductTypeSingle, 100)
	seedComponent(t, store, "pouter", "pinner", 2)
	seedComponent(t, store, "pinner", "pc", 3)
	svc, _ := newTestService(store)

	deltas, soft, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("OUT", "OUT"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if len(soft) != 0 {
		t.Errorf("soft errors = %v, want none", soft)
	}
	// 2 scans x 2 inner x 3 parts.
	if deltas["pc"].Quantity != 12 {
		t.Errorf("requirement for pc = %d, want 12", deltas["pc"].Quantity)
	}
	if _, ok := deltas["pinner"]; ok {
		t.Error("nested bundle pinner received a stock requirement")
	}
}

// A sub-bundle reachable through two branches of the same root is expanded
// under both, with the quantities of each branch merged. Reconvergence is not
// a cycle; only a bundle appearing on its own path is.
func TestResolve_DiamondSharedSubBundle(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "proot", "R", "Hamper", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pleft", "L", "Left Half", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pright", "G", "Right Half", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pshared", "S", "Shared Pack", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pc", "C", "Part", models.ProductTypeSingle, 100)
	seedComponent(t, store, "proot", "pleft", 1)
	seedComponent(t, store, "proot", "pright", 1)
	seedComponent(t, store, "pleft", "pshared", 2)
	seedComponent(t, store, "pright", "pshared", 3)
	seedComponent(t, store, "pshared", "pc", 2)
	svc, _ := newTestService(store)

	deltas, soft, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("R"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if len(soft) != 0 {
		t.Errorf("soft errors = %v, want none", soft)
	}
	if len(deltas) != 1 {
		t.Errorf("deltas = %+v, want only the leaf part", deltas)
	}
	// Left branch 2 and right branch 3, each times 2 parts per shared pack.
	if deltas["pc"].Quantity != 10 {
		t.Errorf("requirement for pc = %d, want 10", deltas["pc"].Quantity)
	}
}

func TestResolve_CycleDetected(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "pa", "A", "Loop A", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pb", "B", "Loop B", models.ProductTypeBundle, 0)
	seedComponent(t, store, "pa", "pb", 1)
	seedComponent(t, store, "pb", "pa", 1)
	svc, _ := newTestService(store)

	deltas, soft, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("A"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}
	if len(deltas) != 0 {
		t.Errorf("deltas = %+v, want none", deltas)
	}
	found := false
	for _, msg := range soft {
		if strings.Contains(msg, "Bundle cycle detected") {
			found = true
		}
	}
	if !found {
		t.Errorf("soft errors = %v, want a cycle message", soft)
	}
}

func TestResolve_RecipeCacheServesRepeatLookups(t *testing.T) {
	store := memstore.New()
	seedProduct(t, store, "px", "X", "Kit", models.ProductTypeBundle, 0)
	seedProduct(t, store, "pc", "C", "Part", models.ProductTypeSingle, 50)
	seedComponent(t, store, "px", "pc", 2)

	componentReads := 0
	hook := &hookStore{Store: store}
	hook.listRowsFn = func(ctx context.Context, table string, q rowstore.Query) (rowstore.ListResult, error) {
		if table == rowstore.TableProductComponents {
			componentReads++
		}
		return store.ListRows(ctx, table, q)
	}
	svc, _ := newTestService(hook)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := svc.resolveStockRequirements(ctx, itemsWithBarcodes("X")); err != nil {
			t.Fatalf("resolve %d returned error: %v", i, err)
		}
	}
	if componentReads != 1 {
		t.Errorf("component table reads = %d, want 1 (cache must serve repeats)", componentReads)
	}
}

func TestResolve_FetchFailureIsFatal(t *testing.T) {
	store := memstore.New()
	hook := &hookStore{Store: store}
	hook.listRowsFn = func(ctx context.Context, table string, q rowstore.Query) (rowstore.ListResult, error) {
		return rowstore.ListResult{}, context.DeadlineExceeded
	}
	svc, _ := newTestService(hook)

	_, _, err := svc.resolveStockRequirements(context.Background(), itemsWithBarcodes("A"))
	if err == nil {
		t.Fatal("resolve succeeded with a failing product fetch")
	}
}
