package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/pantry/internal/database"
	"github.com/dukerupert/pantry/internal/model"
)

func setupGroceryTestDB(t *testing.T) *GrocerySnapshotStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewGrocerySnapshotStore(db)
}

func testItems() []model.GroceryItem {
	return []model.GroceryItem{
		{
			ID: "b7", Name: "Rice", Brand: "Chashi", Type: model.GroceryTypeSack,
			CurrentPrice: 850.5, CurrentSeller: model.SellerShwapno, LowStockThreshold: 1,
			QuantityInStock: 3, ShouldInclude: true, BestPrice: 800, BestSeller: model.SellerLocal,
			StockStatus: model.StockStatusInStock,
		},
		{
			ID: "a1", Name: "Oil", Brand: "Rupchanda", Type: model.GroceryTypeBottle,
			CurrentPrice: 190, CurrentSeller: model.SellerMeena, LowStockThreshold: 2,
			QuantityInStock: 0, ShouldInclude: false, BestPrice: 185, BestSeller: model.SellerAgora,
			StockStatus: model.StockStatusBelowStock,
		},
	}
}

func TestSnapshotEmpty(t *testing.T) {
	gs := setupGroceryTestDB(t)
	ctx := context.Background()

	items, err := gs.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("items = %#v, want empty slice", items)
	}

	_, ok, err := gs.SavedAt(ctx)
	if err != nil {
		t.Fatalf("saved at: %v", err)
	}
	if ok {
		t.Error("expected no snapshot time before first save")
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	gs := setupGroceryTestDB(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	gs.now = func() time.Time { return fixed }

	if err := gs.SaveItems(ctx, testItems()); err != nil {
		t.Fatalf("save: %v", err)
	}

	items, err := gs.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := testItems()
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item[%d] = %+v, want %+v", i, items[i], want[i])
		}
	}

	savedAt, ok, err := gs.SavedAt(ctx)
	if err != nil {
		t.Fatalf("saved at: %v", err)
	}
	if !ok || !savedAt.Equal(fixed) {
		t.Errorf("saved at = %v (ok=%v), want %v", savedAt, ok, fixed)
	}
}

func TestSnapshotReplacesPrevious(t *testing.T) {
	gs := setupGroceryTestDB(t)
	ctx := context.Background()

	if err := gs.SaveItems(ctx, testItems()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := gs.SaveItems(ctx, testItems()[1:]); err != nil {
		t.Fatalf("second save: %v", err)
	}

	items, err := gs.LoadItems(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a1" {
		t.Errorf("items = %+v, want only a1", items)
	}

	if err := gs.SaveItems(ctx, nil); err != nil {
		t.Fatalf("empty save: %v", err)
	}
	items, _ = gs.LoadItems(ctx)
	if len(items) != 0 {
		t.Errorf("expected empty snapshot, got %d items", len(items))
	}
}
