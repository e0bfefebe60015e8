package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/storage"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestPricePointStore_InsertBulkAndGet(t *testing.T) {
	store := NewPricePointStore()
	ctx := context.Background()

	points := []*domain.PricePoint{
		{AssetID: 1, AssetName: "Player_1", Date: day(0), Price: 1000, Event: domain.EventNone, Rating: 85, League: "EPL", Nation: "ENG"},
		{AssetID: 1, AssetName: "Player_1", Date: day(1), Price: 1010, Event: domain.EventSBC, Rating: 85, League: "EPL", Nation: "ENG"},
	}

	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByAssetID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByAssetID failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 points, got %d", len(result))
	}
	if result[1].Event != domain.EventSBC {
		t.Errorf("Expected SBC event on second point, got %q", result[1].Event)
	}

	count, _ := store.Count(ctx)
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestPricePointStore_DuplicateKey(t *testing.T) {
	store := NewPricePointStore()
	ctx := context.Background()

	points := []*domain.PricePoint{{AssetID: 1, Date: day(0), Price: 100}}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, points)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestPricePointStore_IntraBatchDuplicate(t *testing.T) {
	store := NewPricePointStore()
	ctx := context.Background()

	points := []*domain.PricePoint{
		{AssetID: 1, Date: day(0), Price: 100},
		{AssetID: 1, Date: day(0).Add(3 * time.Hour), Price: 101}, // same day
	}

	err := store.InsertBulk(ctx, points)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	// Verify nothing was inserted
	result, _ := store.GetByAssetID(ctx, 1)
	if len(result) != 0 {
		t.Errorf("Expected 0 points (rollback), got %d", len(result))
	}
}

func TestPricePointStore_GetAllOrdering(t *testing.T) {
	store := NewPricePointStore()
	ctx := context.Background()

	points := []*domain.PricePoint{
		{AssetID: 2, Date: day(1), Price: 20},
		{AssetID: 1, Date: day(2), Price: 12},
		{AssetID: 2, Date: day(0), Price: 21},
		{AssetID: 1, Date: day(0), Price: 10},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	wantPrices := []float64{10, 12, 21, 20}
	for i, p := range result {
		if p.Price != wantPrices[i] {
			t.Errorf("Position %d: expected price %v, got %v", i, wantPrices[i], p.Price)
		}
	}
}

func TestPricePointStore_InvalidInput(t *testing.T) {
	store := NewPricePointStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PricePoint{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil point, got %v", err)
	}

	err = store.InsertBulk(ctx, []*domain.PricePoint{{AssetID: 1, Date: day(0), Price: 0}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero price, got %v", err)
	}

	err = store.InsertBulk(ctx, []*domain.PricePoint{{AssetID: 1, Price: 10}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing date, got %v", err)
	}
}

func TestPricePointStore_ReturnsCopies(t *testing.T) {
	store := NewPricePointStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PricePoint{{AssetID: 1, Date: day(0), Price: 100}}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	first, _ := store.GetAll(ctx)
	first[0].Price = 999

	second, _ := store.GetAll(ctx)
	if second[0].Price != 100 {
		t.Errorf("Store was mutated through returned point: got %v", second[0].Price)
	}
}

func TestPricePointStore_EmptyBulk(t *testing.T) {
	store := NewPricePointStore()
	if err := store.InsertBulk(context.Background(), []*domain.PricePoint{}); err != nil {
		t.Errorf("Empty bulk should succeed, got %v", err)
	}
}

func TestPricePointStore_GetByAssetIDNotFound(t *testing.T) {
	store := NewPricePointStore()
	if _, err := store.GetByAssetID(context.Background(), 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
