package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/storage"
)

func testDay(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestPricePointStore_InsertBulkAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPricePointStore(pool)
	ctx := context.Background()

	points := []*domain.PricePoint{
		{AssetID: 2, AssetName: "Player_2", Date: testDay(0), Price: 2000, Event: domain.EventNone, Rating: 80, League: "LaLiga", Nation: "ESP"},
		{AssetID: 1, AssetName: "Player_1", Date: testDay(1), Price: 1100, Event: domain.EventTOTW, Rating: 88, League: "EPL", Nation: "ENG"},
		{AssetID: 1, AssetName: "Player_1", Date: testDay(0), Price: 1000, Event: domain.EventNone, Rating: 88, League: "EPL", Nation: "ENG"},
	}

	require.NoError(t, store.InsertBulk(ctx, points))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, int64(1), all[0].AssetID)
	assert.True(t, all[0].Date.Equal(testDay(0)))
	assert.Equal(t, 1000.0, all[0].Price)
	assert.Equal(t, domain.EventTOTW, all[1].Event)
	assert.Equal(t, "EPL", all[1].League)
	assert.Equal(t, 88, all[1].Rating)
	assert.Equal(t, int64(2), all[2].AssetID)
	assert.Equal(t, 2, all[2].InputIndex)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPricePointStore_InsertBulkDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPricePointStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.PricePoint{
		{AssetID: 1, Date: testDay(0), Price: 100, Event: domain.EventNone},
	}))

	err := store.InsertBulk(ctx, []*domain.PricePoint{
		{AssetID: 1, Date: testDay(1), Price: 101, Event: domain.EventNone},
		{AssetID: 1, Date: testDay(0), Price: 102, Event: domain.EventNone},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Whole batch rolled back
	points, err := store.GetByAssetID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestPricePointStore_InsertBulkInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPricePointStore(pool)

	err := store.InsertBulk(context.Background(), []*domain.PricePoint{
		{AssetID: 1, Date: testDay(0), Price: -5},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
