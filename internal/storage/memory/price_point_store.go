package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/storage"
)

// PricePointStore is an in-memory implementation of storage.PricePointStore.
type PricePointStore struct {
	mu   sync.RWMutex
	data map[pointKey]*domain.PricePoint
}

type pointKey struct {
	assetID int64
	day     int64 // unix seconds of the UTC day
}

// NewPricePointStore creates a new in-memory price point store.
func NewPricePointStore() *PricePointStore {
	return &PricePointStore{
		data: make(map[pointKey]*domain.PricePoint),
	}
}

func keyOf(p *domain.PricePoint) pointKey {
	return pointKey{assetID: p.AssetID, day: p.Date.UTC().Truncate(24 * time.Hour).Unix()}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *PricePointStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[pointKey]struct{}, len(points))

	// First pass: validate and check duplicates (existing + intra-batch)
	for _, p := range points {
		if err := storage.ValidatePoint(p); err != nil {
			return err
		}
		key := keyOf(p)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		pointCopy := *p
		s.data[keyOf(p)] = &pointCopy
	}

	return nil
}

// GetAll retrieves all points ordered by asset_id ASC, date ASC.
func (s *PricePointStore) GetAll(_ context.Context) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PricePoint, 0, len(s.data))
	for _, p := range s.data {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	sortPoints(result)

	return result, nil
}

// GetByAssetID retrieves all points of one asset ordered by date ASC.
func (s *PricePointStore) GetByAssetID(_ context.Context, assetID int64) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data {
		if p.AssetID == assetID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	sortPoints(result)

	return result, nil
}

// Count returns the number of stored points.
func (s *PricePointStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func sortPoints(points []*domain.PricePoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].AssetID != points[j].AssetID {
			return points[i].AssetID < points[j].AssetID
		}
		return points[i].Date.Before(points[j].Date)
	})
}

var _ storage.PricePointStore = (*PricePointStore)(nil)
