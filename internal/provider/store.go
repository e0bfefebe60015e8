package provider

import (
	"context"
	"fmt"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/storage"
)

// StoreSource loads the price history from a PricePointStore.
type StoreSource struct {
	name  string
	store storage.PricePointStore
}

// NewStoreSource wraps a store. name is reported as the data source.
func NewStoreSource(name string, store storage.PricePointStore) *StoreSource {
	return &StoreSource{name: name, store: store}
}

// Name returns the configured source name.
func (s *StoreSource) Name() string {
	return s.name
}

// Load reads every stored point ordered by (asset, date).
func (s *StoreSource) Load(ctx context.Context) ([]*domain.PricePoint, error) {
	points, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load from %s: %w", s.name, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", s.name, ErrNoPriceData)
	}
	assignInputIndex(points)
	return points, nil
}
