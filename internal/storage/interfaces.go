package storage

import (
	"context"

	"fc-market-lab/internal/domain"
)

// PricePointStore provides access to price_points storage.
// The store is an optional input source of price history; pipeline outputs
// are never written back to it.
type PricePointStore interface {
	// InsertBulk adds multiple points atomically.
	// Fails entire batch on duplicate (asset_id, date) or invalid point.
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetAll retrieves all points ordered by asset_id ASC, date ASC.
	GetAll(ctx context.Context) ([]*domain.PricePoint, error)

	// GetByAssetID retrieves all points of one asset ordered by date ASC.
	GetByAssetID(ctx context.Context, assetID int64) ([]*domain.PricePoint, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)
}

// ValidatePoint checks the invariants every stored price point must satisfy.
func ValidatePoint(p *domain.PricePoint) error {
	if p == nil || p.Price <= 0 || p.Date.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
