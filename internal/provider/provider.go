// Package provider supplies the daily price table the pipeline trains on.
package provider

import (
	"context"
	"errors"

	"fc-market-lab/internal/domain"
)

// Sentinel errors for provider operations.
var (
	// ErrSourceNotFound is returned when the configured data file does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrInvalidRow is returned when a row or header cannot be interpreted.
	ErrInvalidRow = errors.New("invalid row")

	// ErrNoPriceData is returned when a source has no usable price at all.
	// It is fatal: the pipeline never falls back on it.
	ErrNoPriceData = errors.New("no price data")
)

// Source loads a complete price table.
type Source interface {
	// Name identifies the source in logs and run results.
	Name() string

	// Load returns all price points. InputIndex on each point is its
	// position in the returned slice.
	Load(ctx context.Context) ([]*domain.PricePoint, error)
}

func assignInputIndex(points []*domain.PricePoint) {
	for i, p := range points {
		p.InputIndex = i
	}
}
