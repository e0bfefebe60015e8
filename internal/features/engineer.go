// Package features turns the daily price table into supervised-learning rows.
package features

import (
	"errors"
	"slices"
	"sort"
	"time"

	"fc-market-lab/internal/domain"
)

// ErrNoFeatureRows is returned when no asset has enough history for the horizon.
var ErrNoFeatureRows = errors.New("no feature rows")

// Engineer computes the forward target and the trailing features.
type Engineer struct {
	Horizon     int // rows ahead used for the target
	ShortWindow int // short rolling median window
	LongWindow  int // long rolling median window
}

// NewEngineer returns an engineer with the 7-row horizon and 7/30 windows.
func NewEngineer() *Engineer {
	return &Engineer{Horizon: 7, ShortWindow: 7, LongWindow: 30}
}

// Build derives feature rows. The input is copied and stably sorted by
// (asset, date, input index); trailing rows of each asset without a value
// Horizon rows ahead are dropped. The input is not modified.
func (e *Engineer) Build(points []*domain.PricePoint) ([]*domain.FeatureRow, error) {
	sorted := make([]*domain.PricePoint, 0, len(points))
	for _, p := range points {
		if p != nil {
			sorted = append(sorted, p)
		}
	}
	SortPoints(sorted)

	var rows []*domain.FeatureRow
	for _, group := range groupByAsset(sorted) {
		rows = append(rows, e.buildAsset(group)...)
	}

	if len(rows) == 0 {
		return nil, ErrNoFeatureRows
	}

	start := rows[0].Date
	for _, r := range rows {
		if r.Date.Before(start) {
			start = r.Date
		}
	}
	for _, r := range rows {
		r.DaysFromStart = daysBetween(start, r)
	}

	return rows, nil
}

func (e *Engineer) buildAsset(group []*domain.PricePoint) []*domain.FeatureRow {
	n := len(group) - e.Horizon
	if n <= 0 {
		return nil
	}

	prices := make([]float64, n)
	for i := 0; i < n; i++ {
		prices[i] = group[i].Price
	}
	short := RollingMedian(prices, e.ShortWindow)
	long := RollingMedian(prices, e.LongWindow)

	rows := make([]*domain.FeatureRow, n)
	for i := 0; i < n; i++ {
		p := group[i]
		next := group[i+e.Horizon].Price

		isEvent := 0
		if p.Event.IsEvent() {
			isEvent = 1
		}

		rows[i] = &domain.FeatureRow{
			PricePoint:       *p,
			PriceNext7d:      next,
			PctChange7d:      (next - p.Price) / p.Price,
			RollingMedian7d:  short[i],
			RollingMedian30d: long[i],
			IsEvent:          isEvent,
			DayOfWeek:        (int(p.Date.Weekday()) + 6) % 7,
		}
	}
	return rows
}

// SortPoints stably sorts by (asset, date, input index).
func SortPoints(points []*domain.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.InputIndex < b.InputIndex
	})
}

// groupByAsset splits a sorted table into contiguous per-asset slices.
func groupByAsset(sorted []*domain.PricePoint) [][]*domain.PricePoint {
	var groups [][]*domain.PricePoint
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].AssetID != sorted[start].AssetID {
			groups = append(groups, sorted[start:i])
			start = i
		}
	}
	return groups
}

func daysBetween(start time.Time, r *domain.FeatureRow) int {
	return int(r.Date.Sub(start).Hours() / 24)
}

// RollingMedian returns the trailing median of the last window values at
// each position, using however many values exist when fewer than window
// precede it.
func RollingMedian(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	buf := make([]float64, 0, window)
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		buf = append(buf[:0], values[lo:i+1]...)
		slices.Sort(buf)
		out[i] = median(buf)
	}
	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
