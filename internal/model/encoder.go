// Package model implements the bagged regression-tree forecaster.
package model

import (
	"errors"
	"sort"

	"fc-market-lab/internal/domain"
)

// Sentinel errors for model operations.
var (
	// ErrEmptyTrainingSet is returned when Fit receives no rows.
	ErrEmptyTrainingSet = errors.New("empty training set")

	// ErrNotFitted is returned when predicting with an unfitted model.
	ErrNotFitted = errors.New("model not fitted")
)

// NumericFeatures lists the passthrough columns, in vector order after the
// one-hot blocks.
var NumericFeatures = []string{
	"price",
	"rating",
	"is_event",
	"price_roll7_med",
	"price_roll30_med",
	"dayofweek",
	"days_from_start",
}

// OneHotEncoder expands league and nation into indicator columns.
// Categories are sorted so the layout does not depend on row order.
// Values unseen during Fit encode as all zeros.
type OneHotEncoder struct {
	Leagues []string
	Nations []string

	leagueIdx map[string]int
	nationIdx map[string]int
	fitted    bool
}

// Fit learns the categories present in rows.
func (e *OneHotEncoder) Fit(rows []*domain.FeatureRow) {
	leagues := map[string]struct{}{}
	nations := map[string]struct{}{}
	for _, r := range rows {
		leagues[r.League] = struct{}{}
		nations[r.Nation] = struct{}{}
	}

	e.Leagues = sortedKeys(leagues)
	e.Nations = sortedKeys(nations)
	e.leagueIdx = indexOf(e.Leagues)
	e.nationIdx = indexOf(e.Nations)
	e.fitted = true
}

// Width returns the encoded vector length.
func (e *OneHotEncoder) Width() int {
	return len(e.Leagues) + len(e.Nations) + len(NumericFeatures)
}

// FeatureNames returns a label for every vector position.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for _, l := range e.Leagues {
		names = append(names, "league="+l)
	}
	for _, n := range e.Nations {
		names = append(names, "nation="+n)
	}
	return append(names, NumericFeatures...)
}

// Encode builds the feature vector of one row.
func (e *OneHotEncoder) Encode(r *domain.FeatureRow) ([]float64, error) {
	if !e.fitted {
		return nil, ErrNotFitted
	}

	x := make([]float64, e.Width())
	if i, ok := e.leagueIdx[r.League]; ok {
		x[i] = 1
	}
	if i, ok := e.nationIdx[r.Nation]; ok {
		x[len(e.Leagues)+i] = 1
	}

	off := len(e.Leagues) + len(e.Nations)
	x[off+0] = r.Price
	x[off+1] = float64(r.Rating)
	x[off+2] = float64(r.IsEvent)
	x[off+3] = r.RollingMedian7d
	x[off+4] = r.RollingMedian30d
	x[off+5] = float64(r.DayOfWeek)
	x[off+6] = float64(r.DaysFromStart)
	return x, nil
}

// EncodeAll encodes rows into a design matrix.
func (e *OneHotEncoder) EncodeAll(rows []*domain.FeatureRow) ([][]float64, error) {
	X := make([][]float64, len(rows))
	for i, r := range rows {
		x, err := e.Encode(r)
		if err != nil {
			return nil, err
		}
		X[i] = x
	}
	return X, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(values []string) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}
