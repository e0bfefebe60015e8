// Package metrics computes holdout statistics for the forecasting model.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmptySample is returned when there is nothing to evaluate.
var ErrEmptySample = errors.New("empty sample")

// Evaluation summarizes prediction quality on a set of rows.
type Evaluation struct {
	Count               int
	MAE                 float64 // mean absolute error
	RMSE                float64 // root mean squared error
	R2                  float64 // coefficient of determination; 0 when actuals have no variance
	MedianAbsError      float64
	P90AbsError         float64
	ResidualStddev      float64 // sample stddev of (actual - predicted)
	DirectionalAccuracy float64 // share of rows where prediction and actual have the same sign
}

// Evaluate compares predictions with actual values pairwise.
func Evaluate(actual, predicted []float64) (*Evaluation, error) {
	n := len(actual)
	if n != len(predicted) {
		return nil, fmt.Errorf("length mismatch: %d actual, %d predicted", n, len(predicted))
	}
	if n == 0 {
		return nil, ErrEmptySample
	}

	residuals := make([]float64, n)
	absErrors := make([]float64, n)
	sumSq := 0.0
	sameSign := 0
	for i := range actual {
		r := actual[i] - predicted[i]
		residuals[i] = r
		absErrors[i] = math.Abs(r)
		sumSq += r * r
		if sign(actual[i]) == sign(predicted[i]) {
			sameSign++
		}
	}

	sortedAbs := make([]float64, n)
	copy(sortedAbs, absErrors)
	sort.Float64s(sortedAbs)

	meanActual := computeMean(actual)
	totalSq := 0.0
	for _, a := range actual {
		d := a - meanActual
		totalSq += d * d
	}
	r2 := 0.0
	if totalSq > 0 {
		r2 = 1 - sumSq/totalSq
	}

	return &Evaluation{
		Count:               n,
		MAE:                 computeMean(absErrors),
		RMSE:                math.Sqrt(sumSq / float64(n)),
		R2:                  r2,
		MedianAbsError:      computePercentile(sortedAbs, 0.50),
		P90AbsError:         computePercentile(sortedAbs, 0.90),
		ResidualStddev:      computeStddev(residuals, computeMean(residuals)),
		DirectionalAccuracy: float64(sameSign) / float64(n),
	}, nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
