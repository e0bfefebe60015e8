package metrics

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_Perfect(t *testing.T) {
	y := []float64{0.1, -0.2, 0.3, 0.05}
	ev, err := Evaluate(y, y)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if ev.MAE != 0 || ev.RMSE != 0 || ev.MedianAbsError != 0 {
		t.Errorf("expected zero errors, got %+v", ev)
	}
	if !approx(ev.R2, 1) {
		t.Errorf("R2 = %v, want 1", ev.R2)
	}
	if ev.DirectionalAccuracy != 1 {
		t.Errorf("DirectionalAccuracy = %v, want 1", ev.DirectionalAccuracy)
	}
}

func TestEvaluate_KnownValues(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	predicted := []float64{2, 2, 2, 2}
	// residuals: -1, 0, 1, 2
	ev, err := Evaluate(actual, predicted)
	if err != nil {
		t.Fatal(err)
	}

	if ev.Count != 4 {
		t.Errorf("Count = %d, want 4", ev.Count)
	}
	if !approx(ev.MAE, 1) {
		t.Errorf("MAE = %v, want 1", ev.MAE)
	}
	if !approx(ev.RMSE, math.Sqrt(6.0/4)) {
		t.Errorf("RMSE = %v, want %v", ev.RMSE, math.Sqrt(1.5))
	}
	// SS_res = 6, SS_tot = 5
	if !approx(ev.R2, 1-6.0/5) {
		t.Errorf("R2 = %v, want %v", ev.R2, 1-6.0/5)
	}
	// sorted abs errors: 0, 1, 1, 2
	if !approx(ev.MedianAbsError, 1) {
		t.Errorf("MedianAbsError = %v, want 1", ev.MedianAbsError)
	}
	if !approx(ev.P90AbsError, 1.7) {
		t.Errorf("P90AbsError = %v, want 1.7", ev.P90AbsError)
	}
}

func TestEvaluate_ConstantActual(t *testing.T) {
	ev, err := Evaluate([]float64{2, 2, 2}, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if ev.R2 != 0 {
		t.Errorf("R2 = %v, want 0 for constant actuals", ev.R2)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	if _, err := Evaluate(nil, nil); !errors.Is(err, ErrEmptySample) {
		t.Errorf("expected ErrEmptySample, got %v", err)
	}
	if _, err := Evaluate([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestComputePercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []float64{3}, 0.9, 3},
		{"median odd", []float64{1, 2, 3}, 0.5, 2},
		{"median even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"max", []float64{1, 2, 3, 4}, 1.0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computePercentile(tt.sorted, tt.p); !approx(got, tt.want) {
				t.Errorf("computePercentile = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeStddev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := computeStddev(values, computeMean(values))
	want := math.Sqrt(32.0 / 7)
	if !approx(got, want) {
		t.Errorf("computeStddev = %v, want %v", got, want)
	}
	if computeStddev([]float64{1}, 1) != 0 {
		t.Error("single value stddev should be 0")
	}
}
