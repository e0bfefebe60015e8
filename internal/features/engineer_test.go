package features

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"fc-market-lab/internal/domain"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // a Monday

func series(assetID int64, prices ...float64) []*domain.PricePoint {
	points := make([]*domain.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = &domain.PricePoint{
			AssetID: assetID,
			Date:    day0.AddDate(0, 0, i),
			Price:   p,
			Event:   domain.EventNone,
			League:  "EPL",
			Nation:  "ENG",
			Rating:  85,
		}
	}
	return points
}

func TestBuild_FourteenDays(t *testing.T) {
	prices := make([]float64, 14)
	for i := range prices {
		prices[i] = float64(100 + i*10)
	}
	rows, err := NewEngineer().Build(series(1, prices...))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("len(rows) = %d, want 7", len(rows))
	}

	for i, r := range rows {
		if r.PriceNext7d != prices[i+7] {
			t.Errorf("rows[%d].PriceNext7d = %v, want %v", i, r.PriceNext7d, prices[i+7])
		}
		want := (r.PriceNext7d - r.Price) / r.Price
		if math.Abs(r.PctChange7d-want) > 1e-12 {
			t.Errorf("rows[%d].PctChange7d = %v, want %v", i, r.PctChange7d, want)
		}
		if r.DaysFromStart != i {
			t.Errorf("rows[%d].DaysFromStart = %d, want %d", i, r.DaysFromStart, i)
		}
		if r.DayOfWeek != i%7 {
			t.Errorf("rows[%d].DayOfWeek = %d, want %d", i, r.DayOfWeek, i%7)
		}
	}
}

func TestBuild_DayOfWeekMondayZero(t *testing.T) {
	points := series(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	rows, err := (&Engineer{Horizon: 1, ShortWindow: 7, LongWindow: 30}).Build(points)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].DayOfWeek != 0 {
		t.Errorf("Monday = %d, want 0", rows[0].DayOfWeek)
	}
	if rows[6].DayOfWeek != 6 {
		t.Errorf("Sunday = %d, want 6", rows[6].DayOfWeek)
	}
}

func TestBuild_ShortSeriesDropped(t *testing.T) {
	points := append(series(1, 1, 2, 3), series(2, 1, 2, 3, 4, 5, 6, 7, 8, 9)...)
	rows, err := NewEngineer().Build(points)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.AssetID != 2 {
			t.Errorf("unexpected asset %d", r.AssetID)
		}
	}
}

func TestBuild_NoRows(t *testing.T) {
	_, err := NewEngineer().Build(series(1, 1, 2, 3, 4, 5, 6, 7))
	if !errors.Is(err, ErrNoFeatureRows) {
		t.Errorf("expected ErrNoFeatureRows, got %v", err)
	}
	_, err = NewEngineer().Build(nil)
	if !errors.Is(err, ErrNoFeatureRows) {
		t.Errorf("expected ErrNoFeatureRows for empty input, got %v", err)
	}
}

func TestBuild_UnsortedInputAndNoMutation(t *testing.T) {
	points := series(1, 10, 20, 30, 40, 50, 60, 70, 80, 90)
	shuffled := []*domain.PricePoint{points[8], points[2], points[0], points[5], points[1], points[7], points[3], points[6], points[4]}
	before := make([]*domain.PricePoint, len(shuffled))
	copy(before, shuffled)

	rows, err := NewEngineer().Build(shuffled)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, shuffled) {
		t.Error("input slice order was modified")
	}
	if rows[0].Price != 10 || rows[0].PriceNext7d != 80 || rows[1].PriceNext7d != 90 {
		t.Errorf("unexpected rows: %+v %+v", rows[0], rows[1])
	}
}

func TestBuild_EventFlag(t *testing.T) {
	points := series(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	points[0].Event = domain.EventSBC
	points[1].Event = domain.EventTag("NONE")
	points[2].Event = ""

	rows, err := NewEngineer().Build(points)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].IsEvent != 1 || rows[1].IsEvent != 0 {
		t.Errorf("IsEvent = %d, %d; want 1, 0", rows[0].IsEvent, rows[1].IsEvent)
	}

	rows, err = (&Engineer{Horizon: 1, ShortWindow: 7, LongWindow: 30}).Build(points)
	if err != nil {
		t.Fatal(err)
	}
	if rows[2].IsEvent != 0 {
		t.Errorf("empty tag IsEvent = %d, want 0", rows[2].IsEvent)
	}
}

func TestBuild_DaysFromGlobalStart(t *testing.T) {
	a := series(1, 1, 2, 3, 4, 5, 6, 7, 8)
	b := series(2, 1, 2, 3, 4, 5, 6, 7, 8)
	for _, p := range b {
		p.Date = p.Date.AddDate(0, 0, 3)
	}
	rows, err := NewEngineer().Build(append(a, b...))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].DaysFromStart != 0 || rows[1].DaysFromStart != 3 {
		t.Errorf("DaysFromStart = %d, %d; want 0, 3", rows[0].DaysFromStart, rows[1].DaysFromStart)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	points := series(1, 5, 3, 8, 1, 9, 2, 7, 4, 6, 10, 11)
	a, err := NewEngineer().Build(points)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewEngineer().Build(points)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two builds differ")
	}
}

func TestRollingMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		want   []float64
	}{
		{"empty", nil, 3, []float64{}},
		{"min periods one", []float64{5}, 7, []float64{5}},
		{"odd window", []float64{1, 3, 2, 10, 4}, 3, []float64{1, 2, 2, 3, 4}},
		{"even partial", []float64{1, 3, 2, 10}, 7, []float64{1, 2, 2, 2.5}},
		{"window one", []float64{4, 2, 9}, 1, []float64{4, 2, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RollingMedian(tt.values, tt.window)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
