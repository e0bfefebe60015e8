package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/metrics"
)

// Prediction is the model output for one row.
type Prediction struct {
	PctChange  float64 // predicted 7-day percentage change
	Confidence float64 // tree sign agreement in [0, 1]
}

// Model couples the fitted encoder with the fitted forest.
type Model struct {
	encoder *OneHotEncoder
	forest  *Forest
}

// Predict forecasts one row.
func (m *Model) Predict(r *domain.FeatureRow) (Prediction, error) {
	if m == nil || m.forest == nil {
		return Prediction{}, ErrNotFitted
	}
	x, err := m.encoder.Encode(r)
	if err != nil {
		return Prediction{}, err
	}
	mean, agreement, err := m.forest.PredictDetail(x)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{PctChange: mean, Confidence: agreement}, nil
}

// FeatureNames returns the encoded column labels.
func (m *Model) FeatureNames() []string {
	return m.encoder.FeatureNames()
}

// TrainReport describes one training run.
type TrainReport struct {
	Rows        int
	TrainRows   int
	HoldoutRows int
	Features    int
	Trees       int
	Duration    time.Duration
	Holdout     *metrics.Evaluation // nil when every row was used for fitting
}

// Trainer fits a Model from feature rows.
type Trainer struct {
	Forest            ForestParams
	MinRowsForHoldout int     // below this row count all rows are used for fitting
	TestFraction      float64 // holdout share when splitting
	SplitSeed         uint64

	logger zerolog.Logger
	clock  func() time.Time
}

// NewTrainer returns a trainer with 100 trees, seed 42 and an 80/20 split
// once at least 50 rows are available.
func NewTrainer() *Trainer {
	return &Trainer{
		Forest: ForestParams{
			Trees: 100,
			Seed:  42,
			Tree:  TreeParams{MinSamplesLeaf: 1},
		},
		MinRowsForHoldout: 50,
		TestFraction:      0.2,
		SplitSeed:         42,
		logger:            zerolog.Nop(),
		clock:             time.Now,
	}
}

// WithLogger sets the logger.
func (t *Trainer) WithLogger(logger zerolog.Logger) *Trainer {
	t.logger = logger.With().Str("component", "trainer").Logger()
	return t
}

// WithClock sets the clock used for duration measurement.
func (t *Trainer) WithClock(clock func() time.Time) *Trainer {
	t.clock = clock
	return t
}

// Train fits the model. The holdout only feeds the report; it never
// blocks a run.
func (t *Trainer) Train(ctx context.Context, rows []*domain.FeatureRow) (*Model, *TrainReport, error) {
	if len(rows) == 0 {
		return nil, nil, ErrEmptyTrainingSet
	}
	start := t.now()

	train, holdout := t.split(rows)

	enc := &OneHotEncoder{}
	enc.Fit(train)

	X, err := enc.EncodeAll(train)
	if err != nil {
		return nil, nil, fmt.Errorf("encode training rows: %w", err)
	}
	y := make([]float64, len(train))
	for i, r := range train {
		y[i] = r.PctChange7d
	}

	forest := NewForest(t.Forest)
	if err := forest.Fit(ctx, X, y); err != nil {
		return nil, nil, err
	}

	m := &Model{encoder: enc, forest: forest}
	report := &TrainReport{
		Rows:        len(rows),
		TrainRows:   len(train),
		HoldoutRows: len(holdout),
		Features:    enc.Width(),
		Trees:       forest.Size(),
	}

	if len(holdout) > 0 {
		actual := make([]float64, len(holdout))
		predicted := make([]float64, len(holdout))
		for i, r := range holdout {
			p, err := m.Predict(r)
			if err != nil {
				return nil, nil, fmt.Errorf("predict holdout: %w", err)
			}
			actual[i] = r.PctChange7d
			predicted[i] = p.PctChange
		}
		ev, err := metrics.Evaluate(actual, predicted)
		if err != nil {
			return nil, nil, fmt.Errorf("evaluate holdout: %w", err)
		}
		report.Holdout = ev
	}
	report.Duration = t.now().Sub(start)

	evt := t.logger.Info().
		Int("rows", report.Rows).
		Int("train_rows", report.TrainRows).
		Int("holdout_rows", report.HoldoutRows).
		Int("features", report.Features).
		Int("trees", report.Trees).
		Dur("duration", report.Duration)
	if report.Holdout != nil {
		evt = evt.
			Float64("holdout_mae", report.Holdout.MAE).
			Float64("holdout_rmse", report.Holdout.RMSE).
			Float64("holdout_r2", report.Holdout.R2)
	}
	evt.Msg("model trained")

	return m, report, nil
}

// split returns (train, holdout). Small sets are used whole for training.
func (t *Trainer) split(rows []*domain.FeatureRow) ([]*domain.FeatureRow, []*domain.FeatureRow) {
	n := len(rows)
	if n < t.MinRowsForHoldout || t.TestFraction <= 0 || t.TestFraction >= 1 {
		return rows, nil
	}

	test := int(math.Ceil(float64(n)*t.TestFraction - 1e-9))
	if test >= n {
		return rows, nil
	}

	rng := rand.New(rand.NewPCG(t.SplitSeed, t.SplitSeed^0xda3e39cb94b95bdb))
	perm := rng.Perm(n)

	holdout := make([]*domain.FeatureRow, 0, test)
	train := make([]*domain.FeatureRow, 0, n-test)
	for i, p := range perm {
		if i < test {
			holdout = append(holdout, rows[p])
		} else {
			train = append(train, rows[p])
		}
	}
	return train, holdout
}

func (t *Trainer) now() time.Time {
	if t.clock == nil {
		return time.Now()
	}
	return t.clock()
}
