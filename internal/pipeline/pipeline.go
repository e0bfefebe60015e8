// Package pipeline runs the load, engineer, train, rank and write stages.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/features"
	"fc-market-lab/internal/model"
	"fc-market-lab/internal/observability"
	"fc-market-lab/internal/provider"
	"fc-market-lab/internal/ranking"
	"fc-market-lab/internal/reporting"
)

// ErrInsufficientData is returned when no feature rows remain after the fallback decision.
var ErrInsufficientData = errors.New("insufficient data")

// Result describes a completed run.
type Result struct {
	RunID           string
	Source          string // name of the source the model was trained on
	FallbackUsed    bool
	DataVersion     string // sha256 prefix of the price table
	PricePoints     int
	FeatureRows     int
	Assets          int
	Sufficiency     *SufficiencyResult // checks on the primary source
	Train           *model.TrainReport
	Recommendations []*domain.Recommendation
	ArtifactPath    string
	Duration        time.Duration
}

// Pipeline orchestrates one training and ranking run.
type Pipeline struct {
	source       provider.Source
	fallback     provider.Source // nil disables the synthetic fallback
	engineer     *features.Engineer
	trainer      *model.Trainer
	ranker       *ranking.Ranker
	minRealRows  int
	artifactPath string
	reportPath   string
	metrics      *observability.Metrics
	metricsPath  string
	logger       zerolog.Logger
	clock        func() time.Time
	newRunID     func() string
}

// New creates a pipeline reading from source and writing the artifact to
// artifactPath, with the default synthetic fallback.
func New(source provider.Source, artifactPath string) *Pipeline {
	return &Pipeline{
		source:       source,
		fallback:     provider.NewSyntheticSource(provider.DefaultSyntheticConfig()),
		engineer:     features.NewEngineer(),
		trainer:      model.NewTrainer(),
		ranker:       ranking.NewRanker(),
		minRealRows:  100,
		artifactPath: artifactPath,
		logger:       zerolog.Nop(),
		clock:        func() time.Time { return time.Now().UTC() },
		newRunID:     uuid.NewString,
	}
}

// WithFallback sets the source used when the primary one is too small.
// nil disables the fallback.
func (p *Pipeline) WithFallback(src provider.Source) *Pipeline {
	p.fallback = src
	return p
}

// WithEngineer sets the feature engineer.
func (p *Pipeline) WithEngineer(e *features.Engineer) *Pipeline {
	p.engineer = e
	return p
}

// WithTrainer sets the model trainer.
func (p *Pipeline) WithTrainer(t *model.Trainer) *Pipeline {
	p.trainer = t
	return p
}

// WithRanker sets the ranker.
func (p *Pipeline) WithRanker(r *ranking.Ranker) *Pipeline {
	p.ranker = r
	return p
}

// WithMinRealRows sets the feature row count below which the fallback applies.
func (p *Pipeline) WithMinRealRows(n int) *Pipeline {
	p.minRealRows = n
	return p
}

// WithReportPath enables the Markdown run report.
func (p *Pipeline) WithReportPath(path string) *Pipeline {
	p.reportPath = path
	return p
}

// WithMetrics records run metrics and, if textfilePath is set, exports them.
func (p *Pipeline) WithMetrics(m *observability.Metrics, textfilePath string) *Pipeline {
	p.metrics = m
	p.metricsPath = textfilePath
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	p.logger = logger.With().Str("component", "pipeline").Logger()
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// WithRunID sets the run id generator.
func (p *Pipeline) WithRunID(newRunID func() string) *Pipeline {
	p.newRunID = newRunID
	return p
}

// Run executes all stages. Nothing is written unless every stage before
// the artifact write succeeds.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.clock()
	runID := p.newRunID()
	log := p.logger.With().Str("run_id", runID).Logger()

	result, err := p.run(ctx, runID, log)
	status := "success"
	if err != nil {
		status = "failure"
	}
	if p.metrics != nil {
		p.metrics.RecordPipelineRun(status)
		if p.metricsPath != "" {
			if werr := p.metrics.WriteTextfile(p.metricsPath); werr != nil {
				log.Warn().Err(werr).Str("path", p.metricsPath).Msg("metrics export failed")
			}
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("pipeline failed")
		return nil, err
	}

	result.Duration = p.clock().Sub(start)
	log.Info().
		Str("source", result.Source).
		Bool("fallback", result.FallbackUsed).
		Str("data_version", result.DataVersion).
		Int("recommendations", len(result.Recommendations)).
		Str("artifact", result.ArtifactPath).
		Dur("duration", result.Duration).
		Msg("pipeline finished")
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, log zerolog.Logger) (*Result, error) {
	result := &Result{RunID: runID, ArtifactPath: p.artifactPath}

	// 1. Load primary source
	sourceName := p.source.Name()
	var points []*domain.PricePoint
	err := p.stage(log, "load", func() error {
		var err error
		points, err = p.source.Load(ctx)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, provider.ErrSourceNotFound) && p.fallback != nil:
		log.Warn().Err(err).Msg("primary source not found")
	default:
		return nil, fmt.Errorf("load %s: %w", sourceName, err)
	}
	p.observeLoaded(sourceName, len(points))

	// 2. Engineer features
	rows, err := p.build(log, points)
	if err != nil {
		return nil, err
	}

	// 3. Sufficiency and fallback decision
	result.Sufficiency = CheckSufficiency(points, rows, p.minRealRows)
	for _, c := range result.Sufficiency.Checks {
		log.Debug().Str("check", c.Name).Str("threshold", c.Threshold).Str("actual", c.Actual).Bool("pass", c.Pass).Msg("sufficiency")
	}

	if !result.Sufficiency.AllPass && p.fallback != nil {
		log.Warn().
			Int("feature_rows", len(rows)).
			Int("min_rows", p.minRealRows).
			Str("fallback", p.fallback.Name()).
			Msg("insufficient real data, using fallback source")

		err := p.stage(log, "load_fallback", func() error {
			var err error
			points, err = p.fallback.Load(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("load fallback %s: %w", p.fallback.Name(), err)
		}
		sourceName = p.fallback.Name()
		result.FallbackUsed = true
		p.observeLoaded(sourceName, len(points))
		if p.metrics != nil {
			p.metrics.FallbackTotal.Inc()
		}

		if rows, err = p.build(log, points); err != nil {
			return nil, err
		}
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%d price points from %s: %w", len(points), sourceName, ErrInsufficientData)
	}

	result.Source = sourceName
	result.DataVersion = computeDataVersion(points)
	result.PricePoints = len(points)
	result.FeatureRows = len(rows)
	result.Assets = countAssets(rows)
	if p.metrics != nil {
		p.metrics.FeatureRows.Set(float64(len(rows)))
		p.metrics.SkippedRows.Set(float64(len(points) - len(rows)))
	}

	// 4. Train
	var m *model.Model
	err = p.stage(log, "train", func() error {
		var err error
		m, result.Train, err = p.trainer.Train(ctx, rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if h := result.Train.Holdout; h != nil && p.metrics != nil {
		p.metrics.HoldoutMAE.Set(h.MAE)
		p.metrics.HoldoutRMSE.Set(h.RMSE)
		p.metrics.HoldoutR2.Set(h.R2)
	}

	// 5. Rank
	err = p.stage(log, "rank", func() error {
		var err error
		result.Recommendations, err = p.ranker.Rank(rows, m)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	// 6. Write artifact
	err = p.stage(log, "write", func() error {
		return reporting.WriteArtifact(p.artifactPath, result.Recommendations)
	})
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecommendationsTotal.Add(float64(len(result.Recommendations)))
	}

	// 7. Optional run report
	if p.reportPath != "" {
		md := reporting.RenderMarkdown(p.buildReport(result, rows))
		if err := reporting.WriteFileAtomic(p.reportPath, []byte(md)); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
	}

	return result, nil
}

// build engineers features; an empty result is not an error here.
func (p *Pipeline) build(log zerolog.Logger, points []*domain.PricePoint) ([]*domain.FeatureRow, error) {
	var rows []*domain.FeatureRow
	err := p.stage(log, "features", func() error {
		var err error
		rows, err = p.engineer.Build(points)
		if errors.Is(err, features.ErrNoFeatureRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}
	return rows, nil
}

func (p *Pipeline) stage(log zerolog.Logger, name string, fn func() error) error {
	start := p.clock()
	err := fn()
	d := p.clock().Sub(start)
	if p.metrics != nil {
		p.metrics.ObserveStage(name, d)
	}
	log.Debug().Str("stage", name).Dur("duration", d).Err(err).Msg("stage finished")
	return err
}

func (p *Pipeline) observeLoaded(source string, n int) {
	if p.metrics != nil {
		p.metrics.RowsLoaded.WithLabelValues(source).Set(float64(n))
	}
}

func (p *Pipeline) buildReport(r *Result, rows []*domain.FeatureRow) *reporting.Report {
	report := &reporting.Report{
		RunID:       r.RunID,
		GeneratedAt: p.clock(),
		DataVersion: r.DataVersion,
		DataSummary: reporting.DataSummary{
			Source:       r.Source,
			FallbackUsed: r.FallbackUsed,
			Assets:       r.Assets,
			PricePoints:  r.PricePoints,
			FeatureRows:  r.FeatureRows,
		},
		Recommendations: r.Recommendations,
		ArtifactPath:    r.ArtifactPath,
	}

	if len(rows) > 0 {
		first, last := rows[0].Date, rows[0].Date
		for _, row := range rows {
			if row.Date.Before(first) {
				first = row.Date
			}
			if row.Date.After(last) {
				last = row.Date
			}
		}
		report.DataSummary.DateRangeStart = first
		report.DataSummary.DateRangeEnd = last
	}

	if r.Sufficiency != nil {
		report.DataQuality.AllChecksPassed = r.Sufficiency.AllPass
		for _, c := range r.Sufficiency.Checks {
			report.DataQuality.SufficiencyChecks = append(report.DataQuality.SufficiencyChecks, reporting.SufficiencyCheckRow{
				Name:      c.Name,
				Threshold: c.Threshold,
				Actual:    c.Actual,
				Pass:      c.Pass,
			})
		}
	}

	if t := r.Train; t != nil {
		report.Model = reporting.ModelSection{
			Trees:       t.Trees,
			Features:    t.Features,
			TrainRows:   t.TrainRows,
			HoldoutRows: t.HoldoutRows,
			Holdout:     t.Holdout,
		}
	}
	return report
}

// computeDataVersion computes SHA256 hash of the price table for reproducibility.
func computeDataVersion(points []*domain.PricePoint) string {
	sorted := make([]*domain.PricePoint, len(points))
	copy(sorted, points)
	features.SortPoints(sorted)

	h := sha256.New()
	for _, pt := range sorted {
		fmt.Fprintf(h, "%d|%s|%.6f|%s|%d|%s|%s\n",
			pt.AssetID, pt.Date.Format("2006-01-02"), pt.Price, pt.Event, pt.Rating, pt.League, pt.Nation)
	}
	return hex.EncodeToString(h.Sum(nil))[:12] // short hash
}
