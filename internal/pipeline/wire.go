package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"fc-market-lab/internal/config"
	"fc-market-lab/internal/features"
	"fc-market-lab/internal/model"
	"fc-market-lab/internal/observability"
	"fc-market-lab/internal/provider"
	"fc-market-lab/internal/ranking"
	"fc-market-lab/internal/storage/clickhouse"
	"fc-market-lab/internal/storage/postgres"
)

// SyntheticConfig converts the config section to generator settings.
func SyntheticConfig(c config.SyntheticConfig) provider.SyntheticConfig {
	return provider.SyntheticConfig{
		Seed:             c.Seed,
		Assets:           c.Assets,
		Days:             c.Days,
		Start:            c.StartTime(),
		EventProbability: c.EventProbability,
		NoiseStdDev:      c.NoiseStdDev,
		MinBasePrice:     c.MinBasePrice,
		MaxBasePrice:     c.MaxBasePrice,
		PriceFloor:       c.PriceFloor,
		MinRating:        c.MinRating,
		MaxRating:        c.MaxRating,
		Leagues:          c.Leagues,
		Nations:          c.Nations,
	}
}

// OpenSource creates the configured primary source. The returned close
// function releases database connections and is never nil.
func OpenSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (provider.Source, func(), error) {
	noop := func() {}

	switch cfg.Source.Type {
	case config.SourceCSV:
		return provider.NewCSVSource(cfg.Source.DataPath).WithLogger(logger), noop, nil

	case config.SourceSynthetic:
		return provider.NewSyntheticSource(SyntheticConfig(cfg.Synthetic)), noop, nil

	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Source.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return provider.NewStoreSource("postgres", postgres.NewPricePointStore(pool)), pool.Close, nil

	case config.SourceClickhouse:
		conn, err := clickhouse.NewConn(ctx, cfg.Source.ClickhouseDSN)
		if err != nil {
			return nil, noop, err
		}
		return provider.NewStoreSource("clickhouse", clickhouse.NewPricePointStore(conn)), func() { _ = conn.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

// FromConfig assembles a pipeline from configuration.
func FromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Pipeline, func(), error) {
	source, closeFn, err := OpenSource(ctx, cfg, logger)
	if err != nil {
		return nil, closeFn, fmt.Errorf("open source: %w", err)
	}

	trainer := model.NewTrainer().WithLogger(logger)
	trainer.Forest = model.ForestParams{
		Trees:   cfg.Model.Trees,
		Seed:    cfg.Model.Seed,
		Workers: cfg.Model.Workers,
		Tree: model.TreeParams{
			MaxDepth:       cfg.Model.MaxDepth,
			MinSamplesLeaf: cfg.Model.MinSamplesLeaf,
			MaxFeatures:    cfg.Model.MaxFeatures,
		},
	}
	trainer.MinRowsForHoldout = cfg.Model.MinRowsForHoldout
	trainer.TestFraction = cfg.Model.TestFraction
	trainer.SplitSeed = cfg.Model.Seed

	var fallback provider.Source
	if cfg.Sufficiency.FallbackToSynthetic && cfg.Source.Type != config.SourceSynthetic {
		fallback = provider.NewSyntheticSource(SyntheticConfig(cfg.Synthetic))
	}

	p := New(source, cfg.Output.Path).
		WithFallback(fallback).
		WithEngineer(&features.Engineer{
			Horizon:     cfg.Features.Horizon,
			ShortWindow: cfg.Features.ShortWindow,
			LongWindow:  cfg.Features.LongWindow,
		}).
		WithTrainer(trainer).
		WithRanker(&ranking.Ranker{
			TopK:    cfg.Ranking.TopK,
			Damping: cfg.Ranking.Damping,
			Window:  cfg.Ranking.Window,
		}).
		WithMinRealRows(cfg.Sufficiency.MinRealRows).
		WithReportPath(cfg.Output.MarkdownPath).
		WithMetrics(observability.NewMetrics(cfg.Metrics.Namespace), cfg.Metrics.TextfilePath).
		WithLogger(logger)

	return p, closeFn, nil
}
