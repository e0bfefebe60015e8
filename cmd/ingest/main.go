// Package main loads a price history into PostgreSQL and/or ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"fc-market-lab/internal/config"
	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/logging"
	"fc-market-lab/internal/observability"
	"fc-market-lab/internal/pipeline"
	"fc-market-lab/internal/provider"
	"fc-market-lab/internal/storage"
	chstore "fc-market-lab/internal/storage/clickhouse"
	"fc-market-lab/internal/storage/migrations"
	pgstore "fc-market-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "configs/pipeline.yaml", "Path to YAML config (missing file = defaults)")
	source := flag.String("source", "csv", "Input: csv or synthetic")
	dataPath := flag.String("data", "", "CSV price history path (default from config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	migrate := flag.Bool("migrate", true, "Apply embedded migrations before inserting")
	batchSize := flag.Int("batch-size", 5000, "Points per InsertBulk call")
	metricsPath := flag.String("metrics-textfile", "", "Optional Prometheus textfile path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Source.DataPath = *dataPath
	}
	if *postgresDSN == "" {
		*postgresDSN = cfg.Source.PostgresDSN
	}
	if *clickhouseDSN == "" {
		*clickhouseDSN = cfg.Source.ClickhouseDSN
	}
	if *postgresDSN == "" && *clickhouseDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: at least one of --postgres-dsn or --clickhouse-dsn is required\n")
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With().Str("component", "ingest").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var src provider.Source
	switch *source {
	case config.SourceCSV:
		src = provider.NewCSVSource(cfg.Source.DataPath).WithLogger(logger)
	case config.SourceSynthetic:
		src = provider.NewSyntheticSource(pipeline.SyntheticConfig(cfg.Synthetic))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown source %q\n", *source)
		os.Exit(1)
	}

	points, err := src.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", src.Name(), err)
		os.Exit(1)
	}

	m := observability.NewMetrics(cfg.Metrics.Namespace)

	if *postgresDSN != "" {
		if err := ingestPostgres(ctx, logger, m, *postgresDSN, *migrate, points, *batchSize); err != nil {
			fmt.Fprintf(os.Stderr, "Error ingesting into postgres: %v\n", err)
			os.Exit(1)
		}
	}
	if *clickhouseDSN != "" {
		if err := ingestClickhouse(ctx, logger, m, *clickhouseDSN, *migrate, points, *batchSize); err != nil {
			fmt.Fprintf(os.Stderr, "Error ingesting into clickhouse: %v\n", err)
			os.Exit(1)
		}
	}

	if *metricsPath != "" {
		if err := m.WriteTextfile(*metricsPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Ingested %d points from %s\n", len(points), src.Name())
}

func ingestPostgres(ctx context.Context, logger zerolog.Logger, m *observability.Metrics, dsn string, migrate bool, points []*domain.PricePoint, batchSize int) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return insertBatches(ctx, logger, m, "postgres", pgstore.NewPricePointStore(pool), points, batchSize)
}

func ingestClickhouse(ctx context.Context, logger zerolog.Logger, m *observability.Metrics, dsn string, migrate bool, points []*domain.PricePoint, batchSize int) error {
	var conn *chstore.Conn
	var err error
	if migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	} else {
		conn, err = chstore.NewConn(ctx, dsn)
		if err != nil {
			return err
		}
	}
	defer conn.Close()

	return insertBatches(ctx, logger, m, "clickhouse", chstore.NewPricePointStore(conn), points, batchSize)
}

func insertBatches(ctx context.Context, logger zerolog.Logger, m *observability.Metrics, name string, store storage.PricePointStore, points []*domain.PricePoint, batchSize int) error {
	if batchSize <= 0 {
		batchSize = len(points)
	}
	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))
		if err := store.InsertBulk(ctx, points[start:end]); err != nil {
			return fmt.Errorf("insert points %d-%d: %w", start, end, err)
		}
		m.PointsIngested.WithLabelValues(name).Add(float64(end - start))
	}

	total, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	logger.Info().Str("store", name).Int("inserted", len(points)).Int("total", total).Msg("ingest complete")
	return nil
}
