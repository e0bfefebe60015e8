// Package main provides the training and ranking entry point.
// Executes: load → features → train → rank → artifact
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fc-market-lab/internal/config"
	"fc-market-lab/internal/logging"
	"fc-market-lab/internal/pipeline"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "configs/pipeline.yaml", "Path to YAML config (missing file = defaults)")
	source := flag.String("source", "", "Data source: csv, synthetic, postgres, clickhouse")
	dataPath := flag.String("data", "", "CSV price history path")
	outputPath := flag.String("output", "", "Recommendations artifact path")
	reportPath := flag.String("report", "", "Optional Markdown run report path")
	metricsPath := flag.String("metrics-textfile", "", "Optional Prometheus textfile path")
	seed := flag.Uint64("seed", 0, "Synthetic data seed")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags override file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source.Type = *source
		case "data":
			cfg.Source.DataPath = *dataPath
		case "output":
			cfg.Output.Path = *outputPath
		case "report":
			cfg.Output.MarkdownPath = *reportPath
		case "metrics-textfile":
			cfg.Metrics.TextfilePath = *metricsPath
		case "seed":
			cfg.Synthetic.Seed = *seed
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error validating config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, closeSource, err := pipeline.FromConfig(ctx, cfg, logger)
	defer closeSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating pipeline: %v\n", err)
		os.Exit(1)
	}

	result, err := p.Run(ctx)
	if err != nil {
		closeSource()
		fmt.Fprintf(os.Stderr, "Error running pipeline: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Pipeline completed:\n")
	fmt.Printf("  Run:             %s\n", result.RunID)
	fmt.Printf("  Source:          %s (fallback: %t)\n", result.Source, result.FallbackUsed)
	fmt.Printf("  Data version:    %s\n", result.DataVersion)
	fmt.Printf("  Price points:    %d\n", result.PricePoints)
	fmt.Printf("  Feature rows:    %d\n", result.FeatureRows)
	fmt.Printf("  Train/holdout:   %d/%d\n", result.Train.TrainRows, result.Train.HoldoutRows)
	if h := result.Train.Holdout; h != nil {
		fmt.Printf("  Holdout MAE:     %.6f (RMSE %.6f, R2 %.4f)\n", h.MAE, h.RMSE, h.R2)
	}
	fmt.Printf("  Recommendations: %d -> %s\n", len(result.Recommendations), result.ArtifactPath)
}
