// Package main displays the current recommendations, running the pipeline
// first when no artifact exists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fc-market-lab/internal/config"
	"fc-market-lab/internal/consumer"
	"fc-market-lab/internal/logging"
	"fc-market-lab/internal/reporting"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "configs/pipeline.yaml", "Path to YAML config (missing file = defaults)")
	artifactPath := flag.String("artifact", "", "Recommendations artifact path (default from config)")
	pipelineCmd := flag.String("pipeline-cmd", "go run ./cmd/pipeline", "Command that produces the artifact")
	output := flag.String("output", "", "Write the Markdown table here instead of stdout")
	force := flag.Bool("force", false, "Rerun the pipeline even when the artifact exists")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *artifactPath == "" {
		*artifactPath = cfg.Output.Path
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	parts := strings.Fields(*pipelineCmd)
	if len(parts) == 0 {
		fmt.Fprintf(os.Stderr, "Error: --pipeline-cmd is empty\n")
		os.Exit(1)
	}
	args := append(parts[1:], "-config", *configPath, "-output", *artifactPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launcher := consumer.NewLauncher(*artifactPath, parts[0], args...).WithLogger(logger)
	launcher.Force = *force

	recs, err := launcher.Ensure(ctx)
	if err != nil {
		var pe *consumer.PipelineError
		if errors.As(err, &pe) && pe.Stderr != "" {
			fmt.Fprintln(os.Stderr, pe.Stderr)
		}
		fmt.Fprintf(os.Stderr, "Error loading recommendations: %v\n", err)
		os.Exit(1)
	}

	table := reporting.RenderRecommendations(recs)
	if *output == "" {
		fmt.Print(table)
		return
	}
	if err := reporting.WriteFileAtomic(*output, []byte(table)); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("Recommendations written to %s (%d rows)\n", *output, len(recs))
}
