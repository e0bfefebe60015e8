// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// Metrics are registered on a private registry, never the global one.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	FallbackTotal     prometheus.Counter

	// Data metrics
	RowsLoaded           *prometheus.GaugeVec
	FeatureRows          prometheus.Gauge
	SkippedRows          prometheus.Gauge
	RecommendationsTotal prometheus.Counter

	// Model metrics
	HoldoutMAE  prometheus.Gauge
	HoldoutRMSE prometheus.Gauge
	HoldoutR2   prometheus.Gauge

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge

	// Ingest metrics
	PointsIngested *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fc_market_lab"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		FallbackTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "synthetic_fallback_total",
			Help:      "Total number of runs that fell back to synthetic data",
		}),

		// Data metrics
		RowsLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "price_points_loaded",
			Help:      "Price points loaded in the last run by source",
		}, []string{"source"}),
		FeatureRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "feature_rows",
			Help:      "Feature rows engineered in the last run",
		}),
		SkippedRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "dropped_rows",
			Help:      "Price points without a forward target in the last run",
		}),
		RecommendationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "recommendations_written_total",
			Help:      "Total number of recommendations written to the artifact",
		}),

		// Model metrics
		HoldoutMAE: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "holdout_mae",
			Help:      "Holdout mean absolute error of the last fitted model",
		}),
		HoldoutRMSE: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "holdout_rmse",
			Help:      "Holdout root mean squared error of the last fitted model",
		}),
		HoldoutR2: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "holdout_r2",
			Help:      "Holdout coefficient of determination of the last fitted model",
		}),

		// Health metrics
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),

		// Ingest metrics
		PointsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "points_ingested_total",
			Help:      "Total number of price points written to a store",
		}, []string{"store"}),
	}
}

// RecordPipelineRun records a pipeline run result.
func (m *Metrics) RecordPipelineRun(status string) {
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.LastSuccessfulPipeline.SetToCurrentTime()
	}
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile exports the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
