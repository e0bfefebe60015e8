package reporting

import (
	"time"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/metrics"
)

// Report represents the run report of one pipeline execution.
type Report struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time
	DataVersion string // sha256 prefix of the price table

	// Data Summary
	DataSummary DataSummary

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Model
	Model ModelSection

	// Recommendations (ranked, descending prediction)
	Recommendations []*domain.Recommendation

	ArtifactPath string
}

// DataSummary contains data description.
type DataSummary struct {
	Source         string // data source actually used
	FallbackUsed   bool
	Assets         int
	PricePoints    int
	FeatureRows    int
	DateRangeStart time.Time
	DateRangeEnd   time.Time
}

// DataQualitySection contains data sufficiency checks.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// ModelSection describes the fitted model.
type ModelSection struct {
	Trees       int
	Features    int
	TrainRows   int
	HoldoutRows int
	Holdout     *metrics.Evaluation // nil when no holdout was drawn
}
