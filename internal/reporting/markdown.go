package reporting

import (
	"fmt"
	"strings"
	"time"

	"fc-market-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Market Forecast Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s | Data version: %s\n\n", r.RunID, r.DataVersion))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Source | %s |\n", r.DataSummary.Source))
	sb.WriteString(fmt.Sprintf("| Synthetic Fallback | %t |\n", r.DataSummary.FallbackUsed))
	sb.WriteString(fmt.Sprintf("| Assets | %d |\n", r.DataSummary.Assets))
	sb.WriteString(fmt.Sprintf("| Price Points | %d |\n", r.DataSummary.PricePoints))
	sb.WriteString(fmt.Sprintf("| Feature Rows | %d |\n", r.DataSummary.FeatureRows))
	if !r.DataSummary.DateRangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| Date Range | %s .. %s |\n",
			r.DataSummary.DateRangeStart.Format("2006-01-02"),
			r.DataSummary.DateRangeEnd.Format("2006-01-02")))
	}
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.**\n\n")
		}
	} else {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Model
	sb.WriteString("## Model\n\n")
	sb.WriteString(fmt.Sprintf("Trees: %d | Features: %d | Train rows: %d | Holdout rows: %d\n\n",
		r.Model.Trees, r.Model.Features, r.Model.TrainRows, r.Model.HoldoutRows))
	if h := r.Model.Holdout; h != nil {
		sb.WriteString("| MAE | RMSE | R2 | Median AE | Directional |\n")
		sb.WriteString("|-----|------|----|-----------|-------------|\n")
		sb.WriteString(fmt.Sprintf("| %.6f | %.6f | %.4f | %.6f | %.4f |\n\n",
			h.MAE, h.RMSE, h.R2, h.MedianAbsError, h.DirectionalAccuracy))
	} else {
		sb.WriteString("No holdout evaluation (all rows used for fitting).\n\n")
	}

	// Recommendations
	sb.WriteString("## Recommendations\n\n")
	sb.WriteString(RenderRecommendations(r.Recommendations))
	sb.WriteString("\n")

	if r.ArtifactPath != "" {
		sb.WriteString(fmt.Sprintf("Artifact: `%s`\n", r.ArtifactPath))
	}

	return sb.String()
}

// RenderRecommendations renders a Markdown table of recommendations.
func RenderRecommendations(recs []*domain.Recommendation) string {
	if len(recs) == 0 {
		return "No recommendations available.\n"
	}

	var sb strings.Builder
	sb.WriteString("| # | Player | Rating | League | Nation | Segment | Price | Pred 7d | Buy Below | Target Sell | Profit | Confidence |\n")
	sb.WriteString("|---|--------|--------|--------|--------|---------|-------|---------|-----------|-------------|--------|------------|\n")
	for i, r := range recs {
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %s | %s | %.0f | %+.2f%% | %d | %d | %d | %.2f |\n",
			i+1, escapeCell(r.AssetName), r.Rating, escapeCell(r.League), escapeCell(r.Nation), orDash(string(r.Segment)),
			r.Price, r.PredPctChange7d*100, r.BuyBelow, r.TargetSell, r.ExpectedProfit, r.Confidence))
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
