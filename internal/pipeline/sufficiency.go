package pipeline

import (
	"fmt"

	"fc-market-lab/internal/domain"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
}

// CheckSufficiency decides whether a loaded table is large enough to train on.
func CheckSufficiency(points []*domain.PricePoint, rows []*domain.FeatureRow, minRows int) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 3),
		AllPass: true,
	}

	add := func(c SufficiencyCheck) {
		result.Checks = append(result.Checks, c)
		if !c.Pass {
			result.AllPass = false
		}
	}

	// Check 1: price points loaded
	add(SufficiencyCheck{
		Name:      "Price points",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", len(points)),
		Pass:      len(points) > 0,
	})

	// Check 2: engineered rows with a forward target
	add(SufficiencyCheck{
		Name:      "Feature rows",
		Threshold: fmt.Sprintf(">= %d", minRows),
		Actual:    fmt.Sprintf("%d", len(rows)),
		Pass:      len(rows) > 0 && len(rows) >= minRows,
	})

	// Check 3: assets with at least one feature row
	assets := countAssets(rows)
	add(SufficiencyCheck{
		Name:      "Assets with forward target",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d of %d", assets, countPointAssets(points)),
		Pass:      assets > 0,
	})

	return result
}

func countAssets(rows []*domain.FeatureRow) int {
	seen := make(map[int64]struct{})
	for _, r := range rows {
		seen[r.AssetID] = struct{}{}
	}
	return len(seen)
}

func countPointAssets(points []*domain.PricePoint) int {
	seen := make(map[int64]struct{})
	for _, p := range points {
		seen[p.AssetID] = struct{}{}
	}
	return len(seen)
}
