package reporting

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/metrics"
)

func sampleRecs() []*domain.Recommendation {
	date := time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC)
	return []*domain.Recommendation{
		{
			AssetID: 7, AssetName: "Player_7", Rating: 88, League: "EPL", Nation: "ENG",
			Segment: domain.SegmentElite, Date: date, Price: 12345.678, PredPctChange7d: 0.0421,
			BuyBelow: 12501, TargetSell: 12865, ExpectedProfit: 519, Confidence: 0.83, Window: "7d",
		},
		{
			AssetID: 3, AssetName: "Smith, Jr.", Rating: 80, League: "SerieA", Nation: "ITA",
			Segment: domain.SegmentFodder, Date: date, Price: 900, PredPctChange7d: -0.01,
			BuyBelow: 897, TargetSell: 891, ExpectedProfit: -9, Confidence: 0.6, Window: "7d",
		},
	}
}

func TestRenderCSV_ColumnsAndValues(t *testing.T) {
	data, err := RenderCSV(sampleRecs())
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("artifact is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(ArtifactColumns, ",") {
		t.Errorf("header = %v", records[0])
	}

	want := []string{"7", "Player_7", "88", "", "EPL", "ENG", "elite", "2024-07-11",
		"12345.68", "0.042100", "12501", "12865", "519", "0.8300", "7d"}
	for i, v := range want {
		if records[1][i] != v {
			t.Errorf("column %s = %q, want %q", ArtifactColumns[i], records[1][i], v)
		}
	}
	if records[2][1] != "Smith, Jr." {
		t.Errorf("quoted name = %q", records[2][1])
	}
}

func TestRenderCSV_Deterministic(t *testing.T) {
	a, err := RenderCSV(sampleRecs())
	if err != nil {
		t.Fatal(err)
	}
	b, err := RenderCSV(sampleRecs())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("CSV output not deterministic")
	}
}

func TestRenderCSV_Empty(t *testing.T) {
	data, err := RenderCSV(nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != strings.Join(ArtifactColumns, ",") {
		t.Errorf("empty artifact should hold only the header, got %q", data)
	}
}

func TestWriteArtifact_CreatesAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "recommendations.csv")

	if err := WriteArtifact(path, sampleRecs()); err != nil {
		t.Fatalf("WriteArtifact failed: %v", err)
	}
	if err := WriteArtifact(path, sampleRecs()[:1]); err != nil {
		t.Fatalf("second WriteArtifact failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("lines = %d, want 2 (overwrite, not append)", lines)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomic_FailureLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory at the target path makes the final rename fail
	target := filepath.Join(dir, "recommendations.csv")
	if err := os.MkdirAll(filepath.Join(target, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(target, []byte("x\n")); err == nil {
		t.Fatal("expected rename failure")
	}

	if _, err := os.Stat(filepath.Join(target, "keep")); err != nil {
		t.Errorf("existing target modified: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	r := &Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DataVersion: "abcdef012345",
		DataSummary: DataSummary{Source: "synthetic", FallbackUsed: true, Assets: 50, PricePoints: 10000, FeatureRows: 9650},
		DataQuality: DataQualitySection{
			SufficiencyChecks: []SufficiencyCheckRow{{Name: "feature_rows", Threshold: ">= 100", Actual: "12", Pass: false}},
		},
		Model: ModelSection{Trees: 100, Features: 16, TrainRows: 80, HoldoutRows: 20,
			Holdout: &metrics.Evaluation{MAE: 0.01, RMSE: 0.02, R2: 0.5}},
		Recommendations: sampleRecs(),
		ArtifactPath:    "output/recommendations.csv",
	}

	md := RenderMarkdown(r)
	for _, want := range []string{
		"# Market Forecast Report",
		"Generated: 2024-01-01T00:00:00Z",
		"Data version: abcdef012345",
		"## Data Summary",
		"| Synthetic Fallback | true |",
		"| feature_rows | >= 100 | 12 | FAIL |",
		"**Some checks failed.**",
		"## Model",
		"| 0.010000 | 0.020000 | 0.5000 |",
		"## Recommendations",
		"| 1 | Player_7 | 88 |",
		"Artifact: `output/recommendations.csv`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	if RenderMarkdown(r) != md {
		t.Error("markdown output not deterministic")
	}
}

func TestRenderRecommendations_Empty(t *testing.T) {
	if got := RenderRecommendations(nil); got != "No recommendations available.\n" {
		t.Errorf("got %q", got)
	}
}

func TestRenderRecommendations_EscapesPipes(t *testing.T) {
	recs := sampleRecs()[:1]
	recs[0].AssetName = "A|B"
	if md := RenderRecommendations(recs); !strings.Contains(md, `A\|B`) {
		t.Errorf("pipe not escaped: %s", md)
	}
}
