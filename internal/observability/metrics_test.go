package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func exportText(t *testing.T, m *Metrics) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textfile", "fc.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics("")
	b := NewMetrics("")

	a.RecordPipelineRun("success")
	a.RecordPipelineRun("failure")
	a.RecordPipelineRun("success")

	outA := exportText(t, a)
	if !strings.Contains(outA, `fc_market_lab_pipeline_runs_total{status="success"} 2`) {
		t.Errorf("success runs not recorded:\n%s", outA)
	}
	if strings.Contains(outA, "fc_market_lab_health_last_successful_pipeline_timestamp 0\n") {
		t.Error("last success timestamp not set")
	}

	outB := exportText(t, b)
	if strings.Contains(outB, "fc_market_lab_pipeline_runs_total{") {
		t.Errorf("second registry shares state:\n%s", outB)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics("test_lab")
	m.ObserveStage("train", 1500*time.Millisecond)
	m.FallbackTotal.Inc()
	m.HoldoutMAE.Set(0.0123)

	out := exportText(t, m)
	for _, want := range []string{
		"test_lab_pipeline_synthetic_fallback_total 1",
		"test_lab_model_holdout_mae 0.0123",
		`test_lab_pipeline_stage_duration_seconds_count{stage="train"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}
