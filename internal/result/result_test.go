package result

import (
	"os"
	"path/filepath"
	"testing"

	"cora-sim/internal/agents"
	"cora-sim/internal/config"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/metrics"
)

func TestNewWriterSkipsDiskWhenAllTogglesOff(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter("run-1", config.ResultConfig{ResultsFolder: dir})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if err := w.AddStepMetrics(metrics.Metric{"a": 1}); err != nil {
		t.Fatalf("add step metrics: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files written when all toggles are off, found %v", entries)
	}
	if len(w.Result().StepMetrics) != 1 {
		t.Fatalf("expected the record to still be kept in memory")
	}
}

func TestNewWriterWritesStepMetricsCSVWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ResultConfig{ResultsFolder: dir, WriteStepMetrics: true}
	w, err := NewWriter("run-2", cfg)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if err := w.AddStepMetrics(metrics.Metric{"tick": 0, "price": 100.0}); err != nil {
		t.Fatalf("add step metrics: %v", err)
	}
	if err := w.AddStepMetrics(metrics.Metric{"tick": 1, "price": 101.0}); err != nil {
		t.Fatalf("add step metrics: %v", err)
	}

	path := filepath.Join(dir, "run-2", "step_metrics.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty csv")
	}
}

func TestAddEventToLogRecordsInMemoryRegardlessOfLogToggle(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter("run-3", config.ResultConfig{ResultsFolder: dir})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	w.AddEventToLog(lendingpool.Event{Message: "genesis ended", Type: lendingpool.EventGenesisEnded})
	w.AddActionToLog(agents.Action{Message: "borrowed", AgentID: "borrower_000000", Type: agents.ActionBorrow})

	if len(w.Result().EventLog) != 1 {
		t.Fatalf("expected 1 event in the log")
	}
	if len(w.Result().ActionLog) != 1 {
		t.Fatalf("expected 1 action in the log")
	}
}
