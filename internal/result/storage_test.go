package result

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cora-sim/internal/metrics"
)

func TestWriteOrAppendCSVWritesHeaderOnceThenAppends(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	if err := s.WriteOrAppendCSV("metrics", []metrics.Metric{{"b": 2, "a": 1}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteOrAppendCSV("metrics", []metrics.Metric{{"b": 4, "a": 3}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "metrics.csv"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 1 header + 2 rows, got %d lines: %v", len(lines), lines)
	}
	if lines[0] != "a,b" {
		t.Fatalf("expected sorted header \"a,b\", got %q", lines[0])
	}
}

func TestWriteOrAppendCSVSkipsEmptyRows(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if err := s.WriteOrAppendCSV("metrics", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "metrics.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no file written for empty rows")
	}
}
