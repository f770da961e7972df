package result

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cora-sim/internal/metrics"
)

// Storage writes named CSV files under one run's result directory,
// mirroring data_storage.py's DataStorage: a fresh file gets a header
// row, an existing one is appended to.
type Storage struct {
	dir string
}

// NewStorage creates (if needed) and wraps a run's result directory.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("result: create storage dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// WriteOrAppendCSV writes rows to <dir>/<name>.csv, writing a header if
// the file does not yet exist.
func (s *Storage) WriteOrAppendCSV(name string, rows []metrics.Metric) error {
	if len(rows) == 0 {
		return nil
	}
	path := filepath.Join(s.dir, name+".csv")

	_, err := os.Stat(path)
	exists := err == nil

	flags := os.O_CREATE | os.O_WRONLY
	if exists {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("result: open %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	fields := fieldNames(rows[0])
	if !exists {
		if err := w.Write(fields); err != nil {
			return fmt.Errorf("result: write header for %s: %w", name, err)
		}
	}
	for _, row := range rows {
		record := make([]string, len(fields))
		for i, f := range fields {
			record[i] = fmt.Sprintf("%v", row[f])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("result: write row for %s: %w", name, err)
		}
	}
	return nil
}

// fieldNames returns m's keys in sorted order, so every row in a CSV
// file lines up under the same header regardless of map iteration order.
func fieldNames(m metrics.Metric) []string {
	fields := make([]string, 0, len(m))
	for k := range m {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
