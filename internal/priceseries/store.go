package priceseries

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Store is a CSV-backed persistence layer for per-symbol price history,
// mirroring the source's DataStorage contract: create-on-first-write,
// append without rewriting the header.
type Store struct {
	dir string
}

// NewStore roots a Store at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("priceseries: create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(symbol string) string {
	return filepath.Join(s.dir, symbol+".csv")
}

// ReadCSV loads the stored series for symbol, returning nil if the file
// does not yet exist.
func (s *Store) ReadCSV(symbol string) ([]Point, error) {
	f, err := os.Open(s.path(symbol))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("priceseries: open %s: %w", symbol, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("priceseries: read %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	points := make([]Point, 0, len(rows)-1)
	for _, row := range rows[1:] { // skip header
		if len(row) < 2 {
			continue
		}
		t, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("priceseries: parse time %q: %w", row[0], err)
		}
		p, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("priceseries: parse price %q: %w", row[1], err)
		}
		points = append(points, Point{Time: t, Price: p})
	}
	return points, nil
}

// WriteCSV overwrites the file for symbol with header plus points.
func (s *Store) WriteCSV(symbol string, points []Point) error {
	f, err := os.Create(s.path(symbol))
	if err != nil {
		return fmt.Errorf("priceseries: create %s: %w", symbol, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"time", "price"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.Write(rowOf(p)); err != nil {
			return err
		}
	}
	return w.Error()
}

// AppendCSV appends rows without touching the header, creating the file
// (with a header) first if it does not exist.
func (s *Store) AppendCSV(symbol string, points []Point) error {
	if _, err := os.Stat(s.path(symbol)); os.IsNotExist(err) {
		return s.WriteCSV(symbol, points)
	}
	f, err := os.OpenFile(s.path(symbol), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("priceseries: open for append %s: %w", symbol, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	for _, p := range points {
		if err := w.Write(rowOf(p)); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteOrAppendCSV creates the file with a header when absent, otherwise
// appends without rewriting the header - the source's write_or_append_csv.
func (s *Store) WriteOrAppendCSV(symbol string, points []Point) error {
	if _, err := os.Stat(s.path(symbol)); os.IsNotExist(err) {
		return s.WriteCSV(symbol, points)
	}
	return s.AppendCSV(symbol, points)
}

func rowOf(p Point) []string {
	return []string{strconv.FormatInt(p.Time, 10), strconv.FormatFloat(p.Price, 'f', -1, 64)}
}

// OldestTime returns the earliest timestamp present, or 0 with ok=false
// when the series is empty.
func OldestTime(points []Point) (t int64, ok bool) {
	if len(points) == 0 {
		return 0, false
	}
	min := points[0].Time
	for _, p := range points[1:] {
		if p.Time < min {
			min = p.Time
		}
	}
	return min, true
}

// NewestTime returns the latest timestamp present, or 0 with ok=false
// when the series is empty.
func NewestTime(points []Point) (t int64, ok bool) {
	if len(points) == 0 {
		return 0, false
	}
	max := points[0].Time
	for _, p := range points[1:] {
		if p.Time > max {
			max = p.Time
		}
	}
	return max, true
}

// IsStale reports whether the freshest stored observation is more than
// one hour behind endTime, matching the source's staleness check.
func IsStale(points []Point, endTime int64) bool {
	newest, ok := NewestTime(points)
	if !ok {
		return true
	}
	const oneHour = 3600
	return newest < endTime-oneHour
}
