package priceseries

import (
	"errors"
	"math"
	"testing"
)

func samplePoints() []Point {
	return []Point{
		{Time: 0, Price: 100},
		{Time: 3600, Price: 101},
		{Time: 7200, Price: 99},
		{Time: 10800, Price: 102},
	}
}

func TestPreviousIndexClampsAndFindsRightmost(t *testing.T) {
	s := NewSeries(samplePoints())
	if p := s.PriceAt(-100); p != 100 {
		t.Fatalf("expected clamp to first point, got %f", p)
	}
	if p := s.PriceAt(3600); p != 101 {
		t.Fatalf("expected exact match, got %f", p)
	}
	if p := s.PriceAt(5000); p != 101 {
		t.Fatalf("expected rightmost <= t, got %f", p)
	}
	if p := s.PriceAt(999999); p != 102 {
		t.Fatalf("expected last point for future t, got %f", p)
	}
}

func TestHistoryInclusiveSlice(t *testing.T) {
	s := NewSeries(samplePoints())
	h := s.History(7200, 7200)
	if len(h) != 3 {
		t.Fatalf("expected 3 points in [0,7200], got %d", len(h))
	}
}

func TestEstimateVolatilityRequiresTwoPoints(t *testing.T) {
	_, err := EstimateVolatility([]Point{{Time: 0, Price: 1}}, 1.0)
	if err != ErrInsufficientHistory {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestEstimateVolatilityPositive(t *testing.T) {
	sigma, err := EstimateVolatility(samplePoints(), 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sigma <= 0 || math.IsNaN(sigma) {
		t.Fatalf("expected positive finite sigma, got %f", sigma)
	}
}

func TestValidateGranularityRejectsOver90Days(t *testing.T) {
	if err := ValidateGranularity(0, 91*86400); !errors.Is(err, ErrGranularityExceeded) {
		t.Fatalf("expected granularity error, got %v", err)
	}
	if err := ValidateGranularity(0, 89*86400); err != nil {
		t.Fatalf("expected no error under 90 days, got %v", err)
	}
}

func TestStoreWriteOrAppendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.WriteOrAppendCSV("BTC", samplePoints()[:2]); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := store.WriteOrAppendCSV("BTC", samplePoints()[2:]); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := store.ReadCSV("BTC")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 points round-tripped, got %d", len(got))
	}
}

func TestReadCSVMissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)
	points, err := store.ReadCSV("NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points != nil {
		t.Fatalf("expected nil for missing file, got %v", points)
	}
}
