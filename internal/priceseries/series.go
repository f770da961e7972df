// Package priceseries implements the historical price series plus its
// geometric-Brownian continuation, and the on-disk CSV store backing it.
package priceseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInsufficientHistory is returned when fewer than two price points are
// available to estimate a volatility (spec §7 numerical domain errors).
var ErrInsufficientHistory = errors.New("priceseries: need at least 2 historical points")

// ErrGranularityExceeded is returned when a market-chart fetch spans more
// than 90 days (spec §6).
var ErrGranularityExceeded = errors.New("priceseries: market-chart range exceeds 90 days")

// Point is one (unix-second timestamp, price) observation.
type Point struct {
	Time  int64
	Price float64
}

// Series is a chronologically sorted hourly price sequence.
type Series struct {
	points []Point
}

// NewSeries wraps an already-sorted point slice. Callers that build a
// series incrementally should use Append, which maintains sort order.
func NewSeries(points []Point) *Series {
	s := &Series{points: append([]Point(nil), points...)}
	sort.Slice(s.points, func(i, j int) bool { return s.points[i].Time < s.points[j].Time })
	return s
}

// Append adds a point, keeping the series sorted. Callers append in
// increasing time order in the common case, so this is O(1) amortized;
// an out-of-order append falls back to a full re-sort.
func (s *Series) Append(p Point) {
	if n := len(s.points); n > 0 && p.Time < s.points[n-1].Time {
		s.points = append(s.points, p)
		sort.Slice(s.points, func(i, j int) bool { return s.points[i].Time < s.points[j].Time })
		return
	}
	s.points = append(s.points, p)
}

// Len reports the number of points in the series.
func (s *Series) Len() int { return len(s.points) }

// Points returns the underlying point slice. Callers must not mutate it.
func (s *Series) Points() []Point { return s.points }

// Last returns the most recent point. Panics if the series is empty;
// callers must check Len first.
func (s *Series) Last() Point { return s.points[len(s.points)-1] }

// previousIndex returns the rightmost index whose timestamp is <= t,
// clamped to 0 when t precedes every point in the series.
func (s *Series) previousIndex(t int64) int {
	idx := sort.Search(len(s.points), func(i int) bool { return s.points[i].Time > t })
	idx--
	if idx < 0 {
		idx = 0
	}
	return idx
}

// PriceAt returns the price at time t using previous-index lookup
// (rightmost observation at or before t, clamped to the earliest point).
func (s *Series) PriceAt(t int64) float64 {
	return s.points[s.previousIndex(t)].Price
}

// PricesAt vectorises PriceAt over a list of timestamps.
func (s *Series) PricesAt(ts []int64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = s.PriceAt(t)
	}
	return out
}

// History returns the inclusive slice of points with Time in [t-delta, t].
func (s *Series) History(t int64, delta int64) []Point {
	from := t - delta
	startIdx := sort.Search(len(s.points), func(i int) bool { return s.points[i].Time >= from })
	endIdx := sort.Search(len(s.points), func(i int) bool { return s.points[i].Time > t })
	if startIdx >= endIdx {
		return nil
	}
	return s.points[startIdx:endIdx]
}

// LogReturns computes ln(p[i+1]/p[i]) over the whole series.
func (s *Series) LogReturns() []float64 {
	if len(s.points) < 2 {
		return nil
	}
	out := make([]float64, len(s.points)-1)
	for i := 0; i < len(s.points)-1; i++ {
		out[i] = math.Log(s.points[i+1].Price / s.points[i].Price)
	}
	return out
}

// MeanStd returns the sample mean and population standard deviation of
// values, matching the source's numpy-default ddof=0 behavior.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(values)))
	return mean, std
}

// EstimateVolatility reproduces the Black-Scholes model's sigma
// estimator: periods_per_year derived from the observed cadence of the
// return series, scaled by volatilityFactor.
func EstimateVolatility(points []Point, volatilityFactor float64) (float64, error) {
	if len(points) < 2 {
		return 0, ErrInsufficientHistory
	}
	series := NewSeries(points)
	returns := series.LogReturns()
	var sumSq float64
	for _, r := range returns {
		sumSq += r * r
	}
	spanDays := float64(points[len(points)-1].Time-points[0].Time) / 86400.0
	spanDays = checkDivZero(spanDays)
	periodsPerYear := float64(len(returns)) / (spanDays / 365.0)
	n := checkDivZero(float64(len(returns)))
	sigma := math.Sqrt(periodsPerYear/n*sumSq) * volatilityFactor
	return sigma, nil
}

// checkDivZero mirrors the source's guard: an exact-zero divisor is
// replaced with 1e-10 before use.
func checkDivZero(v float64) float64 {
	if v == 0 {
		return 1e-10
	}
	return v
}

// ValidateGranularity enforces the 90-day cap on market-chart range
// requests (spec §6).
func ValidateGranularity(fromUnix, toUnix int64) error {
	days := float64(toUnix-fromUnix) / 86400.0
	if days > 90 {
		return fmt.Errorf("%w: requested %.1f days", ErrGranularityExceeded, days)
	}
	return nil
}
