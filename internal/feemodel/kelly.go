package feemodel

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// KellyCurve is one (a,b,c,d) cell of the Kelly grid:
// f(u) = a*u*cosh(b*u^c) + d, defined on u in [0,1].
type KellyCurve struct {
	A, B, C, D float64
}

// Evaluate computes f(u), rejecting u outside [0,1] per spec §4.3.3.
func (c KellyCurve) Evaluate(u float64) (float64, error) {
	if u < 0 || u > 1 {
		return 0, fmt.Errorf("%w: u=%f", ErrKellyDomain, u)
	}
	return c.A*u*math.Cosh(c.B*math.Pow(u, c.C)) + c.D, nil
}

// GridKey indexes the grid by (ltv, expiration days).
type GridKey struct {
	LTV  float64
	Days int
}

// CurveGenerator is the out-of-scope external library that fits a Kelly
// curve per (ltv, expiration) configuration from historical price data;
// only this input/output contract is assumed (spec §1, §4.3.3).
type CurveGenerator interface {
	GenerateCurves(ctx context.Context, history []HistoryPointForGeneration, configs []CurveConfig) (map[GridKey]KellyCurve, error)
}

// HistoryPointForGeneration is the (time, price) pair handed to the
// external curve generator.
type HistoryPointForGeneration struct {
	Time  int64
	Price float64
}

// CurveConfig is one (ltv, expiration_days) cell requested from the
// generator.
type CurveConfig struct {
	LTV  float64
	Days int
}

// KellyParams holds the fitted grid.
type KellyParams struct {
	Grid map[GridKey]KellyCurve
}

// Kelly looks up a curve from a grid generated externally and evaluates
// it at the requested utilization, snapping ltv/days to the grid.
type Kelly struct {
	params    KellyParams
	generator CurveGenerator
}

// NewKelly constructs a Kelly model that calls generator to (re)build its
// grid on GetParameters.
func NewKelly(generator CurveGenerator) *Kelly {
	return &Kelly{generator: generator}
}

func (m *Kelly) GetParameters(env Environment, opts Options) (Params, error) {
	lookback := time.Duration(opts.LookbackDays) * 24 * time.Hour
	points := env.History(int64(lookback.Seconds()))
	if len(points) < 2 {
		return Params{}, ErrInsufficientHistory
	}

	days := expirationDayList(opts.IntervalDays, opts.MaxExpirationDays)
	configs := make([]CurveConfig, 0, len(opts.LtvValues)*len(days))
	for _, ltv := range opts.LtvValues {
		for _, d := range days {
			configs = append(configs, CurveConfig{LTV: ltv, Days: d})
		}
	}

	history := make([]HistoryPointForGeneration, len(points))
	for i, p := range points {
		history[i] = HistoryPointForGeneration{Time: p.Time, Price: p.Price}
	}

	grid, err := m.generator.GenerateCurves(context.Background(), history, configs)
	if err != nil {
		return Params{}, fmt.Errorf("feemodel: generate kelly curves: %w", err)
	}
	return Params{Kelly: &KellyParams{Grid: grid}}, nil
}

// expirationDayList builds [interval, 2*interval, ...] until the value is
// >= maxExpirationDays, matching spec §4.3.3.
func expirationDayList(interval, max int) []int {
	if interval <= 0 {
		return nil
	}
	var days []int
	for d := interval; ; d += interval {
		days = append(days, d)
		if d >= max {
			break
		}
	}
	return days
}

func (m *Kelly) UpdateParameters(p Params) {
	if p.Kelly != nil {
		m.params = *p.Kelly
	}
}

func (m *Kelly) GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error) {
	days := int(loanPeriod.Hours() / 24)
	curve, err := m.selectCurve(ltv, days)
	if err != nil {
		return 0, err
	}
	return curve.Evaluate(utilization)
}

// selectCurve snaps ltv and days independently to the smallest grid key
// >= the requested value, falling back to the largest grid value when
// none is larger (spec §4.3.3's select_next_highest).
func (m *Kelly) selectCurve(ltv float64, days int) (KellyCurve, error) {
	ltvValues, dayValues := m.gridAxes()
	if len(ltvValues) == 0 || len(dayValues) == 0 {
		return KellyCurve{}, fmt.Errorf("feemodel: kelly grid is empty")
	}
	snappedLTV := selectNextHighestFloat(ltvValues, ltv)
	snappedDays := selectNextHighestInt(dayValues, days)
	curve, ok := m.params.Grid[GridKey{LTV: snappedLTV, Days: snappedDays}]
	if !ok {
		return KellyCurve{}, fmt.Errorf("feemodel: no kelly curve for ltv=%f days=%d", snappedLTV, snappedDays)
	}
	return curve, nil
}

func (m *Kelly) gridAxes() ([]float64, []int) {
	ltvSet := map[float64]struct{}{}
	daySet := map[int]struct{}{}
	for k := range m.params.Grid {
		ltvSet[k.LTV] = struct{}{}
		daySet[k.Days] = struct{}{}
	}
	ltvValues := make([]float64, 0, len(ltvSet))
	for v := range ltvSet {
		ltvValues = append(ltvValues, v)
	}
	sort.Float64s(ltvValues)
	dayValues := make([]int, 0, len(daySet))
	for v := range daySet {
		dayValues = append(dayValues, v)
	}
	sort.Ints(dayValues)
	return ltvValues, dayValues
}

func selectNextHighestFloat(sorted []float64, target float64) float64 {
	for _, v := range sorted {
		if v >= target {
			return v
		}
	}
	return sorted[len(sorted)-1]
}

func selectNextHighestInt(sorted []int, target int) int {
	for _, v := range sorted {
		if v >= target {
			return v
		}
	}
	return sorted[len(sorted)-1]
}
