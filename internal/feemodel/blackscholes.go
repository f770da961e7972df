package feemodel

import (
	"math"
	"time"

	"cora-sim/internal/priceseries"
)

// BlackScholesParams holds the put-premium model's fitted parameters.
type BlackScholesParams struct {
	Volatility       float64
	RiskFreeRate     float64
	UtilizationCurve func(float64) float64
}

// BlackScholes prices the borrowing fee as a put option premium on the
// collateral, struck at the loan's LTV.
type BlackScholes struct {
	params BlackScholesParams
}

// NewBlackScholes constructs a model with the identity utilization curve
// until UpdateParameters supplies one.
func NewBlackScholes() *BlackScholes {
	return &BlackScholes{params: BlackScholesParams{UtilizationCurve: identityCurve}}
}

func identityCurve(float64) float64 { return 1 }

func (m *BlackScholes) GetParameters(env Environment, opts Options) (Params, error) {
	lookback := time.Duration(opts.LookbackDays) * 24 * time.Hour
	points := env.History(int64(lookback.Seconds()))
	sigma, err := priceseries.EstimateVolatility(points, valueOr(opts.VolatilityFactor, 1))
	if err != nil {
		return Params{}, err
	}
	curve := opts.UtilizationCurve
	if curve == nil {
		curve = identityCurve
	}
	return Params{BlackScholes: &BlackScholesParams{
		Volatility:       sigma,
		RiskFreeRate:     opts.RiskFreeRate,
		UtilizationCurve: curve,
	}}, nil
}

func valueOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func (m *BlackScholes) UpdateParameters(p Params) {
	if p.BlackScholes != nil {
		m.params = *p.BlackScholes
	}
}

// GetFee prices a put option with spot=1, strike=ltv, dividend yield 0.
func (m *BlackScholes) GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error) {
	tau := checkDivZero(loanPeriod.Hours() / 24 / 365)
	sigma := checkDivZero(m.params.Volatility)
	r := m.params.RiskFreeRate

	sqrtTau := math.Sqrt(tau)
	d1 := (math.Log(1/ltv) + (r+sigma*sigma/2)*tau) / (sigma * sqrtTau)
	d2 := d1 - sigma*sqrtTau

	put := ltv*math.Exp(-r*tau)*normCDF(-d2) - normCDF(-d1)

	curve := m.params.UtilizationCurve
	if curve == nil {
		curve = identityCurve
	}
	return put * curve(utilization), nil
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// checkDivZero mirrors the source's guard against an exact-zero divisor.
func checkDivZero(v float64) float64 {
	if v == 0 {
		return 1e-10
	}
	return v
}
