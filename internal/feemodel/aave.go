package feemodel

import "time"

// AaveParams holds the Aave-style kink-curve parameters.
type AaveParams struct {
	OptimalUtilization float64
	BaseRate           float64
	RateSlope1         float64
	RateSlope2         float64
}

// Aave is the piecewise-linear kink-curve model.
type Aave struct {
	params AaveParams
}

// NewAave constructs an Aave model with the given static parameters.
func NewAave(p AaveParams) *Aave {
	return &Aave{params: p}
}

// GetParameters returns the static configured parameters unchanged; the
// Aave model has no environment-derived fitting step.
func (m *Aave) GetParameters(env Environment, opts Options) (Params, error) {
	return Params{Aave: &m.params}, nil
}

func (m *Aave) UpdateParameters(p Params) {
	if p.Aave != nil {
		m.params = *p.Aave
	}
}

func (m *Aave) GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error) {
	p := m.params
	var annualRate float64
	if utilization < p.OptimalUtilization {
		annualRate = p.BaseRate + (utilization/p.OptimalUtilization)*p.RateSlope1
	} else {
		annualRate = p.BaseRate + p.RateSlope1 +
			p.RateSlope2*(utilization-p.OptimalUtilization)/(1-p.OptimalUtilization)
	}
	periodFraction := loanPeriod.Hours() / 24 / 365
	return annualRate * periodFraction, nil
}
