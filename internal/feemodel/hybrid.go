package feemodel

import "time"

// optionModel is the option-pricing or Kelly leg a hybrid composes with
// Aave. Both BlackScholes and Kelly (and CachedKelly) satisfy it.
type optionModel interface {
	GetParameters(env Environment, opts Options) (Params, error)
	UpdateParameters(p Params)
	GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error)
}

// HybridParams merges the option leg's and Aave leg's parameters; each
// leg's UpdateParameters call uses only the slot it recognises.
type HybridParams struct {
	Option Params
	Aave   Params
}

// Sum composes an option-pricing (or Kelly) model with an Aave model by
// addition: fee = A + B.
type Sum struct {
	option optionModel
	aave   *Aave
}

// NewSum builds a Sum hybrid over the given option leg and Aave leg.
func NewSum(option optionModel, aave *Aave) *Sum {
	return &Sum{option: option, aave: aave}
}

func (h *Sum) GetParameters(env Environment, opts Options) (Params, error) {
	return hybridParameters(env, opts, h.option, h.aave)
}

func (h *Sum) UpdateParameters(p Params) {
	if p.Sum == nil {
		return
	}
	h.option.UpdateParameters(p.Sum.Option)
	h.aave.UpdateParameters(p.Sum.Aave)
}

func (h *Sum) GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error) {
	a, err := h.option.GetFee(ltv, utilization, loanPeriod)
	if err != nil {
		return 0, err
	}
	b, err := h.aave.GetFee(ltv, utilization, loanPeriod)
	if err != nil {
		return 0, err
	}
	return a + b, nil
}

// Combined composes an option-pricing (or Kelly) model with an Aave
// model: fee = A when A >= B, else the average of A and B. The tie
// (A == B) resolves to the direct-A branch, matching the source's `>=`.
type Combined struct {
	option optionModel
	aave   *Aave
}

// NewCombined builds a Combined hybrid over the given option leg and Aave leg.
func NewCombined(option optionModel, aave *Aave) *Combined {
	return &Combined{option: option, aave: aave}
}

func (h *Combined) GetParameters(env Environment, opts Options) (Params, error) {
	return hybridParameters(env, opts, h.option, h.aave)
}

func (h *Combined) UpdateParameters(p Params) {
	if p.Combined == nil {
		return
	}
	h.option.UpdateParameters(p.Combined.Option)
	h.aave.UpdateParameters(p.Combined.Aave)
}

func (h *Combined) GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error) {
	a, err := h.option.GetFee(ltv, utilization, loanPeriod)
	if err != nil {
		return 0, err
	}
	b, err := h.aave.GetFee(ltv, utilization, loanPeriod)
	if err != nil {
		return 0, err
	}
	if a >= b {
		return a, nil
	}
	return (a + b) / 2, nil
}

func hybridParameters(env Environment, opts Options, option optionModel, aave *Aave) (Params, error) {
	optionParams, err := option.GetParameters(env, opts)
	if err != nil {
		return Params{}, err
	}
	aaveParams, err := aave.GetParameters(env, opts)
	if err != nil {
		return Params{}, err
	}
	merged := HybridParams{Option: optionParams, Aave: aaveParams}
	return Params{Sum: &merged, Combined: &merged}, nil
}
