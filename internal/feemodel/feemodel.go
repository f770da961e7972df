// Package feemodel implements the pluggable fee-model family: every
// model shares the GetParameters/UpdateParameters/GetFee capability set.
package feemodel

import (
	"errors"
	"time"

	"cora-sim/internal/priceseries"
)

// ErrKellyDomain is returned when a Kelly curve is evaluated outside [0,1].
var ErrKellyDomain = errors.New("feemodel: utilization outside [0,1]")

// ErrInsufficientHistory mirrors priceseries.ErrInsufficientHistory for
// callers that only depend on this package's error surface.
var ErrInsufficientHistory = errors.New("feemodel: need at least 2 historical points")

// Environment is the subset of the market environment a fee model reads
// from when computing fresh parameters.
type Environment interface {
	Now() int64
	History(deltaSeconds int64) []priceseries.Point
}

// Model is the shared fee-model capability set named in spec §4.3.
type Model interface {
	// GetParameters computes fresh parameters from the environment and
	// model-specific options.
	GetParameters(env Environment, opts Options) (Params, error)
	// UpdateParameters stores newly computed parameters.
	UpdateParameters(p Params)
	// GetFee returns the fee rate for a loan with the given ltv,
	// utilization, and period.
	GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error)
}

// Options carries the free-form per-call options each model's
// GetParameters needs (lookback window, ltv grid, etc). Each model reads
// only the fields it recognises, matching spec §9's "typed parameter
// record carried through a sum type, not a free-form mapping" guidance:
// this struct groups every model's option by name instead of passing a
// generic map.
type Options struct {
	LookbackDays      int
	VolatilityFactor  float64
	ZeroMu            bool
	RiskFreeRate      float64
	UtilizationCurve  func(float64) float64
	LtvValues         []float64
	MaxExpirationDays int
	IntervalDays      int
}

// Params is the sealed set of parameter payloads every model may
// produce; a single model fills its own field, while the Sum/Combined
// hybrids fill both Sum and Combined.
type Params struct {
	BlackScholes *BlackScholesParams
	Aave         *AaveParams
	Kelly        *KellyParams
	Sum          *HybridParams
	Combined     *HybridParams
}
