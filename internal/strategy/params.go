package strategy

import (
	"encoding/json"
	"fmt"
	"os"

	"cora-sim/internal/distributions"
	"cora-sim/internal/feemodel"
)

// DistParam unmarshals a `{"type":"dist","name":...,"params":...}` JSON
// node into a live distributions.Distribution, resolved through the
// distributions registry. Any other shape is a parse error.
type DistParam struct {
	distributions.Distribution
}

func (d *DistParam) UnmarshalJSON(data []byte) error {
	var node struct {
		Type   string             `json:"type"`
		Name   string             `json:"name"`
		Params map[string]float64 `json:"params"`
	}
	if err := json.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("strategy: decoding dist node: %w", err)
	}
	if node.Type != "dist" {
		return fmt.Errorf("strategy: expected a dist node, got type %q", node.Type)
	}
	dist, err := distributions.Build(node.Name, node.Params)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	d.Distribution = dist
	return nil
}

// FeeModelUpdateParams is the typed form of the strategy file's
// fee_model_update_params object; only the fields a given model reads
// need be present.
type FeeModelUpdateParams struct {
	LookbackDays      int       `json:"lookback_days"`
	VolatilityFactor  float64   `json:"volatility_factor"`
	ZeroMu            bool      `json:"zero_mu"`
	LtvValues         []float64 `json:"ltv_values"`
	MaxExpirationDays int       `json:"max_expiration_days"`
	IntervalDays      int       `json:"interval_days"`
}

// ToOptions converts the parsed JSON record into the feemodel.Options a
// model's GetParameters expects. UtilizationCurve is left nil; models
// that need one substitute their own default.
func (f FeeModelUpdateParams) ToOptions() feemodel.Options {
	return feemodel.Options{
		LookbackDays:      f.LookbackDays,
		VolatilityFactor:  f.VolatilityFactor,
		ZeroMu:            f.ZeroMu,
		LtvValues:         f.LtvValues,
		MaxExpirationDays: f.MaxExpirationDays,
		IntervalDays:      f.IntervalDays,
	}
}

// V1Params is the strategy file schema for CoraV1Strategy.
type V1Params struct {
	UtilizationParameter          float64               `json:"utilization_parameter"`
	LoanSizeDist                  DistParam             `json:"loan_size_dist"`
	LoanStartDist                 DistParam             `json:"loan_start_dist"`
	LoanDurationDist              DistParam             `json:"loan_duration_dist"`
	LtvDist                       DistParam             `json:"ltv_dist"`
	MaxLTV                        float64               `json:"max_ltv"`
	MaxLiquidity                  float64               `json:"max_liquidity"`
	InitialLendingAmount          float64               `json:"initial_lending_amount"`
	FeeModel                      string                `json:"fee_model"`
	FeeModelUpdateParams          FeeModelUpdateParams  `json:"fee_model_update_params"`
	FeeModelUpdateIntervalSeconds int64                 `json:"fee_model_update_interval_seconds"`
	GenesisPeriodSeconds          int64                 `json:"genesis_period_seconds"`
	RunningPeriodSeconds          int64                 `json:"running_period_seconds"`
}

// EnsureDefaults fills the same defaults CoraV1StategyParameters'
// dataclass fields carry.
func (p *V1Params) EnsureDefaults() {
	if p.FeeModelUpdateIntervalSeconds == 0 {
		p.FeeModelUpdateIntervalSeconds = 24 * 60 * 60
	}
	if p.GenesisPeriodSeconds == 0 {
		p.GenesisPeriodSeconds = 7 * 24 * 60 * 60
	}
	if p.RunningPeriodSeconds == 0 {
		p.RunningPeriodSeconds = 30 * 24 * 60 * 60
	}
}

// V2Params is the strategy file schema for CoraV2Strategy: identical to
// V1Params except utilization_parameter is replaced by a marginal
// borrower_demand_ratio cap.
type V2Params struct {
	BorrowerDemandRatio           float64               `json:"borrower_demand_ratio"`
	LoanSizeDist                  DistParam             `json:"loan_size_dist"`
	LoanStartDist                 DistParam             `json:"loan_start_dist"`
	LoanDurationDist              DistParam             `json:"loan_duration_dist"`
	LtvDist                       DistParam             `json:"ltv_dist"`
	MaxLTV                        float64               `json:"max_ltv"`
	MaxLiquidity                  float64               `json:"max_liquidity"`
	InitialLendingAmount          float64               `json:"initial_lending_amount"`
	FeeModel                      string                `json:"fee_model"`
	FeeModelUpdateParams          FeeModelUpdateParams  `json:"fee_model_update_params"`
	FeeModelUpdateIntervalSeconds int64                 `json:"fee_model_update_interval_seconds"`
	GenesisPeriodSeconds          int64                 `json:"genesis_period_seconds"`
	RunningPeriodSeconds          int64                 `json:"running_period_seconds"`
}

func (p *V2Params) EnsureDefaults() {
	if p.FeeModelUpdateIntervalSeconds == 0 {
		p.FeeModelUpdateIntervalSeconds = 24 * 60 * 60
	}
	if p.GenesisPeriodSeconds == 0 {
		p.GenesisPeriodSeconds = 7 * 24 * 60 * 60
	}
	if p.RunningPeriodSeconds == 0 {
		p.RunningPeriodSeconds = 30 * 24 * 60 * 60
	}
}

// LoadV1Params reads and decodes a V1 strategy parameter file.
func LoadV1Params(path string) (V1Params, error) {
	var p V1Params
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("strategy: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("strategy: parsing %s: %w", path, err)
	}
	p.EnsureDefaults()
	return p, nil
}

// LoadV2Params reads and decodes a V2 strategy parameter file.
func LoadV2Params(path string) (V2Params, error) {
	var p V2Params
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("strategy: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("strategy: parsing %s: %w", path, err)
	}
	p.EnsureDefaults()
	return p, nil
}
