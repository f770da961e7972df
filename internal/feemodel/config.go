package feemodel

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ModelConfig is a fee model's static TOML policy: the seed values for
// its non-fitted parameters (Aave's kink curve, BSM's risk-free rate and
// lookback window), loaded once at startup and never mutated by a run.
// Mirrors native/lending/config.go's Config/EnsureDefaults/Clone trio.
type ModelConfig struct {
	Aave struct {
		OptimalUtilization float64 `toml:"optimal_utilization"`
		BaseRate           float64 `toml:"base_rate"`
		RateSlope1         float64 `toml:"rate_slope_1"`
		RateSlope2         float64 `toml:"rate_slope_2"`
	} `toml:"aave"`
	BlackScholes struct {
		RiskFreeRate float64 `toml:"risk_free_rate"`
		LookbackDays int     `toml:"lookback_days"`
	} `toml:"black_scholes"`
	Kelly struct {
		CacheDir string `toml:"cache_dir"`
	} `toml:"kelly"`
}

// EnsureDefaults fills zero-valued optional fields with documented
// defaults.
func (c *ModelConfig) EnsureDefaults() {
	if c.Aave.OptimalUtilization == 0 {
		c.Aave.OptimalUtilization = 0.8
	}
	if c.BlackScholes.LookbackDays == 0 {
		c.BlackScholes.LookbackDays = 30
	}
	if c.Kelly.CacheDir == "" {
		c.Kelly.CacheDir = "kelly_cache"
	}
}

// Clone returns a deep copy of the config (every field is a value type,
// so a plain struct copy suffices).
func (c ModelConfig) Clone() ModelConfig {
	return c
}

// ToAaveParams seeds an Aave model's starting parameters.
func (c ModelConfig) ToAaveParams() AaveParams {
	return AaveParams{
		OptimalUtilization: c.Aave.OptimalUtilization,
		BaseRate:           c.Aave.BaseRate,
		RateSlope1:         c.Aave.RateSlope1,
		RateSlope2:         c.Aave.RateSlope2,
	}
}

// ToOptions seeds the Options a BlackScholes/Kelly GetParameters call
// uses for its next refresh.
func (c ModelConfig) ToOptions() Options {
	return Options{
		LookbackDays: c.BlackScholes.LookbackDays,
		RiskFreeRate: c.BlackScholes.RiskFreeRate,
	}
}

// LoadModelConfig reads a fee model's static policy from a TOML file and
// fills defaults.
func LoadModelConfig(path string) (ModelConfig, error) {
	var cfg ModelConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelConfig{}, fmt.Errorf("feemodel: read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return ModelConfig{}, fmt.Errorf("feemodel: decode config: %w", err)
	}
	cfg.EnsureDefaults()
	return cfg, nil
}
