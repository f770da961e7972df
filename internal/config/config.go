// Package config loads the run-level YAML configuration a simulation is
// launched with, mirroring services/lendingd/config's decode/normalize/
// validate pipeline.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RunConfig captures the settings a single simulation run needs: the
// asset to simulate, its time window and step, result-writer toggles,
// and where to find the strategy/pool/fee-model policy files.
type RunConfig struct {
	Name               string       `yaml:"name"`
	AssetSymbol        string       `yaml:"asset_symbol"`
	StartTime          int64        `yaml:"start_time"`
	EndTime            int64        `yaml:"end_time"`
	StepSeconds        int64        `yaml:"step_seconds"`
	Seed               int64        `yaml:"seed"`
	PriceDataDir       string       `yaml:"price_data_dir"`
	EnvironmentKind    string       `yaml:"environment_kind"` // "historical" or "brownian"
	ZeroMu             bool         `yaml:"zero_mu"`
	VolatilityFactor   float64      `yaml:"volatility_factor"`
	Strategy           string       `yaml:"strategy"` // "v1" or "v2"
	StrategyParamsPath string       `yaml:"strategy_params_path"`
	PoolConfigPath     string       `yaml:"pool_config_path"`
	FeeModelConfigPath string       `yaml:"fee_model_config_path"`
	Result             ResultConfig `yaml:"result"`
}

// ResultConfig toggles what the result writer persists for a run,
// mirroring SimulationResultConfig.
type ResultConfig struct {
	ResultsFolder           string `yaml:"results_folder"`
	WriteStepMetrics        bool   `yaml:"write_step_metrics"`
	WriteEndMetrics         bool   `yaml:"write_end_metrics"`
	WriteCustomEventMetrics bool   `yaml:"write_custom_event_metrics"`
	WriteLog                bool   `yaml:"write_log"`
	StepLogInterval         int64  `yaml:"step_log_interval"`
}

// Load reads the YAML configuration from disk, fills defaults, and
// validates the result.
func Load(path string) (RunConfig, error) {
	var cfg RunConfig
	if path == "" {
		return cfg, fmt.Errorf("config: path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: open: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return RunConfig{}, fmt.Errorf("config: decode: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

func (cfg *RunConfig) normalize() {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.AssetSymbol = strings.TrimSpace(cfg.AssetSymbol)
	cfg.Strategy = strings.ToLower(strings.TrimSpace(cfg.Strategy))
	cfg.EnvironmentKind = strings.ToLower(strings.TrimSpace(cfg.EnvironmentKind))
	if cfg.EnvironmentKind == "" {
		cfg.EnvironmentKind = "brownian"
	}
	if cfg.VolatilityFactor == 0 {
		cfg.VolatilityFactor = 1
	}
	if cfg.StepSeconds == 0 {
		cfg.StepSeconds = 3600
	}
	if cfg.Result.ResultsFolder == "" {
		cfg.Result.ResultsFolder = "simlogs"
	}
	if cfg.Result.StepLogInterval == 0 {
		cfg.Result.StepLogInterval = 1
	}
}

func (cfg RunConfig) validate() error {
	if cfg.Name == "" {
		return fmt.Errorf("config: name is required")
	}
	if strings.Contains(cfg.Name, "-") {
		return fmt.Errorf("config: name must not contain '-'")
	}
	if cfg.AssetSymbol == "" {
		return fmt.Errorf("config: asset_symbol is required")
	}
	if cfg.PriceDataDir == "" {
		return fmt.Errorf("config: price_data_dir is required")
	}
	if cfg.EndTime <= cfg.StartTime {
		return fmt.Errorf("config: end_time must be after start_time")
	}
	if cfg.StepSeconds <= 0 {
		return fmt.Errorf("config: step_seconds must be positive")
	}
	if cfg.Strategy != "v1" && cfg.Strategy != "v2" {
		return fmt.Errorf("config: strategy must be \"v1\" or \"v2\", got %q", cfg.Strategy)
	}
	if cfg.EnvironmentKind != "historical" && cfg.EnvironmentKind != "brownian" {
		return fmt.Errorf("config: environment_kind must be \"historical\" or \"brownian\", got %q", cfg.EnvironmentKind)
	}
	if cfg.StrategyParamsPath == "" {
		return fmt.Errorf("config: strategy_params_path is required")
	}
	if cfg.PoolConfigPath == "" {
		return fmt.Errorf("config: pool_config_path is required")
	}
	return nil
}
