package lendingpool

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LoadConfig reads a pool's static policy from a TOML file, fills
// defaults, and validates it, mirroring native/lending/config.go's
// decode-then-EnsureDefaults shape.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("lendingpool: read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("lendingpool: decode config: %w", err)
	}
	cfg.EnsureDefaults()
	if cfg.Name == "" {
		return Config{}, fmt.Errorf("lendingpool: config: name is required")
	}
	if cfg.MaxLTV <= 0 || cfg.MaxLTV > 1 {
		return Config{}, fmt.Errorf("lendingpool: config: max_ltv must be in (0,1]")
	}
	if cfg.MaxLiquidity <= 0 {
		return Config{}, fmt.Errorf("lendingpool: config: max_liquidity must be positive")
	}
	return cfg, nil
}
