package lendingpool

import (
	"os"
	"path/filepath"
	"testing"
)

func writePoolConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFillsDefaultsAndValidates(t *testing.T) {
	path := writePoolConfig(t, `
name = "V1LendingPool"
max_ltv = 0.8
max_liquidity = 100000
genesis_period_seconds = 604800
running_period_seconds = 2592000
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "V1LendingPool" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.MinLiquidity != 0 || cfg.MinLoanAmount != 0 {
		t.Fatalf("expected zero-valued minima to stay at their default 0, got %+v", cfg)
	}
}

func TestLoadConfigRejectsMissingName(t *testing.T) {
	path := writePoolConfig(t, `
max_ltv = 0.8
max_liquidity = 100000
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for missing name")
	}
}

func TestLoadConfigRejectsInvalidMaxLTV(t *testing.T) {
	path := writePoolConfig(t, `
name = "pool"
max_ltv = 1.5
max_liquidity = 100000
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for max_ltv outside (0,1]")
	}
}

func TestLoadConfigRejectsNonPositiveMaxLiquidity(t *testing.T) {
	path := writePoolConfig(t, `
name = "pool"
max_ltv = 0.8
max_liquidity = 0
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for non-positive max_liquidity")
	}
}
