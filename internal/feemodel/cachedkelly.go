package feemodel

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CachedKelly memoises the grid produced on the first GetParameters call
// for a given (date, lookback_days, max_expiration_days) key to a file
// in cacheDir, matching spec §4.3.4/§6's content-addressed, idempotent-
// read, single-writer-create contract.
type CachedKelly struct {
	inner    *Kelly
	cacheDir string
	today    func() time.Time
}

// NewCachedKelly wraps inner with a file cache rooted at cacheDir. today
// supplies the calendar date used in the cache key; production callers
// pass time.Now, tests pass a fixed stub to stay deterministic.
func NewCachedKelly(inner *Kelly, cacheDir string, today func() time.Time) *CachedKelly {
	return &CachedKelly{inner: inner, cacheDir: cacheDir, today: today}
}

// cacheFilename mirrors spec §6 exactly:
// {YYYY-MM-DD}_lb{lookback_days}_exp{max_expiration_days}_kelly_fee_model
func (c *CachedKelly) cacheFilename(lookbackDays, maxExpirationDays int) string {
	date := c.today().UTC().Format("2006-01-02")
	return fmt.Sprintf("%s_lb%d_exp%d_kelly_fee_model", date, lookbackDays, maxExpirationDays)
}

func (c *CachedKelly) GetParameters(env Environment, opts Options) (Params, error) {
	path := filepath.Join(c.cacheDir, c.cacheFilename(opts.LookbackDays, opts.MaxExpirationDays))

	if grid, err := readGridCache(path); err == nil {
		return Params{Kelly: &KellyParams{Grid: grid}}, nil
	} else if !os.IsNotExist(err) {
		return Params{}, fmt.Errorf("feemodel: read kelly cache: %w", err)
	}

	params, err := c.inner.GetParameters(env, opts)
	if err != nil {
		return Params{}, err
	}
	if err := writeGridCache(path, params.Kelly.Grid); err != nil {
		return Params{}, fmt.Errorf("feemodel: write kelly cache: %w", err)
	}
	return params, nil
}

func (c *CachedKelly) UpdateParameters(p Params) { c.inner.UpdateParameters(p) }

func (c *CachedKelly) GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error) {
	return c.inner.GetFee(ltv, utilization, loanPeriod)
}

func readGridCache(path string) (map[GridKey]KellyCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var grid map[GridKey]KellyCurve
	if err := gob.NewDecoder(f).Decode(&grid); err != nil {
		return nil, fmt.Errorf("feemodel: decode kelly cache: %w", err)
	}
	return grid, nil
}

func writeGridCache(path string, grid map[GridKey]KellyCurve) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil // another writer created it first; idempotent no-op
		}
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(grid)
}
