// Package protocol owns named lending pools and steps each of them once
// per tick.
package protocol

import (
	"errors"
	"fmt"

	"cora-sim/internal/lendingpool"
)

var (
	ErrPoolNameExists       = errors.New("protocol: lending pool name already exists")
	ErrInvalidMinAmount     = errors.New("protocol: minimum amount must be non-negative")
	ErrInvalidPeriod        = errors.New("protocol: period must be non-negative")
	ErrInvalidMaxLTV        = errors.New("protocol: max ltv must be in (0,1]")
	ErrInvalidMaxLiquidity  = errors.New("protocol: max liquidity must be positive")
)

// Protocol owns {name -> LendingPool} and fans out ticks to every pool.
type Protocol struct {
	pools map[string]*lendingpool.LendingPool
	order []string
}

func New() *Protocol {
	return &Protocol{pools: map[string]*lendingpool.LendingPool{}}
}

// CreateLendingPool validates construction arguments in the order the
// source protocol.py asserts them, then constructs and registers a pool.
func (p *Protocol) CreateLendingPool(cfg lendingpool.Config, now int64, env lendingpool.PriceOracle, fee lendingpool.FeeModel) error {
	if _, exists := p.pools[cfg.Name]; exists {
		return fmt.Errorf("%w: %s", ErrPoolNameExists, cfg.Name)
	}
	if cfg.MinLoanAmount < 0 {
		return fmt.Errorf("%w: min loan amount", ErrInvalidMinAmount)
	}
	if cfg.MinLoanPeriod < 0 {
		return fmt.Errorf("%w: min loan period", ErrInvalidPeriod)
	}
	if cfg.MinPositionSize < 0 {
		return fmt.Errorf("%w: min position size", ErrInvalidMinAmount)
	}
	if cfg.GenesisPeriod < 0 {
		return fmt.Errorf("%w: genesis period", ErrInvalidPeriod)
	}
	if cfg.RunningPeriod < 0 {
		return fmt.Errorf("%w: running period", ErrInvalidPeriod)
	}
	if cfg.MinLiquidity < 0 {
		return fmt.Errorf("%w: min liquidity", ErrInvalidMinAmount)
	}
	if cfg.MaxLTV <= 0 || cfg.MaxLTV > 1 {
		return ErrInvalidMaxLTV
	}
	if cfg.MaxLiquidity <= 0 {
		return ErrInvalidMaxLiquidity
	}

	pool := lendingpool.New(cfg, now, env, fee)
	p.pools[cfg.Name] = pool
	p.order = append(p.order, cfg.Name)
	return nil
}

// Step advances every pool, returning the union of their events.
func (p *Protocol) Step(now int64, deltaSeconds int64) []lendingpool.Event {
	var events []lendingpool.Event
	for _, name := range p.order {
		events = append(events, p.pools[name].TakeStep(now, deltaSeconds)...)
	}
	return events
}

// LendingPools returns the registered pools in creation order.
func (p *Protocol) LendingPools() []*lendingpool.LendingPool {
	out := make([]*lendingpool.LendingPool, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.pools[name])
	}
	return out
}

// LendingPool returns a pool by name, or nil if it does not exist.
func (p *Protocol) LendingPool(name string) *lendingpool.LendingPool {
	return p.pools[name]
}
