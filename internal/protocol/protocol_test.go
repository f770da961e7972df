package protocol

import (
	"errors"
	"testing"
	"time"

	"cora-sim/internal/lendingpool"
)

type stubOracle struct{ price float64 }

func (s stubOracle) Price() float64 { return s.price }

type stubFee struct{ rate float64 }

func (s stubFee) GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error) {
	return s.rate, nil
}

func validConfig(name string) lendingpool.Config {
	return lendingpool.Config{
		Name: name, MaxLTV: 0.8, MaxLiquidity: 1000,
		GenesisPeriod: 0, RunningPeriod: 3600,
	}
}

func TestCreateLendingPoolRejectsDuplicateName(t *testing.T) {
	p := New()
	cfg := validConfig("pool-a")
	if err := p.CreateLendingPool(cfg, 0, stubOracle{100}, stubFee{0.01}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := p.CreateLendingPool(cfg, 0, stubOracle{100}, stubFee{0.01})
	if err == nil {
		t.Fatalf("expected duplicate name rejection")
	}
}

func TestCreateLendingPoolRejectsInvalidMaxLTV(t *testing.T) {
	p := New()
	cfg := validConfig("pool-a")
	cfg.MaxLTV = 1.5
	if err := p.CreateLendingPool(cfg, 0, stubOracle{100}, stubFee{0.01}); err != ErrInvalidMaxLTV {
		t.Fatalf("expected ErrInvalidMaxLTV, got %v", err)
	}
}

func TestCreateLendingPoolRejectsInvalidMaxLiquidity(t *testing.T) {
	p := New()
	cfg := validConfig("pool-a")
	cfg.MaxLiquidity = 0
	if err := p.CreateLendingPool(cfg, 0, stubOracle{100}, stubFee{0.01}); err != ErrInvalidMaxLiquidity {
		t.Fatalf("expected ErrInvalidMaxLiquidity, got %v", err)
	}
}

func TestCreateLendingPoolValidatesOrderBeforeRegistering(t *testing.T) {
	p := New()
	cfg := validConfig("pool-a")
	cfg.MinLoanPeriod = -1
	if err := p.CreateLendingPool(cfg, 0, stubOracle{100}, stubFee{0.01}); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if len(p.LendingPools()) != 0 {
		t.Fatalf("rejected pool must not be registered")
	}
}

func TestStepFansOutAcrossPoolsInCreationOrder(t *testing.T) {
	p := New()
	if err := p.CreateLendingPool(validConfig("pool-a"), 0, stubOracle{100}, stubFee{0.01}); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := p.CreateLendingPool(validConfig("pool-b"), 0, stubOracle{100}, stubFee{0.01}); err != nil {
		t.Fatalf("create b: %v", err)
	}

	events := p.Step(60, 60)
	names := map[string]bool{}
	for _, e := range events {
		if name, ok := e.Extra["lending_pool"].(string); ok {
			names[name] = true
		}
	}
	if !names["pool-a"] || !names["pool-b"] {
		t.Fatalf("expected events from both pools, got %+v", events)
	}

	pools := p.LendingPools()
	if len(pools) != 2 || pools[0].Name() != "pool-a" || pools[1].Name() != "pool-b" {
		t.Fatalf("expected creation order preserved, got %+v", pools)
	}
}

func TestLendingPoolLooksUpByName(t *testing.T) {
	p := New()
	p.CreateLendingPool(validConfig("pool-a"), 0, stubOracle{100}, stubFee{0.01})
	if p.LendingPool("pool-a") == nil {
		t.Fatalf("expected pool-a to be found")
	}
	if p.LendingPool("missing") != nil {
		t.Fatalf("expected missing pool to be nil")
	}
}
