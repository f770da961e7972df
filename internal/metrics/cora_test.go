package metrics_test

import (
	"testing"
	"time"

	"cora-sim/internal/lendingpool"
	"cora-sim/internal/metrics"
	"cora-sim/internal/protocol"
)

type stubOracle struct{ price float64 }

func (o stubOracle) Price() float64 { return o.price }

type zeroFee struct{}

func (zeroFee) GetFee(ltv, utilization float64, period time.Duration) (float64, error) {
	return 0, nil
}

func newRunningPool(t *testing.T, proto *protocol.Protocol, name string) *lendingpool.LendingPool {
	t.Helper()
	cfg := lendingpool.Config{
		Name: name, MaxLTV: 0.8, MaxLiquidity: 10000,
		GenesisPeriod: 0, RunningPeriod: 3600,
	}
	if err := proto.CreateLendingPool(cfg, 0, stubOracle{100}, zeroFee{}); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	pool := proto.LendingPool(name)
	w := &lendingpool.Wallet{Address: "lender"}
	w.Primary = 1000
	if err := pool.Deposit(w, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	pool.TakeStep(0, 0) // enter running with 0 genesis period
	return pool
}

func TestByStepReportsZeroedMetricWithNoPools(t *testing.T) {
	proto := protocol.New()
	env := stubOracle{100}
	m := metrics.ByStep(0, env, proto)
	if m["collateral_price"] != 100.0 {
		t.Fatalf("expected collateral_price passthrough, got %v", m["collateral_price"])
	}
	if m["active_loans_count"] != 0 {
		t.Fatalf("expected zero active loans, got %v", m["active_loans_count"])
	}
}

func TestByStepReportsActiveLoanAfterBorrow(t *testing.T) {
	proto := protocol.New()
	pool := newRunningPool(t, proto, "pool-a")

	borrower := &lendingpool.Wallet{Address: "borrower", Secondary: 10}
	if _, err := pool.Borrow(borrower, 1, 100, 2, 30*time.Minute); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	env := stubOracle{100}
	m := metrics.ByStep(1, env, proto)
	if m["active_loans_count"] != 1 {
		t.Fatalf("expected 1 active loan, got %v", m["active_loans_count"])
	}
	if m["total_loans_count"] != 1 {
		t.Fatalf("expected 1 total loan, got %v", m["total_loans_count"])
	}
	if m["pool_capital_lent"] != 100.0 {
		t.Fatalf("expected pool_capital_lent=100, got %v", m["pool_capital_lent"])
	}
}

func TestEndOfSimulationComputesFloatRatioNotList(t *testing.T) {
	proto := protocol.New()
	pool := newRunningPool(t, proto, "pool-b")

	borrower := &lendingpool.Wallet{Address: "borrower", Secondary: 10}
	if _, err := pool.Borrow(borrower, 1, 100, 2, 30*time.Minute); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// past expiration (start=1, period=30m=1800s), loan defaults.
	env := stubOracle{100}
	m := metrics.EndOfSimulation(1+1801, env, proto)

	ratio, ok := m["ratio_loans_defaulted"].(float64)
	if !ok {
		t.Fatalf("expected ratio_loans_defaulted to be a float64, got %T", m["ratio_loans_defaulted"])
	}
	if ratio != 1.0 {
		t.Fatalf("expected ratio 1.0 (one loan, defaulted), got %f", ratio)
	}
}

func TestCustomEventsEmitsCycleEndMetric(t *testing.T) {
	proto := protocol.New()
	cfg := lendingpool.Config{
		Name: "pool-c", MaxLTV: 0.8, MaxLiquidity: 10000,
		GenesisPeriod: 0, RunningPeriod: 10,
	}
	if err := proto.CreateLendingPool(cfg, 0, stubOracle{100}, zeroFee{}); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	pool := proto.LendingPool("pool-c")
	w := &lendingpool.Wallet{Address: "lender", Primary: 1000}
	if err := pool.Deposit(w, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	pool.TakeStep(0, 0) // genesis -> running

	events := pool.TakeStep(10, 10) // running period ends
	if len(events) != 1 {
		t.Fatalf("expected 1 cycle-end event, got %d", len(events))
	}

	out := metrics.CustomEvents(proto, events)
	cycleEnd, ok := out["cycle_end"]
	if !ok || len(cycleEnd) != 1 {
		t.Fatalf("expected 1 cycle_end metric, got %v", out)
	}
	if cycleEnd[0]["lending_pool"] != "pool-c" {
		t.Fatalf("expected lending_pool=pool-c, got %v", cycleEnd[0]["lending_pool"])
	}
	if cycleEnd[0]["num_loans"] != 0 {
		t.Fatalf("expected num_loans=0, got %v", cycleEnd[0]["num_loans"])
	}
}
