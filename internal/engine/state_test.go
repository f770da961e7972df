package engine_test

import (
	"math/rand"
	"testing"

	"cora-sim/internal/agents"
	"cora-sim/internal/distributions"
	"cora-sim/internal/engine"
	"cora-sim/internal/environment"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/strategy"
)

type stubEnv struct {
	now   int64
	price float64
}

func (e stubEnv) Now() int64     { return e.now }
func (e stubEnv) Price() float64 { return e.price }
func (e stubEnv) Step(delta int64) []environment.Event {
	return []environment.Event{{
		Message: "environment step",
		Time:    e.now + delta,
		Type:    environment.EventTypeStep,
		Extra:   map[string]any{"time_step": delta, "current_price": e.price},
	}}
}

type constDist struct{ v float64 }

func (c constDist) Sample(distributions.Source) float64 { return c.v }
func (c constDist) SetRNG(distributions.Source)         {}

func baseParams() strategy.V1Params {
	return strategy.V1Params{
		UtilizationParameter: 0.5,
		LoanSizeDist:         strategy.DistParam{Distribution: constDist{100}},
		LoanStartDist:        strategy.DistParam{Distribution: constDist{0}},
		LoanDurationDist:     strategy.DistParam{Distribution: constDist{0.5}},
		LtvDist:              strategy.DistParam{Distribution: constDist{0.5}},
		MaxLTV:               0.8,
		MaxLiquidity:         1000,
		InitialLendingAmount: 1000,
		FeeModel:             "black_scholes",
		GenesisPeriodSeconds: 0,
		RunningPeriodSeconds: 3600,
	}
}

func TestTakeStepAdvancesTickAndTime(t *testing.T) {
	s, err := strategy.NewV1Strategy(baseParams())
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	env := stubEnv{now: 0, price: 100}
	rng := rand.New(rand.NewSource(1))

	state := engine.NewState(0, s, env, rng)
	if state.Tick() != 0 || state.Time() != 0 {
		t.Fatalf("expected fresh state at tick 0, time 0")
	}

	actions, events := state.TakeStep(3600)
	if state.Tick() != 1 {
		t.Fatalf("expected tick 1, got %d", state.Tick())
	}
	if state.Time() != 3600 {
		t.Fatalf("expected time 3600, got %d", state.Time())
	}
	if len(actions) == 0 {
		t.Fatalf("expected at least the pool manager's genesis action")
	}
	if len(events) == 0 || events[0].Type != environment.EventTypeStep {
		t.Fatalf("expected the environment step event to lead, got %+v", events)
	}
}

func TestTakeStepOrdersActionsByAgentPriority(t *testing.T) {
	s, err := strategy.NewV1Strategy(baseParams())
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	env := stubEnv{now: 0, price: 100}
	rng := rand.New(rand.NewSource(1))
	state := engine.NewState(0, s, env, rng)

	actions, _ := state.TakeStep(3600)

	seenPriority := -1
	for _, a := range actions {
		priority := agentPriorityOf(a)
		if priority < seenPriority {
			t.Fatalf("actions out of priority order: %+v", actions)
		}
		seenPriority = priority
	}
}

// agentPriorityOf infers an action's originating agent class from its
// AgentID prefix, mirroring the naming v1.go/v2.go's builders use.
func agentPriorityOf(a agents.Action) int {
	switch {
	case len(a.AgentID) >= 11 && a.AgentID[:11] == "poolmanager":
		return agents.PriorityPoolManager
	case len(a.AgentID) >= 6 && a.AgentID[:6] == "lender":
		return agents.PriorityLender
	default:
		return agents.PriorityBorrower
	}
}

func TestPoolEventsFiltersToLendingPoolLifecycleEvents(t *testing.T) {
	events := []engine.EventInfo{
		{Message: "environment step", Type: environment.EventTypeStep},
		{Message: "genesis ended", Type: lendingpool.EventGenesisEnded, Extra: map[string]any{}},
		{Message: "cycle ended", Type: lendingpool.EventCycleEnded, Extra: map[string]any{}},
	}
	pool := engine.PoolEvents(events)
	if len(pool) != 2 {
		t.Fatalf("expected 2 pool events, got %d", len(pool))
	}
}
