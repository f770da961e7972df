// Package engine drives the deterministic tick loop: advance the
// environment, advance the protocol, let the strategy reshape the agent
// population, then let every agent act in priority order.
package engine

import (
	"sort"

	"cora-sim/internal/agents"
	"cora-sim/internal/environment"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/protocol"
	"cora-sim/internal/strategy"
)

// EventInfo is the shared message/time/type/extra shape both
// environment.Event and lendingpool.Event carry; State.TakeStep
// converts environment events into it so the engine has one event type
// to log regardless of source.
type EventInfo struct {
	Message string
	Time    int64
	Type    string
	Extra   map[string]any
}

// State owns one run's tick counter, simulated clock, protocol, and agent
// population; the run's RNG is handed to the strategy in NewState rather
// than stored here. Mirrors simulator/state/state.py's SimulationState.
type State struct {
	tick int
	time int64

	strategy    strategy.Strategy
	environment environment.Environment
	protocol    *protocol.Protocol
	agentList   []agents.Agent
}

// NewState constructs a run's initial state: the strategy seeds its
// distributions with rng, then builds the starting protocol and agent
// population.
func NewState(start int64, strat strategy.Strategy, env environment.Environment, rng distributionSource) *State {
	strat.SetRNG(rng)
	proto := strat.InitialProtocol()
	initialAgents := strat.InitialAgents(env, proto)
	return &State{
		time:        start,
		strategy:    strat,
		environment: env,
		protocol:    proto,
		agentList:   initialAgents,
	}
}

// distributionSource is distributions.Source, restated locally to avoid
// importing internal/distributions just for this one parameter's type.
type distributionSource interface {
	Float64() float64
	NormFloat64() float64
}

// Tick returns the number of ticks advanced so far.
func (s *State) Tick() int { return s.tick }

// Time returns the current simulated unix time.
func (s *State) Time() int64 { return s.time }

// Protocol returns the run's protocol, for metrics/result reads.
func (s *State) Protocol() *protocol.Protocol { return s.protocol }

// Environment returns the run's environment, for metrics/result reads.
func (s *State) Environment() environment.Environment { return s.environment }

// TakeStep advances the simulation by timeStepSeconds: tick++, clock
// advances, environment steps, protocol steps, the strategy reshapes the
// agent population, then every agent acts in priority order (PoolManager
// before Lender before Borrower). Returns every action taken and every
// event raised, in that same ordering.
func (s *State) TakeStep(timeStepSeconds int64) ([]agents.Action, []EventInfo) {
	s.tick++
	s.time += timeStepSeconds

	envEvents := s.environment.Step(timeStepSeconds)
	poolEvents := s.protocol.Step(s.time, timeStepSeconds)

	s.agentList = s.strategy.UpdateAgents(s.agentList, s.protocol, s.environment, timeStepSeconds)

	ordered := make([]agents.Agent, len(s.agentList))
	copy(ordered, s.agentList)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	var actions []agents.Action
	for _, a := range ordered {
		actions = append(actions, a.Act(s.time)...)
	}

	events := make([]EventInfo, 0, len(envEvents)+len(poolEvents))
	for _, e := range envEvents {
		events = append(events, EventInfo(e))
	}
	for _, e := range poolEvents {
		events = append(events, EventInfo(e))
	}
	return actions, events
}

// PoolEvents filters events down to the lendingpool.Event-shaped subset
// (those whose Type matches a lending-pool lifecycle event), for callers
// that need the original typed events (metrics.CustomEvents).
func PoolEvents(events []EventInfo) []lendingpool.Event {
	var out []lendingpool.Event
	for _, e := range events {
		if e.Type == lendingpool.EventGenesisEnded || e.Type == lendingpool.EventCycleEnded {
			out = append(out, lendingpool.Event(e))
		}
	}
	return out
}
