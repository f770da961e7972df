package engine

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"cora-sim/internal/agents"
	"cora-sim/internal/config"
	"cora-sim/internal/environment"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/metrics"
	"cora-sim/internal/result"
	"cora-sim/internal/strategy"
)

// ErrInvalidName is returned when a run name contains '-', which would
// collide with the '-'-delimited run-id format.
var ErrInvalidName = errors.New("engine: name must not contain '-'")

// EnvironmentFactory builds a fresh environment for one run, given its
// start/end time and the run's seeded RNG (for Brownian continuation).
type EnvironmentFactory func(start, end int64, rng *rand.Rand) (environment.Environment, error)

// Engine owns one run family's identity (creation time, name, and a
// random 7-hex suffix) and runs any number of simulations under it,
// mirroring simulator/engine/engine.py's SimulationEngine.
type Engine struct {
	strategy       strategy.Strategy
	newEnvironment EnvironmentFactory
	resultConfig   config.ResultConfig

	name         string
	creationTime string
	hexSuffix    string
	engineID     string
	runCount     int
}

// New constructs an Engine. name must not contain '-'.
func New(name string, strat strategy.Strategy, newEnv EnvironmentFactory, resultCfg config.ResultConfig) (*Engine, error) {
	if strings.Contains(name, "-") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	id := uuid.New()
	hexSuffix := hex.EncodeToString(id[:])[:7]
	creationTime := time.Now().Format("20060102T150405")
	return &Engine{
		strategy:       strat,
		newEnvironment: newEnv,
		resultConfig:   resultCfg,
		name:           name,
		creationTime:   creationTime,
		hexSuffix:      hexSuffix,
		engineID:       fmt.Sprintf("%s-%s-%s", creationTime, name, hexSuffix),
	}, nil
}

// RunSimulation runs one simulation from start to end, stepping by
// stepSeconds and seeded by seed, writing results as it goes.
func (e *Engine) RunSimulation(start, end, stepSeconds, seed int64) (*result.Result, error) {
	runID := fmt.Sprintf("%s-%06d", e.engineID, e.runCount)
	e.runCount++
	slog.Info("starting simulation run", "run_id", runID)

	writer, err := result.NewWriter(runID, e.resultConfig)
	if err != nil {
		return nil, fmt.Errorf("engine: new result writer: %w", err)
	}
	defer writer.Close()

	rng := rand.New(rand.NewSource(seed))
	env, err := e.newEnvironment(start, end, rng)
	if err != nil {
		return nil, fmt.Errorf("engine: build environment: %w", err)
	}

	state := NewState(start, e.strategy, env, rng)
	if err := e.logStep(writer, state, nil, nil); err != nil {
		return nil, err
	}

	slog.Info("begin simulation run", "run_id", runID)
	for {
		actions, events := state.TakeStep(stepSeconds)
		if err := e.logStep(writer, state, actions, events); err != nil {
			return nil, err
		}
		if state.Time() >= end {
			break
		}
	}
	slog.Info("finished simulation run", "run_id", runID, "ticks", state.Tick())

	if err := e.logEnd(writer, state); err != nil {
		return nil, err
	}
	res := writer.Result()
	return &res, nil
}

// RunSimulations runs numRuns simulations, scaling seed by run index the
// same way engine.py's run_simulations does (seed * (i+1)).
func (e *Engine) RunSimulations(numRuns int, start, end, stepSeconds, seed int64) ([]*result.Result, error) {
	results := make([]*result.Result, 0, numRuns)
	for i := 0; i < numRuns; i++ {
		res, err := e.RunSimulation(start, end, stepSeconds, seed*int64(i+1))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) logStep(writer *result.Writer, state *State, actions []agents.Action, events []EventInfo) error {
	step := metrics.ByStep(state.Time(), state.Environment(), state.Protocol())
	step["tick"] = state.Tick()
	step["timestamp"] = state.Time()
	if err := writer.AddStepMetrics(step); err != nil {
		return fmt.Errorf("engine: write step metrics: %w", err)
	}

	customEvents := metrics.CustomEvents(state.Protocol(), PoolEvents(events))
	for name, ms := range customEvents {
		for _, m := range ms {
			if err := writer.AddCustomEventMetrics(name, m); err != nil {
				return fmt.Errorf("engine: write custom event metrics: %w", err)
			}
		}
	}
	for _, a := range actions {
		writer.AddActionToLog(a)
	}
	for _, ev := range events {
		writer.AddEventToLog(lendingpool.Event(ev))
	}
	return nil
}

func (e *Engine) logEnd(writer *result.Writer, state *State) error {
	end := metrics.EndOfSimulation(state.Time(), state.Environment(), state.Protocol())
	return writer.AddEndMetrics(end)
}
