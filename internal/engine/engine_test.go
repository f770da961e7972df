package engine_test

import (
	"math/rand"
	"strings"
	"testing"

	"cora-sim/internal/config"
	"cora-sim/internal/engine"
	"cora-sim/internal/environment"
	"cora-sim/internal/priceseries"
	"cora-sim/internal/strategy"
)

func newTestEnvFactory() engine.EnvironmentFactory {
	return func(start, end int64, rng *rand.Rand) (environment.Environment, error) {
		series := priceseries.NewSeries([]priceseries.Point{{Time: start, Price: 100}})
		return environment.NewHistorical(start, series), nil
	}
}

func TestNewRejectsNameWithHyphen(t *testing.T) {
	s, err := strategy.NewV1Strategy(baseParams())
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	_, err = engine.New("bad-name", s, newTestEnvFactory(), config.ResultConfig{})
	if err == nil {
		t.Fatalf("expected error for hyphenated name")
	}
}

func TestRunSimulationAdvancesUntilEndAndReturnsMetrics(t *testing.T) {
	s, err := strategy.NewV1Strategy(baseParams())
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	eng, err := engine.New("coratest", s, newTestEnvFactory(), config.ResultConfig{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	res, err := eng.RunSimulation(0, 3*3600, 3600, 1)
	if err != nil {
		t.Fatalf("run simulation: %v", err)
	}
	if !strings.Contains(res.RunID, "coratest") {
		t.Fatalf("expected run id to contain run name, got %q", res.RunID)
	}
	// one initial tick-0 record plus one per 3600s step through 3*3600s.
	if len(res.StepMetrics) != 4 {
		t.Fatalf("expected 4 step metric records, got %d", len(res.StepMetrics))
	}
	if res.EndMetrics == nil {
		t.Fatalf("expected end-of-simulation metrics to be recorded")
	}
}

func TestRunSimulationIncrementsRunCounterAcrossCalls(t *testing.T) {
	s, err := strategy.NewV1Strategy(baseParams())
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	eng, err := engine.New("coratest", s, newTestEnvFactory(), config.ResultConfig{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	first, err := eng.RunSimulation(0, 3600, 3600, 1)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := eng.RunSimulation(0, 3600, 3600, 1)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.RunID == second.RunID {
		t.Fatalf("expected distinct run ids, got %q twice", first.RunID)
	}
	if !strings.HasSuffix(first.RunID, "000000") || !strings.HasSuffix(second.RunID, "000001") {
		t.Fatalf("expected run counter suffixes 000000/000001, got %q / %q", first.RunID, second.RunID)
	}
}

func TestRunSimulationsReturnsOneResultPerRun(t *testing.T) {
	s, err := strategy.NewV1Strategy(baseParams())
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	eng, err := engine.New("coratest", s, newTestEnvFactory(), config.ResultConfig{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	results, err := eng.RunSimulations(2, 0, 3600, 3600, 10)
	if err != nil {
		t.Fatalf("run simulations: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}
