// Command cora-sim runs one collateralized-lending simulation from a
// YAML run configuration and writes its metrics/log/event artifacts to
// disk, mirroring the outer shell simulator/engine/engine.py's callers
// provide around SimulationEngine.run_simulation.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"cora-sim/internal/config"
	"cora-sim/internal/engine"
	"cora-sim/internal/environment"
	"cora-sim/internal/feemodel"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/obslog"
	"cora-sim/internal/priceseries"
	"cora-sim/internal/strategy"
)

// errUnknownStrategy guards loadStrategy's switch default case;
// config.validate already restricts RunConfig.Strategy to "v1"/"v2"
// before loadStrategy ever runs.
var errUnknownStrategy = errors.New("cora-sim: unknown strategy")

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "configs/run.yaml", "path to the run configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("CORA_ENV"))
	logger := obslog.Setup(cfg.Name, env)

	if err := run(cfg); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.RunConfig) error {
	strat, err := loadStrategy(cfg)
	if err != nil {
		return err
	}

	newEnv := func(start, end int64, rng *rand.Rand) (environment.Environment, error) {
		return buildEnvironment(cfg, start, end, rng)
	}

	eng, err := engine.New(cfg.Name, strat, newEnv, cfg.Result)
	if err != nil {
		return err
	}

	res, err := eng.RunSimulation(cfg.StartTime, cfg.EndTime, cfg.StepSeconds, cfg.Seed)
	if err != nil {
		return err
	}
	slog.Info("run complete",
		"run_id", res.RunID,
		"steps", len(res.StepMetrics),
		"events", len(res.EventLog),
	)
	return nil
}

// loadStrategy builds the configured V1/V2 strategy, merging the run's
// static pool/fee-model TOML policy into the strategy's JSON parameters.
func loadStrategy(cfg config.RunConfig) (strategy.Strategy, error) {
	var poolCfg lendingpool.Config
	if cfg.PoolConfigPath != "" {
		loaded, err := lendingpool.LoadConfig(cfg.PoolConfigPath)
		if err != nil {
			return nil, err
		}
		poolCfg = loaded
	}

	var modelCfg feemodel.ModelConfig
	if cfg.FeeModelConfigPath != "" {
		loaded, err := feemodel.LoadModelConfig(cfg.FeeModelConfigPath)
		if err != nil {
			return nil, err
		}
		modelCfg = loaded
	}

	switch cfg.Strategy {
	case "v1":
		params, err := strategy.LoadV1Params(cfg.StrategyParamsPath)
		if err != nil {
			return nil, err
		}
		applyPoolConfigV1(&params, poolCfg)
		strat, err := strategy.NewV1Strategy(params)
		if err != nil {
			return nil, err
		}
		strat.SetModelConfig(modelCfg)
		return strat, nil
	case "v2":
		params, err := strategy.LoadV2Params(cfg.StrategyParamsPath)
		if err != nil {
			return nil, err
		}
		applyPoolConfigV2(&params, poolCfg)
		strat, err := strategy.NewV2Strategy(params)
		if err != nil {
			return nil, err
		}
		strat.SetModelConfig(modelCfg)
		return strat, nil
	default:
		return nil, errUnknownStrategy
	}
}

// applyPoolConfigV1 overrides params' pool-policy fields with poolCfg's,
// when poolCfg was actually loaded (non-empty name).
func applyPoolConfigV1(params *strategy.V1Params, poolCfg lendingpool.Config) {
	if poolCfg.Name == "" {
		return
	}
	params.MaxLTV = poolCfg.MaxLTV
	params.MaxLiquidity = poolCfg.MaxLiquidity
	params.GenesisPeriodSeconds = poolCfg.GenesisPeriod
	params.RunningPeriodSeconds = poolCfg.RunningPeriod
}

func applyPoolConfigV2(params *strategy.V2Params, poolCfg lendingpool.Config) {
	if poolCfg.Name == "" {
		return
	}
	params.MaxLTV = poolCfg.MaxLTV
	params.MaxLiquidity = poolCfg.MaxLiquidity
	params.GenesisPeriodSeconds = poolCfg.GenesisPeriod
	params.RunningPeriodSeconds = poolCfg.RunningPeriod
}

// buildEnvironment loads the offline price-history cache for the run's
// asset and wraps it in a historical or Brownian-continuation
// environment per cfg.EnvironmentKind. No live market-chart fetcher is
// wired (spec's out-of-scope external HTTP collaborator): a run whose
// cached history doesn't reach end_time runs dry past the cache for a
// historical environment, or continues synthetically for a Brownian one.
func buildEnvironment(cfg config.RunConfig, start, end int64, rng *rand.Rand) (environment.Environment, error) {
	store, err := priceseries.NewStore(cfg.PriceDataDir)
	if err != nil {
		return nil, err
	}
	loader := priceseries.NewLoader(store, nil)
	points, err := loader.LoadUntil(context.Background(), cfg.AssetSymbol, end)
	if err != nil {
		return nil, err
	}

	if cfg.EnvironmentKind == "historical" {
		return environment.NewHistorical(start, priceseries.NewSeries(points)), nil
	}
	return environment.NewBrownian(context.Background(), start, end, points, cfg.ZeroMu, cfg.VolatilityFactor, rng), nil
}
