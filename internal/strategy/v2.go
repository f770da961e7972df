package strategy

import (
	"fmt"
	"math"

	"cora-sim/internal/agents"
	"cora-sim/internal/distributions"
	"cora-sim/internal/feemodel"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/protocol"
)

// PoolNameV2 is the fixed lending-pool name CoraV2Strategy creates.
const PoolNameV2 = "V2LendingPool"

// V2Strategy regenerates borrowers every cycle by accumulating each
// candidate's marginal utilization (loan_size/available * duration/
// running_period) until the next one would push the running sum over
// borrower_demand_ratio, rather than V1's flat loan-size cap.
type V2Strategy struct {
	params      V2Params
	modelConfig feemodel.ModelConfig

	managerCount, lenderCount, borrowerCount int
}

// NewV2Strategy validates params.FeeModel against the registry and
// returns a ready-to-run strategy. The fee model's static parameters
// default to feemodel.ModelConfig{}'s zero value; call SetModelConfig to
// wire in a run's fee-model TOML config.
func NewV2Strategy(params V2Params) (*V2Strategy, error) {
	if _, err := resolveFeeModel(params.FeeModel, feemodel.ModelConfig{}); err != nil {
		return nil, err
	}
	return &V2Strategy{params: params}, nil
}

// SetModelConfig wires the run's static fee-model parameters into every
// fee model this strategy constructs from here on.
func (s *V2Strategy) SetModelConfig(cfg feemodel.ModelConfig) {
	s.modelConfig = cfg
}

func (s *V2Strategy) SetRNG(rng distributions.Source) {
	s.params.LoanSizeDist.SetRNG(rng)
	s.params.LoanStartDist.SetRNG(rng)
	s.params.LoanDurationDist.SetRNG(rng)
	s.params.LtvDist.SetRNG(rng)
}

func (s *V2Strategy) InitialProtocol() *protocol.Protocol { return protocol.New() }

func (s *V2Strategy) InitialAgents(env agents.Environment, proto *protocol.Protocol) []agents.Agent {
	managerID := fmt.Sprintf("poolmanager_%06d", s.managerCount)
	s.managerCount++
	fee, _ := resolveFeeModel(s.params.FeeModel, s.modelConfig) // validated in NewV2Strategy

	cfg := lendingpool.Config{
		Name:          PoolNameV2,
		MaxLTV:        s.params.MaxLTV,
		MaxLiquidity:  s.params.MaxLiquidity,
		GenesisPeriod: s.params.GenesisPeriodSeconds,
		RunningPeriod: s.params.RunningPeriodSeconds,
	}
	manager := agents.NewPoolManager(
		managerID, env, proto, cfg, fee, fee,
		s.params.FeeModelUpdateParams.ToOptions(),
		env.Now(), s.params.FeeModelUpdateIntervalSeconds,
	)

	lenderID := fmt.Sprintf("lender_%06d", s.lenderCount)
	s.lenderCount++
	lenderWallet := &lendingpool.Wallet{Address: lenderID, Primary: unlimitedBalance, Secondary: unlimitedBalance}
	lender := agents.NewLender(lenderID, proto, lenderWallet, s.params.InitialLendingAmount)

	return []agents.Agent{manager, lender}
}

func (s *V2Strategy) UpdateAgents(current []agents.Agent, proto *protocol.Protocol, env agents.Environment, timeStepSeconds int64) []agents.Agent {
	for _, pool := range proto.LendingPools() {
		if !pool.IsNewCycle() {
			continue
		}
		current = dropBorrowersForPool(current, pool.Name())
		current = append(current, s.createBorrowerAgents(env, proto, pool, timeStepSeconds)...)
	}
	return current
}

// createBorrowerAgents samples borrowers until the next one would push
// cumulative marginal utilization over borrower_demand_ratio, matching
// CoraV2Strategy._create_borrower_agents.
func (s *V2Strategy) createBorrowerAgents(env agents.Environment, proto *protocol.Protocol, pool *lendingpool.LendingPool, timeStepSeconds int64) []agents.Agent {
	availableLiquidity := pool.AvailableAmount()
	runningPeriod := float64(pool.RunningPeriodSeconds())
	step := float64(timeStepSeconds)

	var newAgents []agents.Agent
	marginalUtilizationSum := 0.0
	for {
		loanSize := s.params.LoanSizeDist.Sample(nil)

		loanStartFactor := s.params.LoanStartDist.Sample(nil)
		loanStartDelta := loanStartFactor * runningPeriod
		loanStart := env.Now() + int64(loanStartDelta)

		maxDuration := runningPeriod - loanStartDelta
		durationFactor := s.params.LoanDurationDist.Sample(nil)
		loanDuration := durationFactor*(maxDuration-2*step) + step
		if loanDuration < step {
			loanDuration = step
		}

		liquidityRatio := loanSize / availableLiquidity
		durationRatio := loanDuration / runningPeriod
		marginalUtilization := liquidityRatio * durationRatio

		if marginalUtilizationSum+marginalUtilization > s.params.BorrowerDemandRatio {
			break
		}

		borrowerID := fmt.Sprintf("borrower_%06d", s.borrowerCount)
		s.borrowerCount++

		ltvFactor := s.params.LtvDist.Sample(nil)
		ltv := math.Min(ltvFactor, s.params.MaxLTV-1e-9)

		wallet := &lendingpool.Wallet{Address: borrowerID, Primary: unlimitedBalance, Secondary: unlimitedBalance}
		plan := agents.BorrowerPlan{
			PoolName: pool.Name(), LoanSize: loanSize, LoanStart: loanStart,
			LoanDuration: int64(loanDuration), LTV: ltv, RepayMargin: timeStepSeconds,
		}
		newAgents = append(newAgents, agents.NewBorrower(borrowerID, env, proto, wallet, plan))
		marginalUtilizationSum += marginalUtilization
	}
	return newAgents
}
