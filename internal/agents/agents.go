// Package agents implements the three scheduled roles: pool manager,
// lender, and borrower.
package agents

import (
	"time"

	"cora-sim/internal/feemodel"
	"cora-sim/internal/lendingpool"
	"cora-sim/internal/priceseries"
)

// Static priorities (lower runs first), per spec §4.6.
const (
	PriorityPoolManager = 0
	PriorityLender      = 1
	PriorityBorrower    = 2
)

// Action mirrors the shared ActionInfo contract.
type Action struct {
	Message string
	AgentID string
	Time    int64
	Type    string
	Extra   map[string]any
}

const (
	ActionCreateLendingPool  = "create_lending_pool"
	ActionUpdateFeeParams    = "update_fee_parameters"
	ActionDeposit            = "deposit"
	ActionBorrow             = "borrow"
	ActionRepay              = "repay"
	ActionLetExpire          = "let_expire"
)

// Agent is the shared capability every scheduled role implements.
type Agent interface {
	ID() string
	Priority() int
	Act(now int64) []Action
}

// Protocol is the subset of protocol.Protocol an agent needs.
type Protocol interface {
	CreateLendingPool(cfg lendingpool.Config, now int64, env lendingpool.PriceOracle, fee lendingpool.FeeModel) error
	LendingPools() []*lendingpool.LendingPool
}

// Environment is the subset of the market environment an agent needs.
type Environment interface {
	Now() int64
	Price() float64
}

// PoolManager creates the pool once, then periodically refreshes its fee
// model's parameters.
type PoolManager struct {
	id      string
	env     Environment
	proto   Protocol
	cfg     lendingpool.Config
	fee     lendingpool.FeeModel
	created bool

	feeModel             feemodelRefresher
	opts                 feemodel.Options
	parameterUpdatePeriod int64
	nextParameterUpdate  int64
}

// feemodelRefresher is the subset of feemodel.Model a PoolManager drives.
type feemodelRefresher interface {
	GetParameters(env feemodel.Environment, opts feemodel.Options) (feemodel.Params, error)
	UpdateParameters(p feemodel.Params)
}

// NewPoolManager constructs a manager that will create cfg's pool using
// fee as its fee model, then refresh parameters every
// parameterUpdatePeriod seconds starting at now.
func NewPoolManager(id string, env Environment, proto Protocol, cfg lendingpool.Config, fee lendingpool.FeeModel, refreshable feemodelRefresher, opts feemodel.Options, now, parameterUpdatePeriod int64) *PoolManager {
	return &PoolManager{
		id: id, env: env, proto: proto, cfg: cfg, fee: fee,
		feeModel: refreshable, opts: opts,
		parameterUpdatePeriod: parameterUpdatePeriod,
		nextParameterUpdate:   now,
	}
}

func (m *PoolManager) ID() string    { return m.id }
func (m *PoolManager) Priority() int { return PriorityPoolManager }

func (m *PoolManager) Act(now int64) []Action {
	var actions []Action
	if !m.created {
		if pools := m.proto.LendingPools(); poolExists(pools, m.cfg.Name) {
			m.created = true
		} else {
			oracle := priceOracleFunc(m.env.Price)
			if err := m.proto.CreateLendingPool(m.cfg, now, oracle, m.fee); err == nil {
				m.created = true
				actions = append(actions, Action{
					Message: "created lending pool", AgentID: m.id, Time: now,
					Type: ActionCreateLendingPool, Extra: map[string]any{"name": m.cfg.Name},
				})
			}
		}
	}

	if m.created && now >= m.nextParameterUpdate && m.feeModel != nil {
		m.nextParameterUpdate += m.parameterUpdatePeriod
		params, err := m.feeModel.GetParameters(envAdapter{m.env}, m.opts)
		if err == nil {
			m.feeModel.UpdateParameters(params)
			actions = append(actions, Action{
				Message: "updated fee parameters", AgentID: m.id, Time: now,
				Type: ActionUpdateFeeParams, Extra: map[string]any{"params": params},
			})
		}
	}
	return actions
}

func poolExists(pools []*lendingpool.LendingPool, name string) bool {
	for _, p := range pools {
		if p.Name() == name {
			return true
		}
	}
	return false
}

type priceOracleFunc func() float64

func (f priceOracleFunc) Price() float64 { return f() }

// HistoryProvider is implemented by environments that can replay recent
// price history, needed by fee models that estimate volatility.
type HistoryProvider interface {
	History(deltaSeconds int64) []priceseries.Point
}

// envAdapter lets an agents.Environment satisfy feemodel.Environment for
// fee-parameter refresh calls. Environments that also implement
// HistoryProvider (e.g. environment.Historical) forward real history;
// others report no history, which volatility-estimating models treat as
// insufficient data.
type envAdapter struct{ Environment }

func (e envAdapter) History(deltaSeconds int64) []priceseries.Point {
	if hp, ok := e.Environment.(HistoryProvider); ok {
		return hp.History(deltaSeconds)
	}
	return nil
}

// Lender deposits its fixed amount into the first pool once, then idles.
type Lender struct {
	id       string
	proto    Protocol
	amount   float64
	deposited bool
	wallet   *lendingpool.Wallet
}

func NewLender(id string, proto Protocol, wallet *lendingpool.Wallet, amount float64) *Lender {
	return &Lender{id: id, proto: proto, wallet: wallet, amount: amount}
}

func (l *Lender) ID() string    { return l.id }
func (l *Lender) Priority() int { return PriorityLender }

func (l *Lender) Act(now int64) []Action {
	if l.deposited {
		return nil
	}
	pools := l.proto.LendingPools()
	if len(pools) == 0 {
		return nil
	}
	if err := pools[0].Deposit(l.wallet, l.amount); err != nil {
		return nil
	}
	l.deposited = true
	return []Action{{
		Message: "deposited liquidity", AgentID: l.id, Time: now,
		Type: ActionDeposit, Extra: map[string]any{"pool": pools[0].Name(), "amount": l.amount},
	}}
}

// BorrowerPlan is the sampled parameter set a borrower acts on.
type BorrowerPlan struct {
	PoolName     string
	LoanSize     float64
	LoanStart    int64
	LoanDuration int64 // seconds
	LTV          float64
	RepayMargin  int64 // seconds
}

// Borrower follows a two-stage plan: borrow at LoanStart, then repay or
// let expire at LoanStart+LoanDuration-RepayMargin.
type Borrower struct {
	id     string
	env    Environment
	proto  Protocol
	wallet *lendingpool.Wallet
	plan   BorrowerPlan

	hasBorrowed bool
	hasExpired  bool
	loanID      string
}

func NewBorrower(id string, env Environment, proto Protocol, wallet *lendingpool.Wallet, plan BorrowerPlan) *Borrower {
	return &Borrower{id: id, env: env, proto: proto, wallet: wallet, plan: plan}
}

func (b *Borrower) ID() string    { return b.id }
func (b *Borrower) Priority() int { return PriorityBorrower }

// PoolName reports which lending pool this borrower's plan targets, used
// by a strategy to scope per-cycle borrower regeneration to one pool.
func (b *Borrower) PoolName() string { return b.plan.PoolName }

func (b *Borrower) Act(now int64) []Action {
	pool := b.findPool()
	if pool == nil {
		return nil
	}

	if !b.hasBorrowed && now >= b.plan.LoanStart {
		if pool.AvailableAmount() < b.plan.LoanSize {
			return nil
		}
		if b.plan.LoanDuration > pool.NextCycleTime()-now {
			return nil
		}
		collateral := b.plan.LoanSize / (b.plan.LTV * b.env.Price())
		loan, err := pool.Borrow(b.wallet, now, b.plan.LoanSize, collateral, time.Duration(b.plan.LoanDuration)*time.Second)
		if err != nil {
			return nil
		}
		b.hasBorrowed = true
		b.loanID = loan.LoanID
		return []Action{{
			Message: "opened loan", AgentID: b.id, Time: now, Type: ActionBorrow,
			Extra: map[string]any{
				"loan_id": loan.LoanID, "collateral_amount": loan.CollateralAmount,
				"net_loan": loan.NetLoan, "borrowing_fee": loan.BorrowingFee,
			},
		}}
	}

	if b.hasBorrowed && !b.hasExpired {
		repayAt := b.plan.LoanStart + b.plan.LoanDuration - b.plan.RepayMargin
		if now >= repayAt {
			collateralValue := b.collateralValueFor(pool)
			if collateralValue > 0 && collateralValue > b.loanDebt(pool) {
				if err := pool.Repay(b.wallet, now, b.loanID); err == nil {
					b.hasExpired = true
					return []Action{{
						Message: "repaid loan", AgentID: b.id, Time: now, Type: ActionRepay,
						Extra: map[string]any{"loan_id": b.loanID},
					}}
				}
			}
			b.hasExpired = true
			return []Action{{
				Message: "let loan expire", AgentID: b.id, Time: now, Type: ActionLetExpire,
				Extra: map[string]any{"loan_id": b.loanID},
			}}
		}
	}
	return nil
}

func (b *Borrower) findPool() *lendingpool.LendingPool {
	for _, p := range b.proto.LendingPools() {
		if p.Name() == b.plan.PoolName {
			return p
		}
	}
	return nil
}

func (b *Borrower) loanForID(pool *lendingpool.LendingPool) *lendingpool.Loan {
	for _, l := range pool.Loans() {
		if l.LoanID == b.loanID {
			return l
		}
	}
	return nil
}

func (b *Borrower) collateralValueFor(pool *lendingpool.LendingPool) float64 {
	loan := b.loanForID(pool)
	if loan == nil {
		return 0
	}
	return loan.CollateralAmount * b.env.Price()
}

func (b *Borrower) loanDebt(pool *lendingpool.LendingPool) float64 {
	loan := b.loanForID(pool)
	if loan == nil {
		return 0
	}
	return loan.TotalDebt
}
