package lendingpool

import (
	"fmt"
	"time"
)

// Event mirrors the shared EventInfo contract: message, time, type, extra.
type Event struct {
	Message string
	Time    int64
	Type    string
	Extra   map[string]any
}

const (
	EventGenesisEnded = "lending_pool_genesis_period_ended"
	EventCycleEnded   = "lending_pool_running_period_ended"
)

// PriceOracle is the subset of the environment a pool needs: the current
// collateral price.
type PriceOracle interface {
	Price() float64
}

// FeeModel is the subset of the fee-model capability a pool needs at
// borrow time.
type FeeModel interface {
	GetFee(ltv, utilization float64, loanPeriod time.Duration) (float64, error)
}

// LendingPool is the genesis/running state machine described in spec §4.4.
type LendingPool struct {
	cfg Config
	env PriceOracle
	fee FeeModel

	status        Status
	nextCycleTime int64
	cycleCount    int
	isNewCycle    bool

	pendingDeposits     map[string]float64
	signaledWithdrawals map[string]float64
	pendingWithdrawals  map[string]float64
	reclaimedCollateral map[string]float64
	deposits            map[string]float64

	loans         map[string]*Loan
	borrowerLoans map[string][]string
	loanOrder     []string // insertion order, for deterministic iteration

	utilizations []float64
	cycleHistory map[int]CycleData

	totalDeposits        float64
	totalCollateralLocked float64
	availableAmount      float64
	borrowedAmount       float64
	totalFeesEarned      float64
}

// New constructs a pool at genesis, with next_cycle_time = now + genesis_period.
func New(cfg Config, now int64, env PriceOracle, fee FeeModel) *LendingPool {
	cfg.EnsureDefaults()
	return &LendingPool{
		cfg:                 cfg,
		env:                 env,
		fee:                 fee,
		status:              StatusGenesis,
		nextCycleTime:       now + cfg.GenesisPeriod,
		pendingDeposits:     map[string]float64{},
		signaledWithdrawals: map[string]float64{},
		pendingWithdrawals:  map[string]float64{},
		reclaimedCollateral: map[string]float64{},
		deposits:            map[string]float64{},
		loans:               map[string]*Loan{},
		borrowerLoans:       map[string][]string{},
		cycleHistory:        map[int]CycleData{},
	}
}

func (p *LendingPool) Name() string           { return p.cfg.Name }
func (p *LendingPool) Status() Status         { return p.status }
func (p *LendingPool) IsNewCycle() bool       { return p.isNewCycle }
func (p *LendingPool) AvailableAmount() float64 { return p.availableAmount }
func (p *LendingPool) BorrowedAmount() float64  { return p.borrowedAmount }
func (p *LendingPool) TotalDeposits() float64   { return p.totalDeposits }
func (p *LendingPool) TotalCollateralLocked() float64 { return p.totalCollateralLocked }
func (p *LendingPool) TotalFeesEarned() float64 { return p.totalFeesEarned }
func (p *LendingPool) CycleCount() int          { return p.cycleCount }
func (p *LendingPool) NextCycleTime() int64     { return p.nextCycleTime }
func (p *LendingPool) MaxLTV() float64          { return p.cfg.MaxLTV }
func (p *LendingPool) RunningPeriodSeconds() int64 { return p.cfg.RunningPeriod }

// Loans returns every loan the pool holds (repaid ones included) in
// insertion order. Callers must not
// mutate the returned slice's backing Loan pointers' exported fields
// directly; use the pool's operations.
func (p *LendingPool) Loans() []*Loan {
	out := make([]*Loan, 0, len(p.loanOrder))
	for _, id := range p.loanOrder {
		if l, ok := p.loans[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (p *LendingPool) BorrowerLoanIDs(address string) []string {
	return append([]string(nil), p.borrowerLoans[address]...)
}

func (p *LendingPool) CycleHistory() map[int]CycleData { return p.cycleHistory }

// utilizationRatio is the tick-history utilization: 0 when both borrowed
// and available are 0, distinct from getCurrentUtilization (spec Open
// Question a).
func (p *LendingPool) utilizationRatio() float64 {
	denom := p.borrowedAmount + p.availableAmount
	if denom == 0 {
		return 0
	}
	return p.borrowedAmount / denom
}

// getCurrentUtilization is the fee-calculation-time utilization: 1.0 when
// available is 0, distinct from utilizationRatio.
func (p *LendingPool) getCurrentUtilization() float64 {
	if p.availableAmount == 0 {
		return 1.0
	}
	denom := p.borrowedAmount + p.availableAmount
	return p.borrowedAmount / denom
}

// CurrentUtilization exposes getCurrentUtilization for metric reporting.
func (p *LendingPool) CurrentUtilization() float64 { return p.getCurrentUtilization() }

// TakeStep advances the pool by deltaSeconds, handling cycle transitions.
// Step ordering is load-bearing: utilization is appended to history
// BEFORE the cycle-transition boundary is evaluated (spec §4.4, §9
// Open Question b).
func (p *LendingPool) TakeStep(now int64, deltaSeconds int64) []Event {
	p.utilizations = append(p.utilizations, p.utilizationRatio())

	if now < p.nextCycleTime {
		p.isNewCycle = false
		return nil
	}

	var events []Event
	if p.status == StatusGenesis {
		p.status = StatusRunning
		p.deposits = cloneMap(p.pendingDeposits)
		p.cycleCount++
		events = append(events, Event{
			Message: "genesis period ended",
			Time:    now,
			Type:    EventGenesisEnded,
			Extra:   map[string]any{"lending_pool": p.cfg.Name},
		})
	} else {
		p.cycleCount++
		p.settleCycle(now)
		events = append(events, Event{
			Message: "running period ended",
			Time:    now,
			Type:    EventCycleEnded,
			Extra:   map[string]any{"cycle_number": p.cycleCount, "lending_pool": p.cfg.Name},
		})
	}

	p.resetCycleBookkeeping(now)
	p.isNewCycle = true
	return events
}

// settleCycle performs the ownership-ratio redistribution and cycle-data
// capture for the end of a running cycle (spec §4.4 step 3b).
func (p *LendingPool) settleCycle(now int64) {
	finalLiquidity := map[string]float64{}
	for addr, amount := range p.deposits {
		ratio := 0.0
		if p.totalDeposits != 0 {
			ratio = amount / p.totalDeposits
		}
		finalLiquidity[addr] = ratio * p.availableAmount
		p.reclaimedCollateral[addr] += ratio * p.totalCollateralLocked
	}

	for addr, ratio := range p.signaledWithdrawals {
		fl := finalLiquidity[addr]
		withdrawn := fl * ratio
		p.pendingWithdrawals[addr] += withdrawn
		finalLiquidity[addr] = fl - withdrawn
	}

	newDeposits := cloneMap(p.pendingDeposits)
	for addr, residual := range finalLiquidity {
		if residual > 0 {
			newDeposits[addr] += residual
		}
	}
	p.deposits = newDeposits

	avgUtil := mean(p.utilizations)
	runningPeriodDays := float64(p.cfg.RunningPeriod) / 86400.0
	denom := checkDivZero(p.totalDeposits * runningPeriodDays)
	var sizeDays float64
	closingLoans := p.Loans()
	for _, l := range closingLoans {
		sizeDays += l.SizeDays()
	}
	normalizedUtil := sizeDays / denom

	price := 0.0
	if p.env != nil {
		price = p.env.Price()
	}

	p.cycleHistory[p.cycleCount] = CycleData{
		CycleIndex:            p.cycleCount,
		InitialLiquidity:      p.totalDeposits,
		RemainingLiquidity:    p.availableAmount,
		ReclaimedCollateral:   p.totalCollateralLocked,
		FeesEarned:            p.totalFeesEarned,
		FinalPrice:            price,
		FinalCollateralValue:  price * p.totalCollateralLocked,
		AverageUtilization:    avgUtil,
		NormalizedUtilization: normalizedUtil,
		Loans:                 copyLoans(closingLoans),
	}
}

func (p *LendingPool) resetCycleBookkeeping(now int64) {
	p.pendingDeposits = map[string]float64{}
	p.signaledWithdrawals = map[string]float64{}
	p.borrowerLoans = map[string][]string{}
	p.loans = map[string]*Loan{}
	p.loanOrder = nil
	p.utilizations = nil

	p.totalDeposits = sumMap(p.deposits)
	p.availableAmount = p.totalDeposits
	p.totalCollateralLocked = 0
	p.borrowedAmount = 0
	p.totalFeesEarned = 0
	p.nextCycleTime += p.cfg.RunningPeriod
}

// Deposit records lender funds to arrive next cycle. Allowed in any status.
func (p *LendingPool) Deposit(w *Wallet, amount float64) error {
	if w.Primary < amount {
		return ErrInsufficientBalance
	}
	w.Primary -= amount
	p.pendingDeposits[w.Address] += amount
	return nil
}

// SignalWithdrawal records a withdrawal ratio applied at the next cycle
// boundary. Only valid in Running, for an address with a deposit.
func (p *LendingPool) SignalWithdrawal(address string, ratio float64) error {
	if p.status != StatusRunning {
		return ErrPoolNotRunning
	}
	if _, ok := p.deposits[address]; !ok {
		return ErrUnknownBorrower
	}
	p.signaledWithdrawals[address] = ratio
	return nil
}

// WithdrawLiquidity pulls from pending deposits first, then pending
// withdrawals, crediting the wallet.
func (p *LendingPool) WithdrawLiquidity(w *Wallet, amount float64) error {
	remaining := amount
	if p.pendingDeposits[w.Address] > 0 {
		take := min(remaining, p.pendingDeposits[w.Address])
		p.pendingDeposits[w.Address] -= take
		remaining -= take
	}
	if remaining > 0 {
		if p.pendingWithdrawals[w.Address] < remaining {
			return ErrInsufficientBalance
		}
		p.pendingWithdrawals[w.Address] -= remaining
	}
	w.Primary += amount
	return nil
}

// WithdrawCollateral debits reclaimed collateral, crediting the wallet's
// secondary balance.
func (p *LendingPool) WithdrawCollateral(w *Wallet, amount float64) error {
	if p.reclaimedCollateral[w.Address] < amount {
		return ErrInsufficientBalance
	}
	p.reclaimedCollateral[w.Address] -= amount
	w.Secondary += amount
	return nil
}

// Borrow opens a loan, validating every precondition in spec §4.4 order.
func (p *LendingPool) Borrow(w *Wallet, now int64, borrowAmount, collateralAmount float64, loanPeriod time.Duration) (*Loan, error) {
	if p.status != StatusRunning {
		return nil, ErrPoolNotRunning
	}
	price := p.env.Price()
	value := collateralAmount * price
	ltv := borrowAmount / value

	if borrowAmount < p.cfg.MinLoanAmount {
		return nil, ErrLoanAmountTooLow
	}
	if borrowAmount > value*p.cfg.MaxLTV {
		return nil, ErrInsufficientCollateral
	}
	if w.Secondary < collateralAmount {
		return nil, ErrInsufficientBalance
	}
	if p.availableAmount < borrowAmount {
		return nil, ErrInsufficientLiquidity
	}
	periodSeconds := int64(loanPeriod.Seconds())
	if periodSeconds < p.cfg.MinLoanPeriod {
		return nil, ErrLoanPeriodTooShort
	}
	if periodSeconds > p.nextCycleTime-now {
		return nil, ErrLoanPeriodTooLong
	}

	fee, err := p.fee.GetFee(ltv, p.getCurrentUtilization(), loanPeriod)
	if err != nil {
		return nil, fmt.Errorf("lendingpool: fee model: %w", err)
	}
	borrowingFee := fee * borrowAmount
	net := borrowAmount - borrowingFee

	p.totalCollateralLocked += collateralAmount
	p.availableAmount -= net
	p.borrowedAmount += net
	w.Secondary -= collateralAmount
	w.Primary += net

	expiration := now + periodSeconds
	loan := &Loan{
		LoanID:           fmt.Sprintf("%s-%s-%d", p.cfg.Name, w.Address, expiration),
		BorrowerAddress:  w.Address,
		StartTime:        now,
		ExpirationTime:   expiration,
		InitialLTV:       ltv,
		CollateralAmount: collateralAmount,
		BorrowingFee:     borrowingFee,
		NetLoan:          net,
		TotalDebt:        borrowAmount,
	}
	p.loans[loan.LoanID] = loan
	p.loanOrder = append(p.loanOrder, loan.LoanID)
	p.borrowerLoans[w.Address] = append(p.borrowerLoans[w.Address], loan.LoanID)
	return loan, nil
}

// Repay closes an outstanding loan for a borrower.
func (p *LendingPool) Repay(w *Wallet, now int64, loanID string) error {
	if p.status != StatusRunning {
		return ErrPoolNotRunning
	}
	ids := p.borrowerLoans[w.Address]
	found := false
	for _, id := range ids {
		if id == loanID {
			found = true
			break
		}
	}
	if !found {
		return ErrInvalidLoanID
	}
	loan, ok := p.loans[loanID]
	if !ok {
		return ErrInvalidLoanID
	}
	if now > loan.ExpirationTime {
		return ErrLoanExpired
	}
	if w.Primary < loan.TotalDebt {
		return ErrInsufficientBalance
	}

	p.availableAmount += loan.TotalDebt
	p.borrowedAmount -= loan.NetLoan
	p.totalCollateralLocked -= loan.CollateralAmount
	p.totalFeesEarned += loan.BorrowingFee
	w.Primary -= loan.TotalDebt
	w.Secondary += loan.CollateralAmount

	p.borrowerLoans[w.Address] = removeString(p.borrowerLoans[w.Address], loanID)
	loan.Paid = true
	return nil
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

func cloneMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sumMap(m map[string]float64) float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func checkDivZero(v float64) float64 {
	if v == 0 {
		return 1e-10
	}
	return v
}

func copyLoans(loans []*Loan) []Loan {
	out := make([]Loan, len(loans))
	for i, l := range loans {
		out[i] = *l
	}
	return out
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
