// Package lendingpool implements the genesis/running lending-pool state
// machine: deposits, withdrawals, loans, repayments, and per-cycle
// settlement.
package lendingpool

// Wallet is the quote/collateral balance pair an agent carries. Primary
// is the lending currency; Secondary is the collateral asset.
type Wallet struct {
	Address   string
	Primary   float64
	Secondary float64
}

// Loan is an immutable record created at borrow time, mutated only by
// Paid flipping false->true at most once on repay.
type Loan struct {
	LoanID           string
	BorrowerAddress  string
	StartTime        int64
	ExpirationTime   int64
	InitialLTV       float64
	CollateralAmount float64
	BorrowingFee     float64
	NetLoan          float64
	TotalDebt        float64
	Paid             bool
}

// DurationDays returns the loan's requested period expressed in days.
func (l Loan) DurationDays() float64 {
	return float64(l.ExpirationTime-l.StartTime) / 86400.0
}

// SizeDays is net_loan * duration_in_days, used in normalized utilization.
func (l Loan) SizeDays() float64 {
	return l.NetLoan * l.DurationDays()
}

// IsExpired reports whether now has passed the loan's expiration time.
func (l Loan) IsExpired(now int64) bool {
	return now > l.ExpirationTime
}

// CycleData is the snapshot taken when a running cycle ends.
type CycleData struct {
	CycleIndex            int
	InitialLiquidity       float64
	RemainingLiquidity     float64
	ReclaimedCollateral    float64
	FeesEarned             float64
	FinalPrice             float64
	FinalCollateralValue   float64
	AverageUtilization     float64
	NormalizedUtilization  float64
	Loans                  []Loan
}

// Status is the pool's genesis/running lifecycle phase.
type Status int

const (
	StatusGenesis Status = iota
	StatusRunning
)

func (s Status) String() string {
	if s == StatusRunning {
		return "running"
	}
	return "genesis"
}

// Config captures the policy a pool is constructed with. It is loaded
// from a static TOML file (see LoadConfig), distinct from the per-run YAML
// config in internal/config.
type Config struct {
	Name            string  `toml:"name"`
	MaxLTV          float64 `toml:"max_ltv"`
	MaxLiquidity    float64 `toml:"max_liquidity"`
	GenesisPeriod   int64   `toml:"genesis_period_seconds"`
	RunningPeriod   int64   `toml:"running_period_seconds"`
	MinLiquidity    float64 `toml:"min_liquidity"`
	MinLoanAmount   float64 `toml:"min_loan_amount"`
	MinLoanPeriod   int64   `toml:"min_loan_period_seconds"`
	MinPositionSize float64 `toml:"min_position_size"`
}

// EnsureDefaults clamps negative optional minima to zero, mirroring the
// teacher's Config.EnsureDefaults convention.
func (c *Config) EnsureDefaults() {
	if c.MinLiquidity < 0 {
		c.MinLiquidity = 0
	}
	if c.MinLoanAmount < 0 {
		c.MinLoanAmount = 0
	}
	if c.MinLoanPeriod < 0 {
		c.MinLoanPeriod = 0
	}
	if c.MinPositionSize < 0 {
		c.MinPositionSize = 0
	}
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	return c
}
