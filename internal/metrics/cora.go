package metrics

import (
	"math"

	"cora-sim/internal/lendingpool"
)

// LoanSizeRanges are the log-spaced bin edges the "size" loan dimension
// bins into, resolved from protocols/cora/v1/metrics.py's
// LOAN_SIZE_RANGES.
var LoanSizeRanges = []float64{
	1000, 1585, 2512, 3981, 6310, 10000, 15849, 25119, 39811, 63096, 100000,
}

// Environment is the subset of the market environment a by_step/
// end_of_simulation read needs.
type Environment interface {
	Price() float64
}

// Protocol is the subset of the protocol a metrics read needs.
type Protocol interface {
	LendingPools() []*lendingpool.LendingPool
	LendingPool(name string) *lendingpool.LendingPool
}

// ByStep computes one tick's metric record for the first registered
// lending pool, matching CoraMetrics.by_step. A run with more than one
// pool only reports the first, matching the original's single-pool
// assumption.
func ByStep(now int64, env Environment, proto Protocol) Metric {
	pools := proto.LendingPools()
	if len(pools) == 0 {
		return emptyByStep(env.Price())
	}
	return poolByStep(now, env.Price(), pools[0])
}

func emptyByStep(price float64) Metric {
	Prometheus().RecordStep(0, 0)
	out := Metric{
		"collateral_price": price, "pool_utilization": 0.0, "pool_liquid_capital": 0.0,
		"pool_capital_lent": 0.0, "active_loans_count": 0, "defaulted_loans_count": 0,
		"paid_loans_count": 0, "expired_loans_count": 0, "total_loans_count": 0,
		"reclaimed_collateral": 0.0, "active_loan_collateral": 0.0, "active_loans_amount": 0.0,
		"collateral_ratio": 0.0, "pool_realized_pnl": 0.0, "pool_unrealized_pnl": 0.0,
		"borrows": 0, "earned_fees": 0.0, "sum_of_fees": 0.0,
	}
	// metrics.py's no-pool by_step branch still calls _get_binned_metrics(),
	// emitting zero-count hist-*/dist-* keys over empty loan sets; runDelta
	// is a dummy nonzero value (never read, since the binners' feature
	// functions are never invoked against an empty slice).
	mergeInto(out, binnedMetrics(nil, nil, nil, nil, 1, 0))
	return out
}

func poolByStep(now int64, price float64, pool *lendingpool.LendingPool) Metric {
	loans := pool.Loans()
	active, expired, repaid, defaulted := classifyLoans(loans, now)
	Prometheus().RecordStep(len(active), len(defaulted))

	capitalLentActive := sumNetLoan(active)
	capitalLentDefaulted := sumNetLoan(defaulted)

	reclaimedCollateral := sumCollateral(defaulted)
	activeLoanCollateral := sumCollateral(active)

	reclaimedValue := reclaimedCollateral * price
	activeValue := activeLoanCollateral * price

	earnedFees := sumFees(repaid)
	collateralRatio := SafeDivide(activeValue, capitalLentActive)
	realizedPnl := earnedFees + reclaimedValue - capitalLentDefaulted

	unrealizedPnl := realizedPnl
	for _, l := range active {
		unrealizedPnl += math.Min(price*l.CollateralAmount, l.TotalDebt) - l.NetLoan
	}

	out := Metric{
		"collateral_price":       price,
		"pool_utilization":       pool.CurrentUtilization(),
		"pool_liquid_capital":    pool.AvailableAmount(),
		"pool_capital_lent":      capitalLentActive,
		"active_loans_count":    len(active),
		"defaulted_loans_count": len(defaulted),
		"paid_loans_count":      len(repaid),
		"expired_loans_count":   len(expired),
		"total_loans_count":     len(loans),
		"reclaimed_collateral":   reclaimedCollateral,
		"active_loan_collateral": activeLoanCollateral,
		"active_loans_amount":    capitalLentActive,
		"collateral_ratio":       collateralRatio,
		"pool_realized_pnl":      realizedPnl,
		"pool_unrealized_pnl":    unrealizedPnl,
		"borrows":                len(loans),
		"earned_fees":            earnedFees,
		"sum_of_fees":            sumFees(loans),
	}
	mergeInto(out, binnedMetrics(active, defaulted, repaid, loans, pool.RunningPeriodSeconds(), pool.NextCycleTime()))
	return out
}

// CustomEvents scans events for cycle-end markers and emits one
// "cycle_end" metric per ended cycle, matching CoraMetrics.custom_events.
func CustomEvents(proto Protocol, events []lendingpool.Event) map[string][]Metric {
	out := map[string][]Metric{}
	for _, event := range events {
		if event.Type != lendingpool.EventCycleEnded {
			continue
		}
		poolName, _ := event.Extra["lending_pool"].(string)
		cycleNumber, _ := event.Extra["cycle_number"].(int)

		pool := proto.LendingPool(poolName)
		if pool == nil {
			continue
		}
		cycle, ok := pool.CycleHistory()[cycleNumber]
		if !ok {
			continue
		}

		runDelta := pool.RunningPeriodSeconds()
		runEnd := pool.NextCycleTime() - runDelta

		cycleLoans := make([]*lendingpool.Loan, len(cycle.Loans))
		for i := range cycle.Loans {
			cycleLoans[i] = &cycle.Loans[i]
		}
		var repaidLoans, defaultedLoans []*lendingpool.Loan
		for _, l := range cycleLoans {
			if l.Paid {
				repaidLoans = append(repaidLoans, l)
			} else {
				defaultedLoans = append(defaultedLoans, l)
			}
		}

		pnl := cycle.RemainingLiquidity + cycle.FinalCollateralValue - cycle.InitialLiquidity
		liquidityChange := cycle.RemainingLiquidity - cycle.InitialLiquidity

		metric := Metric{
			"lending_pool":             poolName,
			"cycle_number":             cycleNumber,
			"pnl":                      pnl,
			"liquidity_change":         liquidityChange,
			"pnl_ratio":                SafeDivide(pnl, cycle.InitialLiquidity),
			"liquidity_change_ratio":   SafeDivide(liquidityChange, cycle.InitialLiquidity),
			"total_earned_fees":        cycle.FeesEarned,
			"total_reclaimed_collateral": cycle.ReclaimedCollateral,
			"collateral_value":         cycle.FinalCollateralValue,
			"initial_liquidity":        cycle.InitialLiquidity,
			"final_liquidity":          cycle.RemainingLiquidity,
			"average_utilization":      cycle.AverageUtilization,
			"normalized_utilization":   cycle.NormalizedUtilization,
			"num_loans":                len(cycleLoans),
		}
		mergeInto(metric, binnedMetrics(nil, defaultedLoans, repaidLoans, cycleLoans, runDelta, runEnd))
		out["cycle_end"] = append(out["cycle_end"], metric)
	}
	return out
}

// EndOfSimulation computes the terminal metric record, matching
// CoraMetrics.end_of_simulation. pool_pnl equals the last by_step tick's
// pool_realized_pnl because both apply the same formula to the same pool
// state at the same instant.
func EndOfSimulation(now int64, env Environment, proto Protocol) Metric {
	pools := proto.LendingPools()
	if len(pools) == 0 {
		return Metric{"pool_pnl": 0.0, "ratio_loans_defaulted": 0.0, "lending_fees": 0.0}
	}
	pool := pools[0]
	price := env.Price()
	loans := pool.Loans()
	active, _, repaid, defaulted := classifyLoans(loans, now)

	// capital/collateral sums cover defaulted loans only, the same
	// realized-pnl formula by_step uses for pool_realized_pnl.
	capitalLentDefaulted := sumNetLoan(defaulted)
	reclaimedCollateral := sumCollateral(defaulted)

	realizedPnl := sumFees(repaid) + reclaimedCollateral*price - capitalLentDefaulted

	out := Metric{
		"pool_pnl":              realizedPnl,
		"ratio_loans_defaulted": SafeDivide(float64(len(defaulted)), float64(len(loans))),
		"lending_fees":          sumFees(loans),
	}
	mergeInto(out, binnedMetrics(active, defaulted, repaid, loans, pool.RunningPeriodSeconds(), pool.NextCycleTime()))
	return out
}

func classifyLoans(loans []*lendingpool.Loan, now int64) (active, expired, repaid, defaulted []*lendingpool.Loan) {
	for _, l := range loans {
		isExpired := l.IsExpired(now)
		if isExpired {
			expired = append(expired, l)
			if l.Paid {
				repaid = append(repaid, l)
			} else {
				defaulted = append(defaulted, l)
			}
		} else if !l.Paid {
			active = append(active, l)
		}
	}
	return active, expired, repaid, defaulted
}

func sumNetLoan(loans []*lendingpool.Loan) float64 {
	var total float64
	for _, l := range loans {
		total += l.NetLoan
	}
	return total
}

func sumCollateral(loans []*lendingpool.Loan) float64 {
	var total float64
	for _, l := range loans {
		total += l.CollateralAmount
	}
	return total
}

func sumFees(loans []*lendingpool.Loan) float64 {
	var total float64
	for _, l := range loans {
		total += l.BorrowingFee
	}
	return total
}

func mergeInto(dst, src Metric) {
	for k, v := range src {
		dst[k] = v
	}
}

// loanBinners builds the ltv/duration/start/size dimension binners for a
// cycle of length runDelta seconds ending at runEnd (unix seconds).
func loanBinners(runDelta, runEnd int64) []Binner[*lendingpool.Loan] {
	delta := float64(runDelta)
	end := float64(runEnd)
	return []Binner[*lendingpool.Loan]{
		NewBinner("ltv", func(l *lendingpool.Loan) float64 { return l.InitialLTV }),
		NewBinner("duration", func(l *lendingpool.Loan) float64 {
			return float64(l.ExpirationTime-l.StartTime) / delta
		}),
		NewBinner("start", func(l *lendingpool.Loan) float64 {
			return 1 - (end-float64(l.StartTime))/delta
		}),
		NewBinner("size", func(l *lendingpool.Loan) float64 { return l.NetLoan }, LoanSizeRanges...),
	}
}

// binnedMetrics runs every loan-dimension binner over every loan set,
// matching CoraMetrics._get_binned_metrics.
func binnedMetrics(active, defaulted, repaid, all []*lendingpool.Loan, runDelta, runEnd int64) Metric {
	if runDelta == 0 {
		return Metric{}
	}
	binners := loanBinners(runDelta, runEnd)
	out := Metric{}
	mergeInto(out, ApplyBinners(active, binners, "hist-active_loans", nil))
	mergeInto(out, ApplyBinners(defaulted, binners, "hist-defaulted_loans", nil))
	mergeInto(out, ApplyBinners(repaid, binners, "hist-repaid_loans", nil))
	mergeInto(out, ApplyBinners(all, binners, "hist-loans", nil))
	mergeInto(out, ApplyBinners(all, binners, "dist-loan_fees", func(ls []*lendingpool.Loan) float64 {
		return sumFees(ls)
	}))
	return out
}
