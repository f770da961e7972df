package lendingpool

import "errors"

// Precondition-failure sentinels (spec §7): agents always preflight these
// conditions, so any of them reaching the engine is fatal and indicates
// a bug in the calling agent, not a recoverable run condition.
var (
	ErrInsufficientBalance    = errors.New("lendingpool: insufficient balance")
	ErrInsufficientLiquidity  = errors.New("lendingpool: insufficient liquidity")
	ErrInsufficientCollateral = errors.New("lendingpool: insufficient collateral to reach max ltv")
	ErrLoanAmountTooLow       = errors.New("lendingpool: loan amount too low")
	ErrLoanPeriodTooShort     = errors.New("lendingpool: loan period too short")
	ErrLoanPeriodTooLong      = errors.New("lendingpool: loan period too long")
	ErrLoanExpired            = errors.New("lendingpool: loan has expired")
	ErrUnknownBorrower        = errors.New("lendingpool: wallet has no outstanding loans")
	ErrInvalidLoanID          = errors.New("lendingpool: loan id is invalid for borrower address")
	ErrPoolNotRunning         = errors.New("lendingpool: pool is not running")
	ErrPoolAlreadyRunning     = errors.New("lendingpool: pool is running")
)
