// Package strategy builds the initial protocol and agent population for
// a run, and regenerates the borrower population at the start of every
// lending-pool cycle.
package strategy

import (
	"errors"
	"fmt"

	"cora-sim/internal/agents"
	"cora-sim/internal/distributions"
	"cora-sim/internal/feemodel"
	"cora-sim/internal/protocol"
)

// ErrUnknownFeeModel is returned when a strategy file names a fee_model
// not present in the fee-model registry.
var ErrUnknownFeeModel = errors.New("strategy: unknown fee model")

const unlimitedBalance = 1e9

// Strategy is the shared capability both the V1 and V2 borrower-demand
// models implement.
type Strategy interface {
	// InitialProtocol returns a fresh, empty protocol for the run.
	InitialProtocol() *protocol.Protocol
	// InitialAgents returns the pool manager and lender agents that run
	// for the entire simulation.
	InitialAgents(env agents.Environment, proto *protocol.Protocol) []agents.Agent
	// UpdateAgents drops every borrower once its pool starts a new
	// cycle and regenerates a fresh borrower population for it.
	UpdateAgents(current []agents.Agent, proto *protocol.Protocol, env agents.Environment, timeStepSeconds int64) []agents.Agent
	// SetRNG binds the shared engine RNG to every distribution this
	// strategy samples from.
	SetRNG(rng distributions.Source)
}

// resolveFeeModel constructs the fee model named by a strategy file,
// mirroring strategies.py's FEE_MODELS lookup table. cfg carries the
// static per-model parameters loaded from the run's fee-model TOML
// config; only the Aave constructor reads it (its kink curve), and the
// Black-Scholes constructor ignores it, risk-free rate included.
func resolveFeeModel(name string, cfg feemodel.ModelConfig) (feemodel.Model, error) {
	ctor, ok := feemodel.Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeeModel, name)
	}
	return ctor(cfg), nil
}

// dropBorrowersForPool removes every agents.Borrower targeting poolName
// from current, preserving order and identity of the remainder.
func dropBorrowersForPool(current []agents.Agent, poolName string) []agents.Agent {
	kept := current[:0:0]
	for _, a := range current {
		if b, isBorrower := a.(*agents.Borrower); isBorrower && b.PoolName() == poolName {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

