// Package environment holds simulated time, the shared RNG, and the
// price oracle, advancing once per tick.
package environment

import (
	"context"
	"math/rand"

	"cora-sim/internal/priceseries"
)

// EventType names the single event the environment ever emits.
const EventTypeStep = "environment_step"

// Event mirrors the EventInfo contract: message, time, type, extra.
type Event struct {
	Message string
	Time    int64
	Type    string
	Extra   map[string]any
}

// Environment is the capability every pool/agent needs from the market:
// the current price and the current simulated time.
type Environment interface {
	Now() int64
	Price() float64
	Step(deltaSeconds int64) []Event
}

// Historical is a read-only environment backed by a pre-loaded price
// series; no continuation is generated past its end.
type Historical struct {
	now    int64
	series *priceseries.Series
}

// NewHistorical builds a Historical environment starting at startTime
// over the given series.
func NewHistorical(startTime int64, series *priceseries.Series) *Historical {
	return &Historical{now: startTime, series: series}
}

func (h *Historical) Now() int64      { return h.now }
func (h *Historical) Price() float64  { return h.series.PriceAt(h.now) }
func (h *Historical) History(delta int64) []priceseries.Point {
	return h.series.History(h.now, delta)
}

func (h *Historical) Step(deltaSeconds int64) []Event {
	h.now += deltaSeconds
	return []Event{{
		Message: "environment step",
		Time:    h.now,
		Type:    EventTypeStep,
		Extra: map[string]any{
			"time_step":     deltaSeconds,
			"current_price": h.Price(),
		},
	}}
}

// Brownian extends Historical with a deterministic continuation past the
// last historical observation, generated once at construction from the
// historical log-return statistics.
type Brownian struct {
	*Historical
}

// NewBrownian builds an environment whose series is the given historical
// points followed by a synthetic (geometric-Brownian) continuation from
// the last historical point through end, using rng for every
// continuation draw.
func NewBrownian(ctx context.Context, startTime, end int64, historical []priceseries.Point, zeroMu bool, volatilityFactor float64, rng *rand.Rand) *Brownian {
	base := priceseries.NewSeries(historical)
	mu, sigma := priceseries.EstimateDrift(historical, zeroMu)

	last := base.Last()
	const stepSeconds = 3600
	numNeeded := 0
	if end > last.Time {
		numNeeded = int((end - last.Time) / stepSeconds)
	}
	continuation := priceseries.GenerateContinuation(last, stepSeconds, mu, sigma, volatilityFactor, numNeeded, rng)

	full := append(append([]priceseries.Point(nil), historical...), continuation...)
	series := priceseries.NewSeries(full)
	return &Brownian{Historical: NewHistorical(startTime, series)}
}
