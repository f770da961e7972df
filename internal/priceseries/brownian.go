package priceseries

import "math"

// NormalSource is the RNG capability the Brownian continuation needs;
// satisfied by distributions.RandSource / *rand.Rand.
type NormalSource interface {
	NormFloat64() float64
}

// GenerateContinuation extends a historical series with numNeeded hourly
// geometric-Brownian steps. mu/sigma are estimated from the historical
// log-returns by the caller (zero_mu support means mu may be forced to
// 0 before calling); volatilityFactor scales the diffusion term. Each
// step compounds multiplicatively from the previous price, matching the
// source's BrownianCoraEnvironment continuation.
func GenerateContinuation(lastPoint Point, stepSeconds int64, mu, sigma, volatilityFactor float64, numNeeded int, rng NormalSource) []Point {
	out := make([]Point, 0, numNeeded)
	price := lastPoint.Price
	t := lastPoint.Time
	f := volatilityFactor
	drift := mu - (sigma*f)*(sigma*f)/2
	for i := 0; i < numNeeded; i++ {
		eps := rng.NormFloat64()
		logReturn := drift + sigma*f*eps
		price *= math.Exp(logReturn)
		t += stepSeconds
		out = append(out, Point{Time: t, Price: price})
	}
	return out
}

// EstimateDrift computes mu/sigma from historical log-returns, forcing mu
// to zero when zeroMu is set.
func EstimateDrift(points []Point, zeroMu bool) (mu, sigma float64) {
	series := NewSeries(points)
	returns := series.LogReturns()
	mean, std := MeanStd(returns)
	if zeroMu {
		mean = 0
	}
	return mean, std
}
