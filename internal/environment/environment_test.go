package environment

import (
	"context"
	"math/rand"
	"testing"

	"cora-sim/internal/priceseries"
)

func TestHistoricalStepAdvancesTimeAndEmitsEvent(t *testing.T) {
	series := priceseries.NewSeries([]priceseries.Point{
		{Time: 0, Price: 100},
		{Time: 3600, Price: 110},
	})
	env := NewHistorical(0, series)
	events := env.Step(3600)
	if env.Now() != 3600 {
		t.Fatalf("expected now=3600, got %d", env.Now())
	}
	if len(events) != 1 || events[0].Type != EventTypeStep {
		t.Fatalf("expected one environment_step event, got %+v", events)
	}
	if env.Price() != 110 {
		t.Fatalf("expected price 110 at t=3600, got %f", env.Price())
	}
}

func TestBrownianContinuesPastHistory(t *testing.T) {
	hist := []priceseries.Point{
		{Time: 0, Price: 100},
		{Time: 3600, Price: 101},
		{Time: 7200, Price: 99},
	}
	rng := rand.New(rand.NewSource(42))
	env := NewBrownian(context.Background(), 0, 3*3600, hist, false, 1.0, rng)
	if env.series.Len() <= len(hist) {
		t.Fatalf("expected continuation to extend series beyond historical length %d, got %d", len(hist), env.series.Len())
	}
	p := env.Price()
	if p <= 0 {
		t.Fatalf("expected positive price, got %f", p)
	}
}
