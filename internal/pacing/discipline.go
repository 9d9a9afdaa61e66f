// Package pacing computes the inter-arrival schedule an open-loop launcher
// follows: the next dispatch instant depends only on the previous scheduled
// instant and the target rate, never on when (or whether) earlier streams
// completed.
package pacing

import (
	"math"
	"math/rand"
	"time"
)

// Discipline produces the next scheduled dispatch instant given the
// previous one. Implementations must be safe for single-goroutine,
// sequential use only; the launcher never calls Next concurrently.
type Discipline interface {
	Next(prev time.Time) time.Time
}

// Deterministic paces arrivals at a fixed interval of 1/Rate seconds,
// producing a perfectly even stream.
type Deterministic struct {
	Rate float64
}

func (d Deterministic) Next(prev time.Time) time.Time {
	return prev.Add(time.Duration(float64(time.Second) / d.Rate))
}

// Poisson paces arrivals with exponentially distributed inter-arrival
// times, matching a memoryless Poisson process at the target mean rate.
// Rng must be a per-launcher source, never the shared global rand; two
// concurrent stages must not perturb each other's sequences.
type Poisson struct {
	Rate float64
	Rng  *rand.Rand
}

func (p Poisson) Next(prev time.Time) time.Time {
	u := p.Rng.Float64()
	for u == 0 {
		u = p.Rng.Float64()
	}
	delaySec := -math.Log(u) / p.Rate
	return prev.Add(time.Duration(delaySec * float64(time.Second)))
}
