// Package plan expands a rate range and step/multiplier into the ordered
// list of stages the orchestrator drives one at a time.
package plan

import (
	"fmt"
	"math"
	"time"

	"extprocbench/internal/apperr"
)

// MaxStages bounds stage expansion against a misconfigured multiplier close
// to 1.0, which would otherwise approach Start..End asymptotically and
// never terminate in practice.
const MaxStages = 1000

// Config describes a rate sweep: from Start to End requests/sec, advancing
// each stage additively by Step or, only when Step is 0, multiplicatively
// by Multiplier, holding each stage for StepDuration.
type Config struct {
	Start        float64
	End          float64
	Step         float64
	Multiplier   float64
	StepDuration time.Duration
}

// Stage is one element of the sweep: a target rate held for Duration,
// identified by its 0-based position in the sweep.
type Stage struct {
	Index    int
	RateSPS  float64
	Duration time.Duration
}

// Build expands cfg into the ordered stage list. Start, End, Step, and
// Multiplier must all be finite; Start must be positive; End must be at
// least Start; and at least one of Step or Multiplier must actually move
// the rate forward when End is strictly greater than Start.
func Build(cfg Config) ([]Stage, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	if cfg.End == cfg.Start {
		return []Stage{{Index: 0, RateSPS: cfg.Start, Duration: cfg.StepDuration}}, nil
	}

	var stages []Stage
	rate := cfg.Start
	for {
		stages = append(stages, Stage{
			Index:    len(stages),
			RateSPS:  rate,
			Duration: cfg.StepDuration,
		})
		if rate >= cfg.End {
			break
		}
		if len(stages) >= MaxStages {
			return nil, fmt.Errorf("%w: sweep exceeded %d stages without reaching end rate %g (check step/multiplier)", apperr.ErrInvalidPlan, MaxStages, cfg.End)
		}

		next := rate
		if cfg.Step != 0 {
			next += cfg.Step
		} else if cfg.Multiplier > 1 {
			next *= cfg.Multiplier
		}
		if next <= rate {
			return nil, fmt.Errorf("%w: step/multiplier do not advance the rate past %g", apperr.ErrInvalidPlan, rate)
		}
		if next > cfg.End {
			next = cfg.End
		}
		rate = next
	}
	return stages, nil
}

func validate(cfg Config) error {
	for name, v := range map[string]float64{
		"start": cfg.Start, "end": cfg.End, "step": cfg.Step, "multiplier": cfg.Multiplier,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", apperr.ErrInvalidPlan, name, v)
		}
	}
	if cfg.Start <= 0 {
		return fmt.Errorf("%w: start rate must be positive, got %g", apperr.ErrInvalidPlan, cfg.Start)
	}
	if cfg.End < cfg.Start {
		return fmt.Errorf("%w: end rate %g is less than start rate %g", apperr.ErrInvalidPlan, cfg.End, cfg.Start)
	}
	if cfg.End > cfg.Start && cfg.Step == 0 && cfg.Multiplier <= 1 {
		return fmt.Errorf("%w: end rate exceeds start rate but neither step nor multiplier advances it", apperr.ErrInvalidPlan)
	}
	if cfg.StepDuration <= 0 {
		return fmt.Errorf("%w: step duration must be positive", apperr.ErrInvalidPlan)
	}
	return nil
}
