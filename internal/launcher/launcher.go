// Package launcher drives one stage of the sweep: it schedules stream
// dispatches at the pace a Discipline computes and fires each one into its
// own goroutine without ever waiting for it to finish.
package launcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"extprocbench/internal/apperr"
	"extprocbench/internal/clockwork"
	"extprocbench/internal/collector"
	"extprocbench/internal/extproc"
	"extprocbench/internal/pacing"
	"extprocbench/internal/plan"
)

// Driver is anything that can run one ext_proc stream and report its
// outcome; *extproc.Driver satisfies this.
type Driver interface {
	Run(ctx context.Context) extproc.Sample
}

// StageStats summarizes one stage's dispatch behavior for the orchestrator's
// per-stage log line and saturation check.
type StageStats struct {
	Scheduled int
	Launched  int
	Dropped   int64
}

// Run schedules dispatches for stage's duration at the pace discipline
// computes, starting from clock.Now(). Each dispatch spawns its own
// goroutine that runs driver.Run and submits the outcome to collector; the
// launcher never awaits a dispatch before scheduling the next one. At
// stage end, Run waits up to grace for outstanding goroutines, then, if
// grace expires, cancels the stage context so in-flight drivers abandon
// their stream.
func Run(ctx context.Context, clock clockwork.Clock, stage plan.Stage, discipline pacing.Discipline, driver Driver, coll *collector.Collector, grace time.Duration) (*StageStats, error) {
	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := clock.Now()
	deadline := start.Add(stage.Duration)

	var wg sync.WaitGroup
	stats := &StageStats{}

	next := start
	for {
		if next.After(deadline) {
			break
		}
		if err := clock.SleepUntil(stageCtx, next); err != nil {
			break
		}
		stats.Scheduled++
		wg.Add(1)
		go func() {
			defer wg.Done()
			sample := driver.Run(stageCtx)
			_ = coll.Submit(collector.Sample{
				LatencyNS: int64(sample.Latency),
				Failed:    sample.Failed,
			})
		}()
		stats.Launched++
		next = discipline.Next(next)
	}

	gracedOut := waitWithTimeout(&wg, grace)
	if gracedOut {
		cancel()
		wg.Wait()
	}

	stats.Dropped = coll.Dropped()

	select {
	case <-ctx.Done():
		return stats, apperr.ErrCancelled
	default:
	}
	if gracedOut {
		return stats, fmt.Errorf("%w: outstanding streams did not finish within grace window %s", apperr.ErrStageAborted, grace)
	}
	return stats, nil
}

// waitWithTimeout returns true if wg did not finish within d.
func waitWithTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return false
	case <-time.After(d):
		return true
	}
}
