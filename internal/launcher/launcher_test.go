package launcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extprocbench/internal/clockwork"
	"extprocbench/internal/collector"
	"extprocbench/internal/extproc"
	"extprocbench/internal/pacing"
	"extprocbench/internal/plan"
)

type instantDriver struct {
	calls atomic.Int64
}

func (d *instantDriver) Run(ctx context.Context) extproc.Sample {
	d.calls.Add(1)
	return extproc.Sample{Latency: time.Millisecond}
}

type blockingDriver struct {
	release chan struct{}
}

func (d *blockingDriver) Run(ctx context.Context) extproc.Sample {
	select {
	case <-d.release:
	case <-ctx.Done():
	}
	return extproc.Sample{Latency: time.Millisecond, Failed: ctx.Err() != nil}
}

func TestRunDispatchesAtDeterministicPace(t *testing.T) {
	clock := clockwork.NewFakeClock(time.Unix(0, 0))
	stage := plan.Stage{Index: 0, RateSPS: 10, Duration: 500 * time.Millisecond}
	driver := &instantDriver{}
	coll := collector.New(10)

	stats, err := Run(context.Background(), clock, stage, pacing.Deterministic{Rate: 10}, driver, coll, time.Second)
	require.NoError(t, err)
	// 500ms at 10/sec => roughly 5 dispatches (fencepost at the boundary).
	assert.InDelta(t, 5, stats.Scheduled, 1)
}

func TestRunNeverWaitsForStreamCompletionBeforeScheduling(t *testing.T) {
	clock := clockwork.NewFakeClock(time.Unix(0, 0))
	stage := plan.Stage{Index: 0, RateSPS: 1000, Duration: 50 * time.Millisecond}
	driver := &blockingDriver{release: make(chan struct{})} // never released during Run
	coll := collector.New(1000)

	done := make(chan struct{})
	go func() {
		_, _ = Run(context.Background(), clock, stage, pacing.Deterministic{Rate: 1000}, driver, coll, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return within grace window despite blocked drivers")
	}
	close(driver.release)
}

func TestRunMeanIntervalWithinTwoPercentOverLongStage(t *testing.T) {
	clock := clockwork.NewFakeClock(time.Unix(0, 0))
	const rate = 200.0
	stage := plan.Stage{Index: 0, RateSPS: rate, Duration: 10 * time.Second}
	driver := &instantDriver{}
	coll := collector.New(int(rate * stage.Duration.Seconds()))

	stats, err := Run(context.Background(), clock, stage, pacing.Deterministic{Rate: rate}, driver, coll, time.Second)
	require.NoError(t, err)
	require.Greater(t, stats.Scheduled, 0)

	meanInterval := stage.Duration.Seconds() / float64(stats.Scheduled)
	assert.InEpsilon(t, 1/rate, meanInterval, 0.02,
		"mean inter-dispatch interval should stay within 2%% of 1/rate over a long stage")
}

func TestRunReportsCancellation(t *testing.T) {
	clock := clockwork.SystemClock{}
	stage := plan.Stage{Index: 0, RateSPS: 10, Duration: time.Second}
	driver := &instantDriver{}
	coll := collector.New(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, clock, stage, pacing.Deterministic{Rate: 10}, driver, coll, time.Millisecond)
	assert.Error(t, err)
}
