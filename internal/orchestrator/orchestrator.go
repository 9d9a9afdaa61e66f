// Package orchestrator drives the sweep end to end: it runs each stage in
// order over one shared, already-dialed channel, writing an artifact
// after every stage and deciding whether a stage failure aborts the run
// or continues to the next.
package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"

	"extprocbench/internal/apperr"
	"extprocbench/internal/clockwork"
	"extprocbench/internal/collector"
	"extprocbench/internal/extproc"
	"extprocbench/internal/launcher"
	"extprocbench/internal/pacing"
	"extprocbench/internal/plan"
	"extprocbench/internal/reporter"
	"extprocbench/internal/sink"
)

// OnStageError selects what happens when a stage fails to complete or its
// artifact cannot be written. Cancellation (apperr.ErrCancelled) always
// ends the sweep, whichever value is set.
type OnStageError int

const (
	// Abort stops the sweep after the first failing stage (default).
	Abort OnStageError = iota
	// Continue advances to the next stage regardless.
	Continue
)

// Options configures one sweep run.
type Options struct {
	Stages       []plan.Stage
	ResultDir    string
	PacingKind   string // "deterministic" or "poisson"
	OnStageError OnStageError
	GraceCap     time.Duration
}

// Run drives every stage in Options.Stages in order over conn, which the
// caller has already dialed, writing one artifact per completed stage. Cancellation observed
// between or during stages ends the sweep early but is not itself a
// failure: Run returns nil as long as every stage it attempted wrote its
// artifact successfully. It returns the first stage error if OnStageError
// is Abort, or a joined error listing every stage's failure if Continue,
// once at least one attempted stage failed to produce an artifact or
// ended on something other than cancellation.
func Run(ctx context.Context, logger *log.Logger, conn *grpc.ClientConn, opts Options) error {
	if err := sink.CheckDir(opts.ResultDir); err != nil {
		return err
	}

	driver := extproc.New(conn, nil)
	clock := clockwork.SystemClock{}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var stageErrs []error

stages:
	for _, stage := range opts.Stages {
		select {
		case <-ctx.Done():
			logger.Warn("sweep cancelled before stage started", "stage", stage.Index)
			break stages
		default:
		}

		logger.Info("starting stage", "index", stage.Index, "rate_sps", stage.RateSPS, "duration", stage.Duration)

		grace := opts.GraceCap
		if stage.Duration < grace {
			grace = stage.Duration
		}

		discipline := disciplineFor(opts.PacingKind, stage.RateSPS, rng)
		expected := int(stage.RateSPS * stage.Duration.Seconds())
		coll := collector.New(expected)

		stats, err := launcher.Run(ctx, clock, stage, discipline, driver, coll, grace)
		samples, summary, drainErr := coll.Drain()
		if drainErr != nil {
			logger.Error("collector drain failed", "stage", stage.Index, "error", drainErr)
		}

		nanos, failures := splitSamples(samples)
		if writeErr := sink.Write(opts.ResultDir, stage.Index, stage.RateSPS, nanos); writeErr != nil {
			logger.Error("failed to write stage artifact", "stage", stage.Index, "error", writeErr)
			stageErrs = append(stageErrs, writeErr)
			if opts.OnStageError == Abort {
				return writeErr
			}
		}

		cancelled := errors.Is(err, apperr.ErrCancelled)
		if err != nil {
			logger.Warn("stage ended with error", "stage", stage.Index, "error", err)
			if !cancelled {
				stageErrs = append(stageErrs, err)
				reporter.StageFailed(stage.RateSPS, err)
			}
			if !cancelled && opts.OnStageError == Abort {
				return err
			}
		}

		logAndReportStage(logger, stage, stats, summary, failures)

		if expected > 0 {
			achievedPct := float64(stats.Launched) / float64(expected) * 100
			if achievedPct < 95 {
				logger.Warn("stage under target dispatch rate", "stage", stage.Index, "achieved_pct", achievedPct)
				reporter.Saturation(stage.RateSPS, achievedPct)
			}
		}

		if cancelled {
			break stages
		}
	}

	if len(stageErrs) > 0 {
		return errors.Join(stageErrs...)
	}
	return nil
}

func disciplineFor(kind string, rate float64, rng *rand.Rand) pacing.Discipline {
	if kind == "poisson" {
		return pacing.Poisson{Rate: rate, Rng: rng}
	}
	return pacing.Deterministic{Rate: rate}
}

// splitSamples separates the successful latencies persisted to the stage
// artifact from the count of streams that failed; the failure count is
// logged but, unlike the latencies, never written to disk.
func splitSamples(samples []collector.Sample) (nanos []int64, failures int64) {
	nanos = make([]int64, 0, len(samples))
	for _, s := range samples {
		if s.Failed {
			failures++
			continue
		}
		nanos = append(nanos, s.LatencyNS)
	}
	return nanos, failures
}

func logAndReportStage(logger *log.Logger, stage plan.Stage, stats *launcher.StageStats, summary collector.Summary, failures int64) {
	if stats == nil {
		return
	}
	logger.Info("stage complete",
		"stage", stage.Index,
		"rate_sps", stage.RateSPS,
		"scheduled", stats.Scheduled,
		"launched", stats.Launched,
		"dropped", stats.Dropped,
		"failures", failures,
		"p50", summary.P50,
		"p99", summary.P99,
	)
	reporter.StageLine(stage.RateSPS, stats, summary, failures)
}
