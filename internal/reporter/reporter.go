package reporter

import (
	"fmt"
	"time"

	"extprocbench/internal/collector"
	"extprocbench/internal/launcher"
)

// StageLine prints one stage's summary to stdout: the target rate, the
// dispatch count versus what was scheduled, drops, stream failures, and
// the latency percentiles the collector's supplemental histogram
// produced.
func StageLine(rateSPS float64, stats *launcher.StageStats, summary collector.Summary, failures int64) {
	fmt.Println(title.Render(fmt.Sprintf("stage @ %.1f req/s", rateSPS)))
	fmt.Printf("  scheduled=%d launched=%d dropped=%d failures=%d\n", stats.Scheduled, stats.Launched, stats.Dropped, failures)
	fmt.Printf("  p50=%s p90=%s p99=%s max=%s (n=%d)\n",
		value.Render(summary.P50.Round(time.Microsecond).String()),
		value.Render(summary.P90.Round(time.Microsecond).String()),
		value.Render(summary.P99.Round(time.Microsecond).String()),
		value.Render(summary.Max.Round(time.Microsecond).String()),
		summary.Count,
	)
}

// Saturation prints a non-fatal warning when a stage's actual launch rate
// falls meaningfully short of its target, flagging a saturated channel
// without treating it as a hard failure.
func Saturation(rateSPS float64, achievedPct float64) {
	fmt.Println(warn.Render(fmt.Sprintf("  warning: stage @ %.1f req/s only achieved %.1f%% of target dispatch rate", rateSPS, achievedPct)))
}

// StageFailed prints a non-success stage outcome to stdout.
func StageFailed(rateSPS float64, err error) {
	fmt.Println(failure.Render(fmt.Sprintf("stage @ %.1f req/s failed: %v", rateSPS, err)))
}

// Subtle prints a dim informational line, for artifact paths and similar.
func Subtle(msg string) {
	fmt.Println(subtle.Render(msg))
}
