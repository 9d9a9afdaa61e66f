// Package collector gathers per-stream samples from concurrently running
// drivers and hands the orchestrator a single drained batch per stage: a
// many-writer/single-reader accumulator with atomic counters feeding a
// one-shot summary.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"extprocbench/internal/apperr"
)

// Sample is one completed stream's outcome, in the vocabulary the
// collector and sink both understand.
type Sample struct {
	LatencyNS int64
	Failed    bool
}

// Collector accumulates Samples behind a mutex up to HighWaterMark, then
// drops the rest while counting them, and hands back one drained batch.
// It is safe for concurrent Submit calls from any number of goroutines;
// Drain must be called at most once.
type Collector struct {
	mu            sync.Mutex
	samples       []Sample
	highWaterMark int
	dropped       atomic.Int64
	drained       atomic.Bool
	hist          *hdrhistogram.Histogram
}

// New builds a Collector sized for expectedStreams, with a high-water mark
// of 2x that estimate, generous enough to absorb pacing jitter without
// ever growing the backing slice past a bounded size.
func New(expectedStreams int) *Collector {
	hwm := expectedStreams * 2
	if hwm < 64 {
		hwm = 64
	}
	return &Collector{
		samples:       make([]Sample, 0, expectedStreams),
		highWaterMark: hwm,
		// 1us to 10min, 3 significant figures.
		hist: hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
	}
}

// Submit records one sample. It never blocks longer than O(1) amortized:
// past the high-water mark, submissions are counted and discarded instead
// of growing the slice. Submitting after Drain returns ErrCollectorClosed.
func (c *Collector) Submit(s Sample) error {
	if c.drained.Load() {
		return apperr.ErrCollectorClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.samples) >= c.highWaterMark {
		c.dropped.Add(1)
		return nil
	}
	c.samples = append(c.samples, s)
	if !s.Failed {
		c.hist.RecordValue(s.LatencyNS / int64(time.Microsecond))
	}
	return nil
}

// Dropped reports how many submissions were discarded past the high-water
// mark. It is safe to call before or after Drain.
func (c *Collector) Dropped() int64 { return c.dropped.Load() }

// Summary is the human-readable percentile digest logged per stage; it is
// never written to the persisted artifact.
type Summary struct {
	P50, P90, P99 time.Duration
	Max           time.Duration
	Count         int64
}

// Drain is one-shot: it returns the accumulated samples and a percentile
// summary, then closes the collector to further writes. A second call
// returns ErrCollectorClosed.
func (c *Collector) Drain() ([]Sample, Summary, error) {
	if c.drained.Swap(true) {
		return nil, Summary{}, apperr.ErrCollectorClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	summary := Summary{
		P50:   time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:   time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond,
		P99:   time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond,
		Max:   time.Duration(c.hist.Max()) * time.Microsecond,
		Count: c.hist.TotalCount(),
	}
	return c.samples, summary, nil
}
