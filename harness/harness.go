package harness

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// MemoryFloorMB is the minimum memory delta recorded for a trial.
// End-minus-baseline can come out non-positive when the OS reclaims
// pages mid-trial; that is measurement noise, not a real saving, so
// deltas are clamped here rather than ever reported negative.
const MemoryFloorMB = 0.1

const (
	defaultSettle  = 100 * time.Millisecond
	defaultReadGap = 10 * time.Millisecond

	gcPasses         = 3
	baselineReadings = 3
)

// Label identifies which engine, operation and scenario a trial
// belongs to.
type Label struct {
	Engine    string
	Operation string
	Scenario  string
}

// OpFunc is one engine operation already bound to its dataset.
type OpFunc func(ctx context.Context) (Outcome, error)

// Runner executes repeated measured trials of single operations.
type Runner struct {
	Repeats int
	Settle  time.Duration // post-GC delay letting residency stabilize
	ReadGap time.Duration // gap between baseline memory readings
	Logger  *slog.Logger

	sampler func() float64
}

// NewRunner creates a Runner with the default stabilization timings.
func NewRunner(repeats int, logger *slog.Logger) *Runner {
	return &Runner{
		Repeats: repeats,
		Settle:  defaultSettle,
		ReadGap: defaultReadGap,
		Logger:  logger,
		sampler: processMemoryMB,
	}
}

// Run executes op Repeats times under label, appending every successful
// trial's sample to table. A failed trial is logged and skipped and the
// loop continues; only context cancellation stops it early. Run records
// raw samples only, never aggregates.
func (r *Runner) Run(ctx context.Context, table *Table, label Label, op OpFunc) {
	for i := 0; i < r.Repeats; i++ {
		if ctx.Err() != nil {
			return
		}

		sample, ok := r.runTrial(ctx, label, op)
		if !ok {
			continue
		}

		table.Append(sample)
	}
}

// runTrial measures a single execution. The memory delta is the end
// reading minus the minimum of several baseline readings; the minimum,
// not the mean, so that a transient spike cannot inflate the baseline.
func (r *Runner) runTrial(ctx context.Context, label Label, op OpFunc) (Sample, bool) {
	forceGC(gcPasses)
	time.Sleep(r.Settle)

	baseline := r.sampler()
	for i := 1; i < baselineReadings; i++ {
		time.Sleep(r.ReadGap)
		if m := r.sampler(); m < baseline {
			baseline = m
		}
	}

	start := time.Now()

	outcome, err := op(ctx)
	if err == nil {
		err = outcome.Materialize()
	}
	if err != nil {
		if outcome != nil {
			outcome.Release()
		}
		r.Logger.Error("trial failed",
			slog.String("engine", label.Engine),
			slog.String("operation", label.Operation),
			slog.String("scenario", label.Scenario),
			slog.String("error", err.Error()),
		)

		return Sample{}, false
	}

	elapsed := time.Since(start).Seconds()
	end := r.sampler()

	delta := end - baseline
	if delta < MemoryFloorMB {
		delta = MemoryFloorMB
	}

	outcome.Release()
	forceGC(gcPasses)

	return Sample{
		Engine:      label.Engine,
		Operation:   label.Operation,
		Scenario:    label.Scenario,
		TimeSeconds: elapsed,
		MemoryMB:    delta,
	}, true
}

func forceGC(passes int) {
	for i := 0; i < passes; i++ {
		runtime.GC()
	}
}
