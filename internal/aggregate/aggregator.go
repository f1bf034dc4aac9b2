// Package aggregate collects activities from every configured source and
// merges them into one ordered, grouped result.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"weeklysummary/internal"
)

// Observer is notified about per-source fetch outcomes.
type Observer interface {
	Fetched(source string, count int)
	Failed(source, stage string)
}

// Options tunes Collect.
type Options struct {
	// Parallel fetches all sources concurrently. Output order is unaffected.
	Parallel bool
	// Timeout bounds each source's fetch. Zero means no limit.
	Timeout  time.Duration
	Logger   *slog.Logger
	Observer Observer
}

// SourceReport describes what one source contributed to a run.
type SourceReport struct {
	Source   string
	Count    int
	Rejected []internal.Activity
	Err      error
	Duration time.Duration
}

// OK reports whether the source fetched without error.
func (r SourceReport) OK() bool {
	return r.Err == nil
}

// Collect fetches [start, end] from every source. A source that fails or
// hangs contributes nothing; activities outside the window are rejected and
// reported. The returned activities are concatenated in source order, so the
// result is the same whether or not fetches ran in parallel.
func Collect(ctx context.Context, sources []internal.Source, start, end time.Time, opts Options) ([]internal.Activity, []SourceReport) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batches := make([][]internal.Activity, len(sources))
	reports := make([]SourceReport, len(sources))

	run := func(i int) {
		batches[i], reports[i] = collectOne(ctx, sources[i], start, end, opts.Timeout, logger)
		observe(opts.Observer, reports[i])
	}

	if opts.Parallel {
		var g errgroup.Group
		for i := range sources {
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range sources {
			run(i)
		}
	}

	var all []internal.Activity
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return all, reports
}

func collectOne(ctx context.Context, src internal.Source, start, end time.Time, timeout time.Duration, logger *slog.Logger) ([]internal.Activity, SourceReport) {
	name := src.Name()
	report := SourceReport{Source: name}
	logger = logger.With("source", name)
	logger.Debug("fetching activities")

	began := time.Now()
	activities, err := fetch(ctx, src, start, end, timeout)
	report.Duration = time.Since(began)
	if err != nil {
		logger.Error("fetch failed", "stage", "fetch", "error", err)
		report.Err = err
		return nil, report
	}

	in, out := partition(activities, start, end)
	if len(out) > 0 {
		report.Rejected = out
		report.Err = &RangeError{Source: name, Start: start, End: end, Violations: out}
		logger.Error("source returned activities outside the requested range",
			"stage", "fetch", "rejected", len(out), "error", report.Err)
	}
	report.Count = len(in)
	logger.Info("fetched activities", "count", report.Count, "duration", report.Duration)
	return in, report
}

// fetch runs src.Fetch, converting panics into errors and abandoning a call
// that outlives ctx or the timeout.
func fetch(ctx context.Context, src internal.Source, start, end time.Time, timeout time.Duration) ([]internal.Activity, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		activities []internal.Activity
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("source %s panicked: %v", src.Name(), r)}
			}
		}()
		activities, err := src.Fetch(ctx, start, end)
		done <- outcome{activities: activities, err: err}
	}()

	select {
	case res := <-done:
		return res.activities, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch from %s abandoned: %w", src.Name(), ctx.Err())
	}
}

func observe(o Observer, r SourceReport) {
	if o == nil {
		return
	}
	o.Fetched(r.Source, r.Count)
	if r.Err == nil {
		return
	}
	if len(r.Rejected) > 0 {
		o.Failed(r.Source, "range")
		return
	}
	o.Failed(r.Source, "fetch")
}
