package executor

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// Task is a launched unit of work. It must honor ctx.
type Task func(ctx context.Context) error

// Job is one schedulable item.
type Job struct {
	// Key identifies the item in settlements and logs.
	Key string

	// Build prepares the task after a slot has been acquired and before
	// anything is launched. A Build error settles the job as failed.
	Build func() (Task, error)
}

// Settlement is the result of one job, recorded when it settles.
type Settlement struct {
	Key string
	Err error
}

// Report describes a finished Execute call.
type Report struct {
	Outcome s3types.Outcome

	// Err is the first failure for OutcomeFailed, or the cancellation cause
	// for OutcomeCanceled.
	Err error

	// Settled holds every settled job in settlement order.
	Settled []Settlement

	// Launched counts jobs whose task started.
	Launched int

	// Skipped counts jobs that were never scheduled.
	Skipped int

	// Abandoned counts units still running when the caller's cancellation
	// cut draining short.
	Abandoned int
}

// Failures returns the settlements that carry a non-cancellation error.
func (r *Report) Failures() []Settlement {
	var out []Settlement
	for _, s := range r.Settled {
		if s.Err != nil && !errors.IsCanceled(s.Err) {
			out = append(out, s)
		}
	}
	return out
}

// Stats reports slot accounting across all runs of an Executor.
type Stats struct {
	Acquired int64
	Released int64
}

// Executor schedules jobs under a fixed number of slots.
type Executor struct {
	width  int
	logger *slog.Logger

	acquired atomic.Int64
	released atomic.Int64
}

// New creates an Executor with the given number of slots.
func New(width int, logger *slog.Logger) (*Executor, error) {
	if err := validation.ValidateConcurrency(width); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{width: width, logger: logger}, nil
}

// Width returns the number of slots.
func (e *Executor) Width() int {
	return e.width
}

// Stats returns slot accounting. Acquired equals Released once every launched
// unit has settled.
func (e *Executor) Stats() Stats {
	return Stats{
		Acquired: e.acquired.Load(),
		Released: e.released.Load(),
	}
}

// run holds the state shared between the scheduling goroutine and units.
type run struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	// callerCtx is the context passed to Execute. Failures settling after it
	// is done are recorded but do not decide the outcome.
	callerCtx context.Context

	mu       sync.Mutex
	settled  []Settlement
	firstErr error
	canceled bool
}

func (r *run) settle(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settled = append(r.settled, Settlement{Key: key, Err: err})
	if err == nil {
		return
	}
	if r.isCancellation(err) {
		r.canceled = true
		return
	}
	if r.callerCtx.Err() != nil {
		r.canceled = true
		return
	}
	if r.firstErr == nil {
		r.firstErr = err
		r.cancel(err)
	}
}

func (r *run) isCancellation(err error) bool {
	if errors.IsCanceled(err) {
		return true
	}
	return stderrors.Is(err, context.DeadlineExceeded) && r.ctx.Err() != nil
}

// Execute schedules jobs in order and waits for launched units to settle.
//
// Scheduling stops when the caller's context is canceled or the first
// failure trips the run signal. Draining waits for every launched unit but
// gives up as soon as the caller's context is done. The outcome is Failed if
// a unit failed before the caller canceled, otherwise Canceled if
// cancellation was observed, otherwise Succeeded. Failures settling after the
// caller canceled still appear in Report.Settled.
func (e *Executor) Execute(ctx context.Context, jobs []Job) *Report {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r := &run{ctx: runCtx, cancel: cancel, callerCtx: ctx}
	sem := semaphore.NewWeighted(int64(e.width))
	release := func() {
		e.released.Add(1)
		sem.Release(1)
	}

	// Buffered so units that outlive an abandoned drain never block.
	done := make(chan struct{}, len(jobs))
	scheduled, launched, outstanding := 0, 0, 0
	callerCanceled := false

	for _, job := range jobs {
		if err := sem.Acquire(runCtx, 1); err != nil {
			callerCanceled = ctx.Err() != nil
			break
		}
		e.acquired.Add(1)

		if ctx.Err() != nil {
			callerCanceled = true
			release()
			break
		}
		if runCtx.Err() != nil {
			release()
			break
		}
		scheduled++

		task, err := job.Build()
		if err != nil {
			r.settle(job.Key, err)
			release()
			continue
		}

		launched++
		outstanding++
		go func(key string, task Task) {
			err := task(runCtx)
			// Trip the signal before giving the slot back.
			r.settle(key, err)
			release()
			done <- struct{}{}
		}(job.Key, task)
	}

	for outstanding > 0 {
		if ctx.Err() != nil {
			callerCanceled = true
			break
		}
		select {
		case <-done:
			outstanding--
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	report := &Report{
		Settled:   append([]Settlement(nil), r.settled...),
		Launched:  launched,
		Skipped:   len(jobs) - scheduled,
		Abandoned: outstanding,
	}

	switch {
	case r.firstErr != nil:
		report.Outcome = s3types.OutcomeFailed
		report.Err = r.firstErr
		e.logger.Debug("run failed fast",
			slog.Int("launched", launched),
			slog.Int("skipped", report.Skipped),
			slog.String("error", r.firstErr.Error()))
	case callerCanceled || r.canceled:
		report.Outcome = s3types.OutcomeCanceled
		report.Err = context.Cause(ctx)
		if report.Err == nil {
			report.Err = context.Canceled
		}
	default:
		report.Outcome = s3types.OutcomeSucceeded
	}

	return report
}
