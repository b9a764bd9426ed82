// Package runner starts the validation batch over from the beginning whenever it fails,
// up to a fixed number of attempts, and records how the run went.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certsync/internal/components/assert"
	"certsync/internal/components/chrono"
	"certsync/internal/components/telemetry"
	"certsync/internal/dabs"
	"certsync/internal/notify"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("certsync/internal/runner")

// ErrPermanent marks a failure that another attempt won't fix.
var ErrPermanent = errors.New("permanent failure")

const (
	report_runner_attempt = "runner.attempt"
	report_runner_close   = "runner.close"
	report_runner_ledger  = "runner.ledger"
	report_runner_notify  = "runner.notify"
	report_runner_run     = "runner.run"
)

// Ledger is where runs and their decided records are filed.
type Ledger interface {
	StartRun(ctx context.Context, runID string) error
	FinishRun(ctx context.Context, runID string, attempts int, summary dabs.Summary, runErr error) error
	Sink(runID string, attempt int) dabs.OutcomeSink
}

type Notifier interface {
	SendSummary(ctx context.Context, report notify.RunReport) error
}

type Result struct {
	RunID    string
	Attempts int
	Summary  dabs.Summary
	Err      error
}

type Runner struct {
	sessions SessionFactory
	ledger   Ledger
	notifier Notifier
	opts     Options
	clock    chrono.API
	tel      telemetry.API
}

// NewRunner creates a Runner, ledger and notifier may be nil.
func NewRunner(
	sessions SessionFactory,
	ledger Ledger,
	notifier Notifier,
	opts Options,
	clock chrono.API,
	tel telemetry.API,
) *Runner {
	assert.NotNil(sessions)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return &Runner{
		sessions: sessions,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts.withDefaults(),
		clock:    clock,
		tel:      telemetry.NewScopedAPI("runner", tel),
	}
}

// Run attempts the batch until one attempt finishes, an attempt fails permanently or the
// attempts run out. The result carries the error of the last attempt.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "runner:Run")
	defer span.End()

	runID, err := random.String(12)
	if err != nil {
		return Result{}, fmt.Errorf("generate run id: %w", err)
	}
	span.SetAttributes(attribute.String("runner.run_id", runID))

	started := r.clock.Now()
	if r.ledger != nil {
		err = r.ledger.StartRun(ctx, runID)
		if err != nil {
			r.tel.ReportWarning(report_runner_ledger, err)
		}
	}

	result := Result{RunID: runID}
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			result.Err = ctx.Err()
			break
		}
		result.Attempts = attempt

		summary, err := r.attempt(ctx, runID, attempt)
		result.Summary.Merge(summary)
		result.Err = err
		if err == nil {
			break
		}

		r.tel.ReportWarning(
			report_runner_attempt,
			fmt.Sprintf("Run %d at %s", attempt, r.clock.Now().Format(time.DateTime)),
			err,
		)
		if errors.Is(err, ErrPermanent) {
			break
		}
	}

	r.finish(ctx, started, result)

	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "run failed")
		r.tel.ReportBroken(report_runner_run, result.Err, runID, result.Attempts)
		return result, result.Err
	}
	r.tel.ReportDebug("run finished", runID, result.Attempts, result.Summary.Uploaded)
	return result, nil
}

func (r *Runner) attempt(ctx context.Context, runID string, attempt int) (dabs.Summary, error) {
	var sink dabs.OutcomeSink
	if r.ledger != nil {
		sink = r.ledger.Sink(runID, attempt)
	}

	session, err := r.sessions(ctx, sink)
	if err != nil {
		return dabs.Summary{}, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		err := session.Close()
		if err != nil {
			r.tel.ReportWarning(report_runner_close, err)
		}
	}()

	return session.Validate(ctx)
}

// finish files the result and mails it, both still happen when ctx was cancelled.
func (r *Runner) finish(ctx context.Context, started time.Time, result Result) {
	ctx = context.WithoutCancel(ctx)

	if r.ledger != nil {
		err := r.ledger.FinishRun(ctx, result.RunID, result.Attempts, result.Summary, result.Err)
		if err != nil {
			r.tel.ReportWarning(report_runner_ledger, err)
		}
	}
	if r.notifier != nil {
		err := r.notifier.SendSummary(ctx, notify.RunReport{
			RunID:    result.RunID,
			Started:  started,
			Finished: r.clock.Now(),
			Attempts: result.Attempts,
			Summary:  result.Summary,
			Err:      result.Err,
		})
		if err != nil {
			r.tel.ReportWarning(report_runner_notify, err)
		}
	}
}
