package dabs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"certsync/internal/ada"
	"certsync/internal/components/assert"
	"certsync/internal/components/chrono"
	"certsync/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("certsync/internal/dabs")

const (
	report_validator_validate_all = "validator.validate-all"
	report_validator_skip         = "validator.skip"
	report_validator_upload       = "validator.upload"
	report_validator_outcome      = "validator.outcome"
	report_validator_uploaded     = "validator.uploaded"
	report_validator_skipped      = "validator.skipped"
)

// CertSource finds and downloads the scan of a certificate.
type CertSource interface {
	DownloadCertImage(ctx context.Context, q ada.Query) (string, error)
}

// SkipCounter is the index of the next record to process.
type SkipCounter interface {
	Value() int
	Advance() error
}

// Validator works through the validation queue one record at a time, oldest first.
type Validator struct {
	portal Portal
	certs  CertSource
	skips  SkipCounter
	opts   Options
	clock  chrono.API
	sink   OutcomeSink
	tel    telemetry.API
}

// NewValidator creates a Validator, sink may be nil.
func NewValidator(
	portal Portal,
	certs CertSource,
	skips SkipCounter,
	opts Options,
	clock chrono.API,
	sink OutcomeSink,
	tel telemetry.API,
) *Validator {
	assert.NotNil(portal)
	assert.NotNil(certs)
	assert.NotNil(skips)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return &Validator{
		portal: portal,
		certs:  certs,
		skips:  skips,
		opts:   opts.WithDefaults(),
		clock:  clock,
		sink:   sink,
		tel:    telemetry.NewScopedAPI("dabs", tel),
	}
}

// ValidateAll logs in and decides records until one is dated after the max year or no
// record is left at the skip counter. The summary counts the records decided before any error.
func (v *Validator) ValidateAll(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "validator:ValidateAll")
	defer span.End()

	summary := Summary{}
	err := v.validateAll(ctx, &summary)
	span.SetAttributes(
		attribute.Int("dabs.uploaded", summary.Uploaded),
		attribute.Int("dabs.rejected", summary.Rejected),
		attribute.Int("dabs.skipped", summary.Skipped),
	)
	v.tel.ReportCount(report_validator_uploaded, int64(summary.Uploaded))
	v.tel.ReportCount(report_validator_skipped, int64(summary.Skipped+summary.Rejected))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validate all")
		v.tel.ReportBroken(report_validator_validate_all, err, v.skips.Value())
		return summary, err
	}
	return summary, nil
}

func (v *Validator) validateAll(ctx context.Context, summary *Summary) error {
	err := v.portal.Login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	for {
		outcome, err := v.validateNext(ctx)
		if errors.Is(err, ErrPastMaxYear) {
			v.tel.ReportDebug("reached max year", v.opts.MaxYear)
			return nil
		}
		if errors.Is(err, ErrQueueEnd) {
			v.tel.ReportDebug("reached end of queue", v.skips.Value())
			return nil
		}
		if err != nil {
			return err
		}
		summary.add(outcome.Status)
		v.record(ctx, outcome)
	}
}

// validateNext decides the record at the skip counter. Records that can't be uploaded are
// skipped, only failures reading the queue itself are returned.
func (v *Validator) validateNext(ctx context.Context) (Outcome, error) {
	err := v.waitForTable(ctx)
	if err != nil {
		return Outcome{}, err
	}

	index := v.skips.Value()
	raw, err := v.portal.ReadRecord(ctx, index)
	if err != nil {
		return Outcome{}, fmt.Errorf("read record %d: %w", index, err)
	}
	outcome := Outcome{Index: index, Record: raw}

	rec, err := Derive(raw)
	if err != nil {
		return v.skip(outcome, ReasonUnreadableYear, err)
	}
	if rec.Year > v.opts.MaxYear {
		return Outcome{}, fmt.Errorf("%w: %d", ErrPastMaxYear, rec.Year)
	}
	if !rec.Matched() {
		return v.skip(outcome, ReasonUnmatchedCategory, nil)
	}

	query, image, err := v.lookup(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		return v.skip(outcome, ReasonNotFound, err)
	}
	outcome.Query = query
	outcome.Image = image

	image, err = convertImage(image)
	if err != nil {
		return v.skip(outcome, ReasonUnsupportedFile, err)
	}
	outcome.Image = image

	return v.upload(ctx, outcome)
}

// waitForTable reloads the queue while it shows its loading overlay, reading it anyway
// once the attempts run out.
func (v *Validator) waitForTable(ctx context.Context) error {
	for attempt := 0; attempt < loadingAttempts; attempt++ {
		if !v.portal.TableLoading(ctx) {
			return nil
		}
		err := v.portal.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reload loading table: %w", err)
		}
		if err := v.clock.Sleep(ctx, loadingRetryDelay); err != nil {
			return err
		}
	}
	return nil
}

// lookup tries every search of the record's plan and stops at the first that downloads a
// scan.
func (v *Validator) lookup(ctx context.Context, rec Record) (string, string, error) {
	errlist := []error{ErrNoCertificate}
	for _, q := range lookupPlan(rec) {
		image, err := v.certs.DownloadCertImage(ctx, q)
		if err == nil {
			return q.String(), image, nil
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		errlist = append(errlist, fmt.Errorf("%s: %w", q, err))
	}
	return "", "", errors.Join(errlist...)
}

// convertImage renames a downloaded .tif to .tiff, the only extension the upload form
// accepts.
func convertImage(path string) (string, error) {
	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, ".tif") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Base(path))
	}
	converted := strings.TrimSuffix(path, ext) + ".tiff"
	err := os.Rename(path, converted)
	if err != nil {
		return "", err
	}
	return converted, nil
}

func (v *Validator) upload(ctx context.Context, outcome Outcome) (Outcome, error) {
	p := v.portal

	err := p.OpenRecord(ctx, outcome.Index)
	if err != nil {
		return Outcome{}, fmt.Errorf("open record %d: %w", outcome.Index, err)
	}

	found := false
	for attempt := 0; attempt < formAttempts; attempt++ {
		if err := v.clock.Sleep(ctx, formPollDelay); err != nil {
			return Outcome{}, err
		}
		if v.present(ctx, p.HasUploadForm) {
			found = true
			break
		}
		err := p.Reload(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("reload for upload form: %w", err)
		}
	}
	if !found {
		return v.skip(outcome, ReasonNoUploadForm, ErrUploadFormMissing)
	}

	// a failed attach isn't a skip on its own, the submit button stays disabled without
	// a file and that decides the record.
	attached := false
	for attempt := 0; attempt < attachAttempts && !attached; attempt++ {
		err := p.AttachFile(ctx, outcome.Image)
		if err == nil {
			if err := v.clock.Sleep(ctx, attachSettleDelay); err != nil {
				return Outcome{}, err
			}
			attached = v.present(ctx, p.HasAttachedFile)
		} else {
			v.tel.ReportDebug("attach failed", outcome.Index, attempt, err)
		}
		if attached {
			break
		}
		err = p.Reload(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("reload for attach: %w", err)
		}
		if err := v.clock.Sleep(ctx, attachRetryDelay); err != nil {
			return Outcome{}, err
		}
	}
	if !attached {
		v.tel.ReportWarning(report_validator_upload, "file never attached", outcome.Index)
	}

	enabled, err := p.SubmitEnabled(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("read submit button: %w", err)
	}
	if !enabled {
		err = p.Cancel(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("cancel upload: %w", err)
		}
		outcome, err = v.skip(outcome, ReasonSubmitDisabled, nil)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Status = StatusRejected
		return outcome, v.clock.Sleep(ctx, afterDecideDelay)
	}

	err = p.Submit(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("submit upload: %w", err)
	}
	v.tel.ReportDebug("uploaded", outcome.Index, outcome.Query)
	outcome.Status = StatusUploaded
	return outcome, v.clock.Sleep(ctx, afterDecideDelay)
}

// present waits up to the wait time for check to hold, the dialog renders its parts
// asynchronously after a record is opened or a file is chosen.
func (v *Validator) present(ctx context.Context, check func(context.Context) bool) bool {
	err := chrono.WaitUntil(ctx, v.clock, v.opts.WaitTime, presencePollInterval, func() bool {
		return check(ctx)
	})
	return err == nil
}

// skip steps the skip counter over the record, it stays in the queue.
func (v *Validator) skip(outcome Outcome, reason SkipReason, cause error) (Outcome, error) {
	err := v.skips.Advance()
	if err != nil {
		return Outcome{}, fmt.Errorf("advance skip counter: %w", err)
	}
	outcome.Status = StatusSkipped
	outcome.Reason = reason
	outcome.Err = cause

	params := []any{outcome.Index, string(reason)}
	if cause != nil {
		params = append(params, cause)
	}
	v.tel.ReportWarning(report_validator_skip, params...)
	return outcome, nil
}

func (v *Validator) record(ctx context.Context, outcome Outcome) {
	if v.sink == nil {
		return
	}
	err := v.sink.RecordOutcome(ctx, outcome)
	if err != nil {
		v.tel.ReportWarning(report_validator_outcome, err)
	}
}
