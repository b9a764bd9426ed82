package dabs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"certsync/internal/ada"
	"certsync/internal/browser"
	"certsync/internal/components/chrono"
	"certsync/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

// fakePortal models the queue: submitted records leave it, everything else stays.
type fakePortal struct {
	queue []RawRecord

	loginErr error
	readErr  error
	// loading is how many more times the table reports it is loading.
	loading int
	// noForm holds the persons of records whose upload form never shows.
	noForm map[string]bool
	// formChecks is how many more checks miss the upload form while it renders.
	formChecks int
	// attachChecks is how many more checks miss an attached file while it uploads.
	attachChecks int
	// attachFailures is how many more attaches silently fail.
	attachFailures int
	// disabled holds the persons of records the application won't accept.
	disabled map[string]bool

	opened    int
	attached  string
	reloads   int
	cancels   int
	submitted []RawRecord
}

func (p *fakePortal) Login(ctx context.Context) error {
	return p.loginErr
}

func (p *fakePortal) TableLoading(ctx context.Context) bool {
	if p.loading > 0 {
		p.loading--
		return true
	}
	return false
}

func (p *fakePortal) Reload(ctx context.Context) error {
	p.reloads++
	p.attached = ""
	return nil
}

func (p *fakePortal) ReadRecord(ctx context.Context, index int) (RawRecord, error) {
	if p.readErr != nil {
		return RawRecord{}, p.readErr
	}
	if index >= len(p.queue) {
		return RawRecord{}, fmt.Errorf("%w: %d", ErrQueueEnd, index)
	}
	return p.queue[index], nil
}

func (p *fakePortal) OpenRecord(ctx context.Context, index int) error {
	p.opened = index
	return nil
}

func (p *fakePortal) current() RawRecord {
	return p.queue[p.opened]
}

func (p *fakePortal) HasUploadForm(ctx context.Context) bool {
	if p.formChecks > 0 {
		p.formChecks--
		return false
	}
	return !p.noForm[p.current().Persons]
}

func (p *fakePortal) AttachFile(ctx context.Context, path string) error {
	if p.attachFailures > 0 {
		p.attachFailures--
		return nil
	}
	p.attached = path
	return nil
}

func (p *fakePortal) HasAttachedFile(ctx context.Context) bool {
	if p.attached != "" && p.attachChecks > 0 {
		p.attachChecks--
		return false
	}
	return p.attached != ""
}

func (p *fakePortal) SubmitEnabled(ctx context.Context) (bool, error) {
	return p.attached != "" && !p.disabled[p.current().Persons], nil
}

func (p *fakePortal) Submit(ctx context.Context) error {
	p.submitted = append(p.submitted, p.current())
	p.queue = append(p.queue[:p.opened], p.queue[p.opened+1:]...)
	p.attached = ""
	return nil
}

func (p *fakePortal) Cancel(ctx context.Context) error {
	p.cancels++
	p.attached = ""
	return nil
}

// fakeCerts downloads a file named after the query when it is one of found.
type fakeCerts struct {
	dir     string
	found   map[string]string
	queries []string
}

func (c *fakeCerts) DownloadCertImage(ctx context.Context, q ada.Query) (string, error) {
	c.queries = append(c.queries, q.String())
	name, ok := c.found[q.String()]
	if !ok {
		return "", ada.ErrNoMatches
	}
	path := filepath.Join(c.dir, name)
	err := os.WriteFile(path, []byte("II*\x00"), 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}

type fakeSkips struct {
	value int
}

func (s *fakeSkips) Value() int {
	return s.value
}

func (s *fakeSkips) Advance() error {
	s.value++
	return nil
}

type fakeSink struct {
	outcomes []Outcome
}

func (s *fakeSink) RecordOutcome(ctx context.Context, outcome Outcome) error {
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

type fixture struct {
	portal *fakePortal
	certs  *fakeCerts
	skips  *fakeSkips
	sink   *fakeSink
	clock  *chrono.Fake
	tel    *telemetry.Recorder
	v      *Validator
}

func newFixture(t *testing.T, queue []RawRecord, found map[string]string) fixture {
	f := fixture{
		portal: &fakePortal{queue: queue},
		certs:  &fakeCerts{dir: t.TempDir(), found: found},
		skips:  &fakeSkips{},
		sink:   &fakeSink{},
		clock:  chrono.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		tel:    telemetry.NewRecorder(),
	}
	f.v = NewValidator(f.portal, f.certs, f.skips, Options{Host: "dabs.test"}, f.clock, f.sink, f.tel)
	return f
}

func count(durations []time.Duration, d time.Duration) int {
	n := 0
	for _, slept := range durations {
		if slept == d {
			n++
		}
	}
	return n
}

func TestValidateAll(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "03-04-1890", Persons: "Pieter Jansen"},
		{Category: "Echtscheiding", Number: "3", Date: "1890", Persons: "Henk Visser"},
		{Category: "Huwelijk", Date: "1891", Persons: "Jan Bakker, Anna Smit"},
		{Category: "Overlijden", Number: "5", Date: "1900", Persons: "Kees Visser"},
		{Category: "Huwelijk", Number: "44", Date: "1905", Persons: "Gert Mulder, Ina Bos"},
		{Category: "Geboorte", Number: "1", Date: "2018", Persons: "Eva Jong"},
	}, map[string]string{
		"Geboorteakte: 1890 0012":      "geb-0012.tif",
		"Overlijdensakte: Visser 1900": "ovl-visser.png",
		"Huwelijksakte: Bos 1905 0044": "huw-0044.tif",
		"Huwelijksakte: Mulder 1905":   "huw-mulder.tif",
	})

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Uploaded: 2, Skipped: 3}, summary)

	// the three skipped records stay in the queue, ahead of the one past the max year.
	require.Equal(t, 3, f.skips.value)
	require.Len(t, f.portal.queue, 4)
	require.Len(t, f.portal.submitted, 2)
	require.Equal(t, "Pieter Jansen", f.portal.submitted[0].Persons)
	require.Equal(t, "Gert Mulder, Ina Bos", f.portal.submitted[1].Persons)

	require.Equal(t, []string{
		// first record, found by number.
		"Geboorteakte: 1890 0012",
		// third record, every candidate tried.
		"Huwelijksakte: Bakker Smit 1891",
		"Huwelijksakte: Smit 1891",
		"Huwelijksakte: Bakker 1891",
		// fourth record, found but not a tif.
		"Overlijdensakte: 1900 0005",
		"Overlijdensakte: Visser 1900",
		// fifth record, the pair fails and the second surname is found with the number.
		"Huwelijksakte: 1905 0044",
		"Huwelijksakte: Mulder Bos 1905",
		"Huwelijksakte: Mulder Bos 1905 0044",
		"Huwelijksakte: Bos 1905",
		"Huwelijksakte: Bos 1905 0044",
	}, f.certs.queries)

	statuses := []SkipReason{}
	for _, outcome := range f.sink.outcomes {
		statuses = append(statuses, SkipReason(outcome.Status)+":"+outcome.Reason)
	}
	require.Equal(t, []SkipReason{
		"uploaded:",
		"skipped:unmatched_category",
		"skipped:not_found",
		"skipped:unsupported_file",
		"uploaded:",
	}, statuses)

	uploaded := f.sink.outcomes[4]
	require.Equal(t, "Huwelijksakte: Bos 1905 0044", uploaded.Query)
	require.Equal(t, "huw-0044.tiff", filepath.Base(uploaded.Image))
	require.FileExists(t, uploaded.Image)

	require.ErrorIs(t, f.sink.outcomes[2].Err, ErrNoCertificate)
	require.ErrorIs(t, f.sink.outcomes[2].Err, ada.ErrNoMatches)
	require.ErrorIs(t, f.sink.outcomes[3].Err, ErrUnsupportedFile)

	require.True(t, f.tel.Has("warning", report_validator_skip))
	require.False(t, f.tel.Has("broken", report_validator_validate_all))
}

func TestValidateAllEndOfQueue(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Echtscheiding", Date: "1890", Persons: "Henk Visser"},
	}, nil)

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Skipped: 1}, summary)
	require.Equal(t, 1, f.skips.value)
}

func TestValidateAllUnreadableYear(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Date: "onbekend", Persons: "Henk Visser"},
	}, nil)

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Skipped: 1}, summary)
	require.Equal(t, ReasonUnreadableYear, f.sink.outcomes[0].Reason)
	require.Empty(t, f.certs.queries)
}

func TestValidateAllAbortsOnQueueFailure(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.portal.readErr = errors.New("paginator vanished")

	_, err := f.v.ValidateAll(context.Background())
	require.ErrorContains(t, err, "paginator vanished")
	require.True(t, f.tel.Has("broken", report_validator_validate_all))
	require.Zero(t, f.skips.value)

	f = newFixture(t, nil, nil)
	f.portal.loginErr = errors.New("bad credentials")
	_, err = f.v.ValidateAll(context.Background())
	require.ErrorContains(t, err, "login")
}

func TestValidateAllCancelled(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.v.ValidateAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, f.skips.value)
}

func TestWaitForTable(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Echtscheiding", Date: "1890", Persons: "Henk Visser"},
	}, nil)
	f.portal.loading = 3

	_, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, f.portal.reloads)
	require.Equal(t, 3, count(f.clock.Slept(), loadingRetryDelay))

	// a table that never stops loading is read anyway after the attempts run out.
	f = newFixture(t, []RawRecord{
		{Category: "Echtscheiding", Date: "1890", Persons: "Henk Visser"},
	}, nil)
	f.portal.loading = 100

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.GreaterOrEqual(t, f.portal.reloads, loadingAttempts)
}

func TestUploadFormMissing(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
	}, map[string]string{"Geboorteakte: 1890 0012": "geb-0012.tif"})
	f.portal.noForm = map[string]bool{"Pieter Jansen": true}

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Skipped: 1}, summary)
	require.Equal(t, formAttempts, f.portal.reloads)
	require.Equal(t, formAttempts, count(f.clock.Slept(), formPollDelay))
	require.Equal(t, ReasonNoUploadForm, f.sink.outcomes[0].Reason)
	require.ErrorIs(t, f.sink.outcomes[0].Err, ErrUploadFormMissing)
}

func TestUploadFormRendersLate(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
	}, map[string]string{"Geboorteakte: 1890 0012": "geb-0012.tif"})
	// 20 polls keep the form hidden for 4s, longer than the delay after opening the record.
	f.portal.formChecks = 20
	f.portal.attachChecks = 10

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Uploaded: 1}, summary)
	require.Zero(t, f.portal.reloads)
	require.Zero(t, f.skips.value)
	require.Equal(t, 30, count(f.clock.Slept(), presencePollInterval))
}

func TestUploadFormWaitIsBounded(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
	}, map[string]string{"Geboorteakte: 1890 0012": "geb-0012.tif"})
	f.portal.noForm = map[string]bool{"Pieter Jansen": true}

	start := f.clock.Now()
	_, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)

	waited := f.clock.Now().Sub(start)
	require.GreaterOrEqual(t, waited, formAttempts*browser.DefaultWaitTime)
	require.Less(t, waited, formAttempts*(browser.DefaultWaitTime+2*time.Second))
}

func TestAttachRetries(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
	}, map[string]string{"Geboorteakte: 1890 0012": "geb-0012.tif"})
	f.portal.attachFailures = 3

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Uploaded: 1}, summary)
	require.Equal(t, 3, f.portal.reloads)
	require.Equal(t, 3, count(f.clock.Slept(), attachRetryDelay))
	require.Zero(t, f.skips.value)
}

func TestAttachExhausted(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
	}, map[string]string{"Geboorteakte: 1890 0012": "geb-0012.tif"})
	f.portal.attachFailures = 100

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Rejected: 1}, summary)
	require.Equal(t, attachAttempts, f.portal.reloads)
	require.Equal(t, 1, f.portal.cancels)
	require.Equal(t, 1, f.skips.value)
	require.True(t, f.tel.Has("warning", report_validator_upload))
}

func TestSubmitDisabled(t *testing.T) {
	f := newFixture(t, []RawRecord{
		{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
		{Category: "Geboorte", Number: "13", Date: "1890", Persons: "Klaas Jansen"},
	}, map[string]string{
		"Geboorteakte: 1890 0012": "geb-0012.tif",
		"Geboorteakte: 1890 0013": "geb-0013.tif",
	})
	f.portal.disabled = map[string]bool{"Pieter Jansen": true}

	summary, err := f.v.ValidateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Uploaded: 1, Rejected: 1}, summary)
	require.Equal(t, 1, f.portal.cancels)
	require.Equal(t, 1, f.skips.value)
	require.Equal(t, []RawRecord{{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"}}, f.portal.queue)

	rejected := f.sink.outcomes[0]
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, ReasonSubmitDisabled, rejected.Reason)
}

func TestConvertImage(t *testing.T) {
	dir := t.TempDir()
	tif := filepath.Join(dir, "scan.tif")
	require.NoError(t, os.WriteFile(tif, nil, 0644))

	converted, err := convertImage(tif)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "scan.tiff"), converted)
	require.FileExists(t, converted)
	require.NoFileExists(t, tif)

	upper := filepath.Join(dir, "SCAN.TIF")
	require.NoError(t, os.WriteFile(upper, nil, 0644))
	converted, err = convertImage(upper)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "SCAN.tiff"), converted)
	require.FileExists(t, converted)

	_, err = convertImage(filepath.Join(dir, "scan.pdf"))
	require.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = convertImage(converted)
	require.ErrorIs(t, err, ErrUnsupportedFile)
}
