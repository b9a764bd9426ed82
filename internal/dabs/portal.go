package dabs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certsync/internal/browser"
	"certsync/internal/components/assert"
	"certsync/internal/components/chrono"
	"certsync/internal/components/telemetry"

	"github.com/go-rod/rod"
)

// Portal is the validation application as seen by the validator. Every method acts on the
// page as it currently is, the validator decides what to retry.
type Portal interface {
	// Login opens the queue and signs in.
	Login(ctx context.Context) error
	// TableLoading reports whether the queue is stuck showing its loading overlay.
	TableLoading(ctx context.Context) bool
	Reload(ctx context.Context) error
	// ReadRecord sorts the queue oldest first, pages to the record at index and reads it.
	ReadRecord(ctx context.Context, index int) (RawRecord, error)
	// OpenRecord opens the record at index, which must be on the current page.
	OpenRecord(ctx context.Context, index int) error
	HasUploadForm(ctx context.Context) bool
	AttachFile(ctx context.Context, path string) error
	HasAttachedFile(ctx context.Context) bool
	SubmitEnabled(ctx context.Context) (bool, error)
	Submit(ctx context.Context) error
	Cancel(ctx context.Context) error
}

const (
	selectorLoginForm     = "#kc-form-login"
	selectorUsername      = "[name='username']"
	selectorPassword      = "[name='password']"
	selectorLoginButton   = "[name='login']"
	selectorTableLoading  = ".ui-table-loading"
	selectorTableBody     = "tbody"
	selectorDateSort      = "th[psortablecolumn='factDate.year']"
	selectorSortedAsc     = ".fa-sort-asc"
	selectorPaginator     = ".ui-paginator-pages"
	selectorPageLinks     = ".ui-paginator-pages a"
	selectorUploadForm    = ".ui-fileupload"
	selectorChooseFile    = ".ui-fileupload-choose"
	selectorAttachedFile  = ".ui-icon-delete"
	selectorDialogButtons = ".ui-button-text-only"

	cancelButtonIndex = 1
	submitButtonIndex = 2

	// bounds the clicks through the paginator, it only moves a few pages per click.
	maxPageHops = 1000
)

const (
	loginTypedDelay  = 500 * time.Millisecond
	loginSubmitDelay = time.Second
	sortDelay        = 300 * time.Millisecond
	pageDelay        = 500 * time.Millisecond
	listDelay        = 300 * time.Millisecond
)

// WebPortal implements Portal with a browser.
type WebPortal struct {
	browser *browser.Browser
	opts    Options
	clock   chrono.API
	tel     telemetry.API
}

func NewWebPortal(b *browser.Browser, opts Options, clock chrono.API, tel telemetry.API) *WebPortal {
	assert.NotNil(b)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Host)

	return &WebPortal{
		browser: b,
		opts:    opts.WithDefaults(),
		clock:   clock,
		tel:     telemetry.NewScopedAPI("dabs", tel),
	}
}

func (p *WebPortal) Login(ctx context.Context) error {
	b := p.browser

	err := b.Navigate(ctx, p.opts.CertsListURL())
	if err != nil {
		return fmt.Errorf("open certs list: %w", err)
	}
	form, err := b.Find(ctx, selectorLoginForm)
	if err != nil {
		return err
	}
	username, err := b.FindIn(ctx, form, selectorUsername)
	if err != nil {
		return err
	}
	err = b.Type(ctx, username, p.opts.Username)
	if err != nil {
		return err
	}
	password, err := b.FindIn(ctx, form, selectorPassword)
	if err != nil {
		return err
	}
	err = b.Type(ctx, password, p.opts.Password)
	if err != nil {
		return err
	}
	if err := p.clock.Sleep(ctx, loginTypedDelay); err != nil {
		return err
	}
	login, err := b.FindIn(ctx, form, selectorLoginButton)
	if err != nil {
		return err
	}
	err = b.Click(ctx, login)
	if err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	if err := p.clock.Sleep(ctx, loginSubmitDelay); err != nil {
		return err
	}

	return b.Eval(ctx, `() => { document.body.style.zoom = "100%" }`)
}

func (p *WebPortal) TableLoading(ctx context.Context) bool {
	return p.browser.Has(ctx, selectorTableLoading)
}

func (p *WebPortal) Reload(ctx context.Context) error {
	return p.browser.Reload(ctx)
}

func (p *WebPortal) ReadRecord(ctx context.Context, index int) (RawRecord, error) {
	err := p.sortByDate(ctx)
	if err != nil {
		return RawRecord{}, fmt.Errorf("sort by date: %w", err)
	}
	page, row := p.opts.position(index)
	err = p.openPage(ctx, page)
	if err != nil {
		return RawRecord{}, fmt.Errorf("open page %d: %w", page, err)
	}
	if err := p.clock.Sleep(ctx, listDelay); err != nil {
		return RawRecord{}, err
	}

	snapshot, err := p.browser.Snapshot(ctx, selectorTableBody)
	if err != nil {
		return RawRecord{}, err
	}
	raw, err := parseRow(snapshot, row)
	if errors.Is(err, ErrRowNotFound) {
		// the last page is short, or holds the single "no records" row.
		return RawRecord{}, fmt.Errorf("%w: %w", ErrQueueEnd, err)
	}
	return raw, err
}

// sortByDate sorts the queue ascending by year, the sort toggles so it only clicks when
// the ascending marker is missing.
func (p *WebPortal) sortByDate(ctx context.Context) error {
	toggle, err := p.browser.Find(ctx, selectorDateSort)
	if err != nil {
		return err
	}
	if !p.browser.HasIn(ctx, toggle, selectorSortedAsc) {
		err = p.browser.Click(ctx, toggle)
		if err != nil {
			return err
		}
	}
	return p.clock.Sleep(ctx, sortDelay)
}

func (p *WebPortal) openPage(ctx context.Context, page int) error {
	// a queue that fits on one page has no paginator.
	if !p.browser.Has(ctx, selectorPaginator) {
		if page == 1 {
			return nil
		}
		return fmt.Errorf("%w: no paginator to reach page %d", ErrQueueEnd, page)
	}
	for hop := 0; hop < maxPageHops; hop++ {
		snapshot, err := p.browser.Snapshot(ctx, selectorPaginator)
		if err != nil {
			return err
		}
		state, err := parsePaginator(snapshot)
		if err != nil {
			return err
		}
		if state.active == page {
			return nil
		}

		links, err := p.browser.FindAll(ctx, selectorPageLinks)
		if err != nil {
			return err
		}
		target := state.next(page)
		if target >= len(links) {
			return fmt.Errorf("%w: paginator changed while paging", ErrPageNotReached)
		}
		if state.links[target] == state.active {
			return fmt.Errorf("%w: no link leads from page %d towards %d", ErrQueueEnd, state.active, page)
		}
		err = p.browser.Click(ctx, links[target])
		if err != nil {
			return err
		}
		if err := p.clock.Sleep(ctx, pageDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: gave up after %d clicks", ErrPageNotReached, maxPageHops)
}

func (p *WebPortal) OpenRecord(ctx context.Context, index int) error {
	body, err := p.browser.Find(ctx, selectorTableBody)
	if err != nil {
		return err
	}
	rows, err := p.browser.FindAllIn(ctx, body, "tr")
	if err != nil {
		return err
	}
	_, row := p.opts.position(index)
	if row >= len(rows) {
		return fmt.Errorf("%w: row %d of %d", ErrRowNotFound, row, len(rows))
	}
	return p.browser.DoubleClick(ctx, rows[row])
}

func (p *WebPortal) HasUploadForm(ctx context.Context) bool {
	return p.browser.Has(ctx, selectorUploadForm)
}

func (p *WebPortal) AttachFile(ctx context.Context, path string) error {
	choose, err := p.browser.Find(ctx, selectorChooseFile)
	if err != nil {
		return err
	}
	input, err := p.browser.FindIn(ctx, choose, "input")
	if err != nil {
		return err
	}
	return p.browser.SetFiles(ctx, input, path)
}

func (p *WebPortal) HasAttachedFile(ctx context.Context) bool {
	return p.browser.Has(ctx, selectorAttachedFile)
}

func (p *WebPortal) dialogButton(ctx context.Context, index int) (*rod.Element, error) {
	buttons, err := p.browser.FindAll(ctx, selectorDialogButtons)
	if err != nil {
		return nil, err
	}
	if len(buttons) <= index {
		p.tel.ReportBroken(report_validator_upload, ErrMissingButtons, len(buttons))
		return nil, fmt.Errorf("%w: found %d", ErrMissingButtons, len(buttons))
	}
	return buttons[index], nil
}

func (p *WebPortal) SubmitEnabled(ctx context.Context) (bool, error) {
	submit, err := p.dialogButton(ctx, submitButtonIndex)
	if err != nil {
		return false, err
	}
	disabled, err := p.browser.Disabled(ctx, submit)
	if err != nil {
		return false, err
	}
	return !disabled, nil
}

func (p *WebPortal) Submit(ctx context.Context) error {
	submit, err := p.dialogButton(ctx, submitButtonIndex)
	if err != nil {
		return err
	}
	return p.browser.Click(ctx, submit)
}

func (p *WebPortal) Cancel(ctx context.Context) error {
	cancel, err := p.dialogButton(ctx, cancelButtonIndex)
	if err != nil {
		return err
	}
	return p.browser.Click(ctx, cancel)
}
