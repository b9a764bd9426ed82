package ada

import (
	"context"
	"errors"
	"fmt"

	"certsync/internal/browser"
	"certsync/internal/components/assert"
	"certsync/internal/components/telemetry"
	"certsync/internal/state"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("certsync/internal/ada")

const (
	report_client_session             = "client.session"
	report_client_download_cert_image = "client.download-cert-image"
)

const (
	selectorDetailTable   = ".DetailTable"
	selectorSearchButtons = "#ctl00_Plh1_lnkButtons_pnlButtons a"
	selectorCategoryField = "[name='ctl00_Plh1_grd_fltcat']"
	selectorTitleField    = "[name='ctl00_Plh1_grd_flttitle']"
	selectorDocumentList  = "#ctl00_Plh1_grd_documentlist"
	selectorTifDownload   = `img[src="./Images/FileTypes/tif.gif"]`

	// the fourth button opens the certificate search form.
	searchButtonIndex = 3
)

// Client searches the records portal through a browser session of its own.
type Client struct {
	browser *browser.Browser
	opts    Options
	limiter *rate.Limiter
	tel     telemetry.API
}

// NewClient opens the portal in b. The portal may refuse a new session while a previous
// one is still active: if it works, the new session cookie is stored for future use, if
// not the stored cookie is loaded and the portal is tried again.
func NewClient(ctx context.Context, b *browser.Browser, opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(b)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Host)

	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.SearchesPerSecond > 0 {
		limit = rate.Limit(opts.SearchesPerSecond)
	}

	c := &Client{
		browser: b,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		tel:     telemetry.NewScopedAPI("ada", tel),
	}

	if c.isWorking(ctx) {
		c.storeSessionCookie(ctx)
		return c, nil
	}

	cookie, err := state.LoadCookie(opts.SessionCookieFile)
	if errors.Is(err, state.ErrNoCookie) {
		c.tel.ReportBroken(report_client_session, ErrNoSession)
		return nil, ErrNoSession
	}
	if err != nil {
		c.tel.ReportBroken(report_client_session, err)
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	err = b.SetCookie(ctx, cookie)
	if err != nil {
		c.tel.ReportBroken(report_client_session, err)
		return nil, fmt.Errorf("load session cookie: %w", err)
	}

	if !c.isWorking(ctx) {
		c.tel.ReportBroken(report_client_session, ErrSessionRejected)
		return nil, ErrSessionRejected
	}
	return c, nil
}

func (c *Client) isWorking(ctx context.Context) bool {
	err := c.browser.Navigate(ctx, c.opts.SearchURL())
	if err != nil {
		c.tel.ReportDebug("search page unreachable", err)
		return false
	}
	return c.browser.Has(ctx, selectorDetailTable)
}

func (c *Client) storeSessionCookie(ctx context.Context) {
	cookie, err := c.browser.Cookie(ctx, sessionCookieName)
	if err != nil {
		c.tel.ReportWarning(report_client_session, fmt.Errorf("read session cookie: %w", err))
		return
	}
	err = state.SaveCookie(c.opts.SessionCookieFile, cookie)
	if err != nil {
		c.tel.ReportWarning(report_client_session, err)
	}
}

// DownloadCertImage searches for the certificate described by q and downloads its scan.
// It returns the path of the downloaded file only when exactly one certificate matched.
func (c *Client) DownloadCertImage(ctx context.Context, q Query) (string, error) {
	ctx, span := tracer.Start(ctx, "client:DownloadCertImage")
	defer span.End()
	span.SetAttributes(
		attribute.String("ada.category", q.Category),
		attribute.String("ada.title", q.Title()),
	)

	path, err := c.downloadCertImage(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download cert image")
		c.tel.ReportDebug("lookup failed", q.String(), err)
		return "", err
	}
	return path, nil
}

func (c *Client) downloadCertImage(ctx context.Context, q Query) (string, error) {
	b := c.browser

	err := c.limiter.Wait(ctx)
	if err != nil {
		return "", err
	}

	// open the search page.
	err = b.Navigate(ctx, c.opts.SearchURL())
	if err != nil {
		return "", fmt.Errorf("open search page: %w", err)
	}
	buttons, err := b.FindAll(ctx, selectorSearchButtons)
	if err != nil {
		return "", err
	}
	if len(buttons) <= searchButtonIndex {
		c.tel.ReportBroken(report_client_download_cert_image, "search buttons", len(buttons))
		return "", fmt.Errorf("expected at least %d search buttons, found %d", searchButtonIndex+1, len(buttons))
	}
	err = b.Click(ctx, buttons[searchButtonIndex])
	if err != nil {
		return "", fmt.Errorf("open search form: %w", err)
	}

	// enter the search criteria and submit.
	category, err := b.Find(ctx, selectorCategoryField)
	if err != nil {
		return "", err
	}
	err = b.Type(ctx, category, q.Category)
	if err != nil {
		return "", err
	}
	title, err := b.Find(ctx, selectorTitleField)
	if err != nil {
		return "", err
	}
	err = b.Type(ctx, title, q.Title())
	if err != nil {
		return "", err
	}
	err = b.SubmitWithEnter(ctx, title)
	if err != nil {
		return "", fmt.Errorf("submit search: %w", err)
	}

	// exactly one match is needed to be sure which file to download.
	snapshot, err := b.Snapshot(ctx, selectorDocumentList)
	if err != nil {
		return "", err
	}
	matches, err := parseMatches(snapshot)
	if err != nil {
		c.tel.ReportBroken(report_client_download_cert_image, fmt.Errorf("parse document list: %w", err))
		return "", err
	}
	match, err := single(matches)
	if err != nil {
		return "", err
	}
	if !carriesNames(match, q.Names, c.opts.MinNameSimilarity) {
		c.tel.ReportWarning(report_client_download_cert_image, ErrNameMismatch, q.Names, match.Text)
		return "", ErrNameMismatch
	}

	// the name of the downloaded file can't be known up front, an empty download
	// directory makes it the only file in there.
	err = b.EmptyDownloadDir()
	if err != nil {
		c.tel.ReportBroken(report_client_download_cert_image, fmt.Errorf("empty download dir: %w", err))
		return "", err
	}
	download, err := b.Find(ctx, selectorTifDownload)
	if err != nil {
		return "", err
	}
	err = b.Click(ctx, download)
	if err != nil {
		return "", fmt.Errorf("start download: %w", err)
	}
	path, err := b.WaitForDownload(ctx)
	if err != nil {
		return "", err
	}

	// every download opens a popup window.
	err = b.CloseAllPopupWindows(ctx)
	if err != nil {
		return "", err
	}

	return path, nil
}

// Quit closes the browser session.
func (c *Client) Quit() error {
	return c.browser.Quit()
}
