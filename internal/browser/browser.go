// Package browser is a thin session wrapper over a chrome instance driven through go-rod.
// It gives the two site drivers selenium-like primitives: implicit waits on lookups,
// immediate presence checks, a dedicated download directory and popup cleanup.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"certsync/internal/components/chrono"
	"certsync/internal/components/telemetry"
	"certsync/internal/state"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	report_browser_launch  = "browser.launch"
	report_browser_popups  = "browser.close-all-popup-windows"
	report_browser_cookies = "browser.cookie"
)

const DefaultWaitTime = 30 * time.Second

const partialDownloadSuffix = ".crdownload"

type Options struct {
	// Bin is the chrome executable, empty lets rod find or fetch one.
	Bin         string
	Headless    bool
	DownloadDir string
	// WaitTime bounds every implicit wait on an element lookup.
	WaitTime time.Duration
	Width    int
	Height   int
}

func (o Options) withDefaults() Options {
	if o.WaitTime <= 0 {
		o.WaitTime = DefaultWaitTime
	}
	if o.DownloadDir == "" {
		o.DownloadDir = "download"
	}
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	return o
}

// Browser is one chrome process with one main window.
type Browser struct {
	rod         *rod.Browser
	launcher    *launcher.Launcher
	main        *rod.Page
	downloadDir string
	waitTime    time.Duration
	clock       chrono.API
	tel         telemetry.API
}

// Launch starts chrome, points its downloads at opts.DownloadDir and opens the main window.
func Launch(ctx context.Context, opts Options, clock chrono.API, tel telemetry.API) (*Browser, error) {
	opts = opts.withDefaults()
	tel = telemetry.NewScopedAPI("browser", tel)

	downloadDir, err := filepath.Abs(opts.DownloadDir)
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(downloadDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("window-size", fmt.Sprintf("%d,%d", opts.Width, opts.Height))
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		tel.ReportBroken(report_browser_launch, err)
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	rb := rod.New().ControlURL(controlURL).Context(ctx)
	err = rb.Connect()
	if err != nil {
		l.Kill()
		tel.ReportBroken(report_browser_launch, err)
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	err = proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: downloadDir,
	}.Call(rb)
	if err != nil {
		_ = rb.Close()
		l.Kill()
		return nil, fmt.Errorf("set download behavior: %w", err)
	}

	page, err := rb.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = rb.Close()
		l.Kill()
		return nil, fmt.Errorf("open main window: %w", err)
	}

	return &Browser{
		rod:         rb,
		launcher:    l,
		main:        page,
		downloadDir: downloadDir,
		waitTime:    opts.WaitTime,
		clock:       clock,
		tel:         tel,
	}, nil
}

func (b *Browser) DownloadDir() string {
	return b.downloadDir
}

func (b *Browser) WaitTime() time.Duration {
	return b.waitTime
}

func (b *Browser) page(ctx context.Context) *rod.Page {
	return b.main.Context(ctx)
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	page := b.page(ctx)
	err := page.Navigate(url)
	if err != nil {
		return err
	}
	return page.WaitLoad()
}

func (b *Browser) Reload(ctx context.Context) error {
	page := b.page(ctx)
	err := page.Reload()
	if err != nil {
		return err
	}
	return page.WaitLoad()
}

// Find waits up to the wait time for an element matching selector.
func (b *Browser) Find(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := b.page(ctx).Timeout(b.waitTime).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	return el.CancelTimeout(), nil
}

// FindIn is Find scoped to the descendants of parent.
func (b *Browser) FindIn(ctx context.Context, parent *rod.Element, selector string) (*rod.Element, error) {
	el, err := parent.Context(ctx).Timeout(b.waitTime).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	return el.CancelTimeout(), nil
}

// FindAll waits for the first match of selector and then returns every match.
func (b *Browser) FindAll(ctx context.Context, selector string) (rod.Elements, error) {
	_, err := b.Find(ctx, selector)
	if err != nil {
		return nil, err
	}
	return b.page(ctx).Elements(selector)
}

// FindAllIn is FindAll scoped to the descendants of parent.
func (b *Browser) FindAllIn(ctx context.Context, parent *rod.Element, selector string) (rod.Elements, error) {
	_, err := b.FindIn(ctx, parent, selector)
	if err != nil {
		return nil, err
	}
	return parent.Context(ctx).Elements(selector)
}

// Has reports whether selector currently matches, it never waits.
func (b *Browser) Has(ctx context.Context, selector string) bool {
	has, _, err := b.page(ctx).Has(selector)
	return err == nil && has
}

// HasIn is Has scoped to the descendants of parent.
func (b *Browser) HasIn(ctx context.Context, parent *rod.Element, selector string) bool {
	has, _, err := parent.Context(ctx).Has(selector)
	return err == nil && has
}

// Snapshot waits for selector and returns the outer html of the first match, parsers work
// on snapshots instead of walking the live DOM element by element.
func (b *Browser) Snapshot(ctx context.Context, selector string) (string, error) {
	el, err := b.Find(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.HTML()
}

func (b *Browser) Click(ctx context.Context, el *rod.Element) error {
	return el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (b *Browser) DoubleClick(ctx context.Context, el *rod.Element) error {
	return el.Context(ctx).Click(proto.InputMouseButtonLeft, 2)
}

// Disabled reports whether a form control has its disabled property set.
func (b *Browser) Disabled(ctx context.Context, el *rod.Element) (bool, error) {
	return el.Context(ctx).Disabled()
}

// Type appends text to an input.
func (b *Browser) Type(ctx context.Context, el *rod.Element, text string) error {
	return el.Context(ctx).Input(text)
}

// SubmitWithEnter presses enter in el and waits, bounded by the wait time, for the page
// the form posts back to.
func (b *Browser) SubmitWithEnter(ctx context.Context, el *rod.Element) error {
	page := b.page(ctx).Timeout(b.waitTime)
	defer page.CancelTimeout()

	wait := page.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	err := el.Context(ctx).Type(input.Enter)
	if err != nil {
		return err
	}
	wait()
	return nil
}

func (b *Browser) SetFiles(ctx context.Context, el *rod.Element, paths ...string) error {
	return el.Context(ctx).SetFiles(paths)
}

func (b *Browser) Eval(ctx context.Context, js string) error {
	_, err := b.page(ctx).Eval(js)
	return err
}

// EmptyDownloadDir removes everything that was downloaded before, so that the next
// download is the only file in the directory.
func (b *Browser) EmptyDownloadDir() error {
	err := os.RemoveAll(b.downloadDir)
	if err != nil {
		return err
	}
	return os.MkdirAll(b.downloadDir, 0755)
}

// WaitForDownload waits until the download directory holds exactly one finished file and
// returns its path.
func (b *Browser) WaitForDownload(ctx context.Context) (string, error) {
	var found string
	err := chrono.WaitUntil(ctx, b.clock, b.waitTime, 200*time.Millisecond, func() bool {
		name, ok := singleDownload(b.downloadDir)
		found = name
		return ok
	})
	if err != nil {
		return "", fmt.Errorf("wait for download: %w", err)
	}
	return filepath.Join(b.downloadDir, found), nil
}

func singleDownload(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		return "", false
	}
	name := entries[0].Name()
	if entries[0].IsDir() || strings.HasSuffix(name, partialDownloadSuffix) {
		return "", false
	}
	return name, true
}

// CloseAllPopupWindows closes every window except the main one.
func (b *Browser) CloseAllPopupWindows(ctx context.Context) error {
	pages, err := b.rod.Context(ctx).Pages()
	if err != nil {
		b.tel.ReportBroken(report_browser_popups, err)
		return err
	}
	for _, p := range pages {
		if p.TargetID == b.main.TargetID {
			continue
		}
		err := p.Close()
		if err != nil {
			b.tel.ReportWarning(report_browser_popups, err)
		}
	}
	return nil
}

// Cookie returns the cookie called name visible to the current page.
func (b *Browser) Cookie(ctx context.Context, name string) (state.Cookie, error) {
	cookies, err := b.page(ctx).Cookies(nil)
	if err != nil {
		b.tel.ReportBroken(report_browser_cookies, err)
		return state.Cookie{}, err
	}
	for _, c := range cookies {
		if c.Name != name {
			continue
		}
		return state.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}, nil
	}
	return state.Cookie{}, fmt.Errorf("cookie %q: %w", name, state.ErrNoCookie)
}

func (b *Browser) SetCookie(ctx context.Context, c state.Cookie) error {
	return b.page(ctx).SetCookies([]*proto.NetworkCookieParam{{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  proto.TimeSinceEpoch(c.Expires),
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}})
}

// Quit closes chrome and removes its temporary profile.
func (b *Browser) Quit() error {
	err := b.rod.Close()
	b.launcher.Cleanup()
	return err
}
