package dabs

import (
	"net/url"
	"strings"
	"time"

	"certsync/internal/browser"
)

const (
	// tries to get the table out of its loading state before reading a record.
	loadingAttempts = 10
	// tries to get the upload form to show after opening a record.
	formAttempts = 5
	// tries to attach the scan to the upload form.
	attachAttempts = 10

	loadingRetryDelay = 2 * time.Second
	formPollDelay     = time.Second
	attachSettleDelay = time.Second
	attachRetryDelay  = 2 * time.Second
	afterDecideDelay  = 300 * time.Millisecond

	// how often the upload dialog is checked while waiting for an element to show.
	presencePollInterval = 200 * time.Millisecond
)

type Options struct {
	Scheme      string `json:"scheme"`
	Host        string `json:"host"`
	Path        string `json:"path"`
	QueryString string `json:"query_string"`
	Username    string `json:"username"`
	Password    string `json:"password"`

	SkipCounterFile string `json:"skip_counter_file"`
	// MaxYear ends the batch at the first record dated after it, the queue is sorted
	// ascending by year so nothing after it is eligible either.
	MaxYear      int `json:"max_year"`
	CertsPerPage int `json:"certs_per_page"`

	// WaitTime bounds how long the upload dialog gets to render an element before it
	// counts as missing, it follows the browser's implicit wait.
	WaitTime time.Duration `json:"-"`
}

func (o Options) WithDefaults() Options {
	if o.Scheme == "" {
		o.Scheme = "https"
	}
	if o.SkipCounterFile == "" {
		o.SkipCounterFile = "dabs_skip_counter"
	}
	if o.MaxYear == 0 {
		o.MaxYear = 2017
	}
	if o.CertsPerPage <= 0 {
		o.CertsPerPage = 10
	}
	if o.WaitTime <= 0 {
		o.WaitTime = browser.DefaultWaitTime
	}
	return o
}

// CertsListURL is the list of certificates to be validated, opening it redirects through
// the login form.
func (o Options) CertsListURL() string {
	o = o.WithDefaults()
	u := url.URL{
		Scheme:   o.Scheme,
		Host:     o.Host,
		Path:     "/" + strings.TrimPrefix(o.Path, "/"),
		RawQuery: o.QueryString,
	}
	return u.String()
}

// position returns the 1-based page holding the record at index and the row within it.
func (o Options) position(index int) (page, row int) {
	perPage := o.WithDefaults().CertsPerPage
	return index/perPage + 1, index % perPage
}
