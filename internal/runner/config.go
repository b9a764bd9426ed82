package runner

import (
	"time"

	"certsync/internal/ada"
	"certsync/internal/browser"
	"certsync/internal/dabs"
	"certsync/internal/ledger"
	"certsync/internal/notify"
)

type BrowserConfig struct {
	Bin         string `json:"bin"`
	Headless    bool   `json:"headless"`
	DownloadDir string `json:"download_dir"`
	WaitSeconds int    `json:"wait_seconds"`
}

func (c BrowserConfig) Options() browser.Options {
	return browser.Options{
		Bin:         c.Bin,
		Headless:    c.Headless,
		DownloadDir: c.DownloadDir,
		WaitTime:    time.Duration(c.WaitSeconds) * time.Second,
	}
}

// Config is the whole of config.json5.
type Config struct {
	Ada     ada.Options   `json:"ada"`
	Dabs    dabs.Options  `json:"dabs"`
	Browser BrowserConfig `json:"browser"`
	Runner  Options       `json:"runner"`
	Ledger  ledger.Config `json:"ledger"`
	Notify  notify.Config `json:"notify"`
	Verbose bool          `json:"verbose"`
}

type Options struct {
	// MaxAttempts caps how many times a failing batch is started over.
	MaxAttempts int `json:"max_attempts"`
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 600
	}
	return o
}
