package runner

import (
	"context"
	"errors"
	"fmt"

	"certsync/internal/ada"
	"certsync/internal/browser"
	"certsync/internal/components/chrono"
	"certsync/internal/components/telemetry"
	"certsync/internal/dabs"
	"certsync/internal/state"
)

// Session is one attempt at the batch with everything it holds open.
type Session interface {
	Validate(ctx context.Context) (dabs.Summary, error)
	Close() error
}

// SessionFactory opens a session whose decided records go to sink, sink may be nil.
type SessionFactory func(ctx context.Context, sink dabs.OutcomeSink) (Session, error)

type browserSession struct {
	client      *ada.Client
	dabsBrowser *browser.Browser
	validator   *dabs.Validator
}

func (s browserSession) Validate(ctx context.Context) (dabs.Summary, error) {
	return s.validator.ValidateAll(ctx)
}

func (s browserSession) Close() error {
	return errors.Join(s.client.Quit(), s.dabsBrowser.Quit())
}

// BrowserSessions opens every session in two fresh browsers, one per site.
func BrowserSessions(config Config, clock chrono.API, tel telemetry.API) SessionFactory {
	return func(ctx context.Context, sink dabs.OutcomeSink) (Session, error) {
		err := ada.Probe(ctx, config.Ada, tel)
		if errors.Is(err, ada.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		if err != nil {
			return nil, err
		}

		skips, err := state.OpenSkipCounter(config.Dabs.WithDefaults().SkipCounterFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPermanent, err)
		}

		adaBrowser, err := browser.Launch(ctx, config.Browser.Options(), clock, tel)
		if err != nil {
			return nil, err
		}
		client, err := ada.NewClient(ctx, adaBrowser, config.Ada, tel)
		if err != nil {
			return nil, errors.Join(err, adaBrowser.Quit())
		}

		dabsBrowser, err := browser.Launch(ctx, config.Browser.Options(), clock, tel)
		if err != nil {
			return nil, errors.Join(err, client.Quit())
		}
		dabsOpts := config.Dabs
		dabsOpts.WaitTime = dabsBrowser.WaitTime()
		portal := dabs.NewWebPortal(dabsBrowser, dabsOpts, clock, tel)

		return browserSession{
			client:      client,
			dabsBrowser: dabsBrowser,
			validator:   dabs.NewValidator(portal, client, skips, dabsOpts, clock, sink, tel),
		}, nil
	}
}
