package ada

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"certsync/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const report_probe = "probe"

// Probe checks that the search page answers to the configured credentials before a
// browser is spent on it.
func Probe(ctx context.Context, opts Options, tel telemetry.API) error {
	tel = telemetry.NewScopedAPI("ada", tel)

	client := resty.New()
	client.SetTimeout(time.Second * 30)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	telemetry.InstrumentResty(client, tel)

	req := client.R().SetContext(ctx)
	if opts.Username != "" {
		req.SetBasicAuth(opts.Username, opts.Password)
	}
	res, err := req.Get(opts.url(false))
	if err != nil {
		return fmt.Errorf("probe search page: %w", err)
	}

	switch res.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		tel.ReportBroken(report_probe, ErrUnauthorized, res.Status())
		return ErrUnauthorized
	}
	if res.IsError() {
		tel.ReportBroken(report_probe, res.Status())
		return fmt.Errorf("probe search page: unexpected status %s", res.Status())
	}
	return nil
}
