// Package notify mails a summary of a finished run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"certsync/internal/components/assert"
	"certsync/internal/components/telemetry"
	"certsync/internal/dabs"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("certsync/internal/notify")

const report_notifier_send = "notifier.send"

type Config struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled reports whether there is a server and anyone to mail.
func (c Config) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", c.Server, port)
}

// RunReport is what a summary mail describes.
type RunReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Attempts int
	Summary  dabs.Summary
	Err      error
}

type Notifier struct {
	config Config
	tel    telemetry.API
}

func NewNotifier(config Config, tel telemetry.API) Notifier {
	assert.NotNil(tel)
	return Notifier{
		config: config,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

// SendSummary mails the report to every recipient. It does nothing when notifications
// aren't configured.
func (n Notifier) SendSummary(ctx context.Context, report RunReport) error {
	if !n.config.Enabled() {
		return nil
	}

	ctx, span := tracer.Start(ctx, "notifier:SendSummary")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("certsync <%s>", n.config.EmailAddress)
	mail.To = n.config.To
	mail.Subject, mail.Text = compose(report)

	err := mail.Send(
		n.config.addr(),
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(n.config.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		n.tel.ReportBroken(report_notifier_send, err, report.RunID)
		return err
	}
	return nil
}

func compose(report RunReport) (string, []byte) {
	outcome := "finished"
	if report.Err != nil {
		outcome = "failed"
	}
	subject := fmt.Sprintf(
		"certsync run %s %s: %d uploaded, %d skipped",
		report.RunID,
		outcome,
		report.Summary.Uploaded,
		report.Summary.Skipped+report.Summary.Rejected,
	)

	body := &strings.Builder{}
	fmt.Fprintf(body, "Run:       %s\n", report.RunID)
	fmt.Fprintf(body, "Started:   %s\n", report.Started.Format(time.RFC3339))
	fmt.Fprintf(body, "Finished:  %s\n", report.Finished.Format(time.RFC3339))
	fmt.Fprintf(body, "Duration:  %s\n", report.Finished.Sub(report.Started).Round(time.Second))
	fmt.Fprintf(body, "Attempts:  %d\n", report.Attempts)
	fmt.Fprintf(body, "\n")
	fmt.Fprintf(body, "Uploaded:  %d\n", report.Summary.Uploaded)
	fmt.Fprintf(body, "Rejected:  %d\n", report.Summary.Rejected)
	fmt.Fprintf(body, "Skipped:   %d\n", report.Summary.Skipped)
	if report.Err != nil {
		fmt.Fprintf(body, "\nThe run gave up after its last attempt failed:\n%s\n", report.Err)
	}
	return subject, []byte(body.String())
}
