package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"certsync/internal/components/telemetry"
	"certsync/internal/dabs"

	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	report := RunReport{
		RunID:    "a1b2c3",
		Started:  started,
		Finished: started.Add(90 * time.Minute),
		Attempts: 2,
		Summary:  dabs.Summary{Uploaded: 12, Rejected: 1, Skipped: 3},
	}

	subject, body := compose(report)
	require.Equal(t, "certsync run a1b2c3 finished: 12 uploaded, 4 skipped", subject)
	require.Contains(t, string(body), "Duration:  1h30m0s")
	require.Contains(t, string(body), "Rejected:  1")
	require.NotContains(t, string(body), "gave up")

	report.Err = errors.New("login: timeout")
	subject, body = compose(report)
	require.Contains(t, subject, "failed")
	require.Contains(t, string(body), "login: timeout")
}

func TestDisabled(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.False(t, Config{Server: "smtp.example.org"}.Enabled())
	require.True(t, Config{Server: "smtp.example.org", To: []string{"ops@example.org"}}.Enabled())

	tel := telemetry.NewRecorder()
	err := NewNotifier(Config{}, tel).SendSummary(context.Background(), RunReport{})
	require.NoError(t, err)
	require.Empty(t, tel.Reports(""))
}

func TestAddr(t *testing.T) {
	require.Equal(t, "smtp.example.org:587", Config{Server: "smtp.example.org"}.addr())
	require.Equal(t, "localhost:1025", Config{Server: "localhost", Port: 1025}.addr())
}
