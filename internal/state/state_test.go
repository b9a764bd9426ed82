package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSkipCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dabs_skip_counter")

	counter, err := OpenSkipCounter(path)
	require.NoError(t, err)
	require.Equal(t, 0, counter.Value())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0", string(contents))

	require.NoError(t, counter.Advance())
	require.NoError(t, counter.Advance())
	require.Equal(t, 2, counter.Value())

	reopened, err := OpenSkipCounter(path)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Value())

	require.NoError(t, reopened.Set(0))
	require.Error(t, reopened.Set(-1))
	require.Equal(t, 0, reopened.Value())
}

func TestSkipCounterParse(t *testing.T) {
	dir := t.TempDir()

	trailing := filepath.Join(dir, "trailing")
	require.NoError(t, os.WriteFile(trailing, []byte("17\n"), 0644))
	counter, err := OpenSkipCounter(trailing)
	require.NoError(t, err)
	require.Equal(t, 17, counter.Value())

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("seventeen"), 0644))
	_, err = OpenSkipCounter(garbage)
	require.Error(t, err)

	negative := filepath.Join(dir, "negative")
	require.NoError(t, os.WriteFile(negative, []byte("-3"), 0644))
	_, err = OpenSkipCounter(negative)
	require.Error(t, err)
}

func TestCookie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ada_session_cookie")

	_, err := LoadCookie(path)
	require.ErrorIs(t, err, ErrNoCookie)

	cookie := Cookie{
		Name:     "ASP.NET_SessionId",
		Value:    "qz1x0e2kd4",
		Domain:   "ada.example.org",
		Path:     "/",
		HTTPOnly: true,
	}
	require.NoError(t, SaveCookie(path, cookie))

	loaded, err := LoadCookie(path)
	require.NoError(t, err)
	require.Equal(t, cookie, loaded)

	require.NoError(t, os.WriteFile(path, []byte("{'name': 'python repr'}"), 0600))
	_, err = LoadCookie(path)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoCookie)
}
