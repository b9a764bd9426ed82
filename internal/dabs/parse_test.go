package dabs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	contents, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(contents)
}

func TestParseRow(t *testing.T) {
	snapshot := readFixture(t, "queue_tbody.html")

	first, err := parseRow(snapshot, 0)
	require.NoError(t, err)
	require.Equal(t, RawRecord{
		Category: "Geboorte",
		Number:   "12",
		Date:     "03-04-1890",
		Persons:  "Pieter Jansen, Maria de Vries",
	}, first)

	second, err := parseRow(snapshot, 1)
	require.NoError(t, err)
	require.Equal(t, "Huwelijk", second.Category)
	require.Empty(t, second.Number)
	require.Equal(t, "Jan Bakker, Anna Smit, Kees Smit", second.Persons)

	_, err = parseRow(snapshot, 3)
	require.ErrorIs(t, err, ErrRowNotFound)
}

func TestParseRowEmptyQueue(t *testing.T) {
	_, err := parseRow(readFixture(t, "queue_empty.html"), 0)
	require.ErrorIs(t, err, ErrRowNotFound)
}

func TestParsePaginator(t *testing.T) {
	p, err := parsePaginator(readFixture(t, "paginator.html"))
	require.NoError(t, err)
	require.Equal(t, 5, p.active)
	require.Equal(t, []int{3, 4, 5, 6, 7}, p.links)

	require.Equal(t, 0, p.next(1))
	require.Equal(t, 0, p.next(3))
	require.Equal(t, 3, p.next(6))
	require.Equal(t, 4, p.next(7))
	require.Equal(t, 4, p.next(12))

	_, err = parsePaginator(`<span class="ui-paginator-pages"></span>`)
	require.ErrorIs(t, err, ErrPageNotReached)

	_, err = parsePaginator(`<span class="ui-paginator-pages"><a>1</a><a>next</a></span>`)
	require.Error(t, err)
}

func TestPosition(t *testing.T) {
	opts := Options{}
	page, row := opts.position(0)
	require.Equal(t, 1, page)
	require.Equal(t, 0, row)

	page, row = opts.position(23)
	require.Equal(t, 3, page)
	require.Equal(t, 3, row)

	page, row = Options{CertsPerPage: 25}.position(23)
	require.Equal(t, 1, page)
	require.Equal(t, 23, row)
}

func TestCertsListURL(t *testing.T) {
	opts := Options{
		Host:        "dabs.example.org",
		Path:        "certs/list",
		QueryString: "status=open",
		Username:    "user",
		Password:    "secret",
	}
	require.Equal(t, "https://dabs.example.org/certs/list?status=open", opts.CertsListURL())
}
