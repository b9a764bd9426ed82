package ada

import (
	"certsync/internal/components/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Match is one row of the search results.
type Match struct {
	Text  string
	Cells []string
}

// parseMatches reads the rows of a document list snapshot. An empty result is rendered
// as a single row holding a single "no records" cell, it is not a match.
func parseMatches(snapshot string) ([]Match, error) {
	doc, err := htmlutil.ParseDocument(snapshot)
	if err != nil {
		return nil, err
	}

	matches := []Match{}
	doc.Find("tbody tr.ListContent").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= 1 {
			return
		}
		m := Match{Text: htmlutil.SelectionText(row)}
		cells.Each(func(_ int, cell *goquery.Selection) {
			m.Cells = append(m.Cells, htmlutil.SelectionText(cell))
		})
		matches = append(matches, m)
	})
	return matches, nil
}

// single returns the only match, or the error describing why there isn't exactly one.
func single(matches []Match) (Match, error) {
	switch {
	case len(matches) == 0:
		return Match{}, ErrNoMatches
	case len(matches) > 1:
		return Match{}, ErrMultipleMatches
	}
	return matches[0], nil
}
