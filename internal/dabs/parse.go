package dabs

import (
	"fmt"
	"strconv"

	"certsync/internal/components/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	cellCategory = 1
	cellNumber   = 3
	cellDate     = 4
	cellPersons  = 5
)

// parseRow reads the record at row of a snapshot of the queue's table body. The snapshot
// is wrapped in a table so stray row tags survive parsing.
func parseRow(snapshot string, row int) (RawRecord, error) {
	doc, err := htmlutil.ParseDocument("<table>" + snapshot + "</table>")
	if err != nil {
		return RawRecord{}, err
	}

	rows := doc.Find("tr")
	if row < 0 || row >= rows.Length() {
		return RawRecord{}, fmt.Errorf("%w: row %d of %d", ErrRowNotFound, row, rows.Length())
	}
	cells := rows.Eq(row).Find("td")
	if cells.Length() <= cellPersons {
		return RawRecord{}, fmt.Errorf("%w: row %d has %d cells", ErrRowNotFound, row, cells.Length())
	}

	cell := func(i int) string {
		return htmlutil.SelectionText(cells.Eq(i))
	}
	return RawRecord{
		Category: cell(cellCategory),
		Number:   cell(cellNumber),
		Date:     cell(cellDate),
		Persons:  cell(cellPersons),
	}, nil
}

// paginator is the state of the page links under the queue.
type paginator struct {
	active int
	// links holds the page number of every link, in document order.
	links []int
}

func parsePaginator(snapshot string) (paginator, error) {
	doc, err := htmlutil.ParseDocument(snapshot)
	if err != nil {
		return paginator{}, err
	}

	p := paginator{}
	var parseErr error
	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		n, err := strconv.Atoi(htmlutil.SelectionText(link))
		if err != nil {
			parseErr = fmt.Errorf("page link %q: %w", htmlutil.SelectionText(link), err)
			n = 0
		}
		p.links = append(p.links, n)
		if link.HasClass("ui-state-active") {
			p.active = n
		}
	})
	if parseErr != nil {
		return paginator{}, parseErr
	}
	if len(p.links) == 0 {
		return paginator{}, fmt.Errorf("%w: no page links", ErrPageNotReached)
	}
	return p, nil
}

// next picks the link to click to get closer to page: the first link at or beyond it,
// or the last link when the paginator window hasn't reached it yet.
func (p paginator) next(page int) int {
	for i, n := range p.links {
		if page <= n {
			return i
		}
	}
	return len(p.links) - 1
}
