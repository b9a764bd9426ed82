package dabs

import (
	"fmt"
	"strconv"
	"strings"
)

// categories maps the validation queue's category labels onto the records portal's.
var categories = map[string]string{
	"Huwelijk":   "Huwelijksakte",
	"Overlijden": "Overlijdensakte",
	"Geboorte":   "Geboorteakte",
}

// RawRecord is the visible text of one row of the validation queue.
type RawRecord struct {
	Category string
	Number   string
	Date     string
	Persons  string
}

// Record is what a lookup is derived from.
type Record struct {
	Raw RawRecord
	// Category is the records portal category, empty when the queue category has none.
	Category string
	Year     int
	// YearText is the year as the queue shows it, searches use it verbatim.
	YearText string
	// Number is the certificate number left padded with zeros to four characters, empty
	// when absent.
	Number     string
	Candidates []string
}

func (r Record) Matched() bool {
	return r.Category != ""
}

func Derive(raw RawRecord) (Record, error) {
	yearText, year, err := parseYear(raw.Date)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Raw:        raw,
		Category:   categories[strings.TrimSpace(raw.Category)],
		Year:       year,
		YearText:   yearText,
		Number:     padNumber(raw.Number),
		Candidates: Candidates(Surnames(raw.Persons)),
	}, nil
}

// parseYear reads the year from the last four characters of a date.
func parseYear(date string) (string, int, error) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return "", 0, fmt.Errorf("%w: %q", ErrUnreadableYear, date)
	}
	text := date[len(date)-4:]
	year, err := strconv.Atoi(text)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrUnreadableYear, date)
	}
	return text, year, nil
}

// padNumber keeps the digits as written, only short numbers get leading zeros.
func padNumber(number string) string {
	number = strings.TrimSpace(number)
	n, err := strconv.Atoi(number)
	if err != nil || n <= 0 {
		return ""
	}
	if len(number) < 4 {
		number = strings.Repeat("0", 4-len(number)) + number
	}
	return number
}

// Surnames takes the last word of every comma separated person.
func Surnames(persons string) []string {
	out := []string{}
	for _, person := range strings.Split(persons, ",") {
		words := strings.Fields(person)
		if len(words) == 0 {
			continue
		}
		out = append(out, words[len(words)-1])
	}
	return out
}

// Candidates is every surname followed by every pair of surnames, in reverse order.
func Candidates(surnames []string) []string {
	out := make([]string, 0, len(surnames)*(len(surnames)+1)/2)
	out = append(out, surnames...)
	for i := 0; i < len(surnames); i++ {
		for j := i + 1; j < len(surnames); j++ {
			out = append(out, surnames[i]+" "+surnames[j])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
