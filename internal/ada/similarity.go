package ada

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// carriesNames reports whether every searched surname is close enough to some word of the
// match text. Scans are indexed by hand, so spelling drifts a little between the two sites.
func carriesNames(match Match, names string, threshold float64) bool {
	if threshold <= 0 || strings.TrimSpace(names) == "" {
		return true
	}

	words := strings.Fields(strings.ToLower(match.Text))
	for _, name := range strings.Fields(strings.ToLower(names)) {
		best := 0.0
		for _, w := range words {
			similarity := matchr.JaroWinkler(name, strings.Trim(w, ",.;:()"), false)
			if similarity > best {
				best = similarity
			}
		}
		if best < threshold {
			return false
		}
	}
	return true
}
