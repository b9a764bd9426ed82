package ada

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCarriesNames(t *testing.T) {
	match := Match{Text: "Huwelijksakte Jansen - Bakker 1890 0031"}

	testCases := []struct {
		names     string
		threshold float64
		expect    bool
	}{
		{names: "Jansen", threshold: 0.9, expect: true},
		{names: "Jansen Bakker", threshold: 0.9, expect: true},
		{names: "Janssen", threshold: 0.9, expect: true},
		{names: "Pietersen", threshold: 0.9, expect: false},
		{names: "Jansen Pietersen", threshold: 0.9, expect: false},
		{names: "Pietersen", threshold: 0, expect: true},
		{names: "", threshold: 0.9, expect: true},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, carriesNames(match, test.names, test.threshold), test.names)
	}
}
