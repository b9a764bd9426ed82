package ada

import (
	"net/url"
	"strings"
)

const sessionCookieName = "ASP.NET_SessionId"

type Options struct {
	Scheme      string `json:"scheme"`
	Host        string `json:"host"`
	Path        string `json:"path"`
	QueryString string `json:"query_string"`
	Username    string `json:"username"`
	Password    string `json:"password"`

	// SessionCookieFile is where the last working session cookie is kept, the portal
	// refuses a new session while an old one is still active.
	SessionCookieFile string `json:"session_cookie_file"`
	// SearchesPerSecond paces searches, zero or less means unlimited.
	SearchesPerSecond float64 `json:"searches_per_second"`
	// MinNameSimilarity enables checking the single match against the searched surnames
	// with jaro-winkler similarity, zero disables the check.
	MinNameSimilarity float64 `json:"min_name_similarity"`
}

func (o Options) withDefaults() Options {
	if o.Scheme == "" {
		o.Scheme = "https"
	}
	if o.SessionCookieFile == "" {
		o.SessionCookieFile = "ada_session_cookie"
	}
	return o
}

func (o Options) url(withCredentials bool) string {
	o = o.withDefaults()
	u := url.URL{
		Scheme:   o.Scheme,
		Host:     o.Host,
		Path:     "/" + strings.TrimPrefix(o.Path, "/"),
		RawQuery: o.QueryString,
	}
	if withCredentials && o.Username != "" {
		u.User = url.UserPassword(o.Username, o.Password)
	}
	return u.String()
}

// SearchURL is the certificate search page with the credentials embedded, the portal
// authenticates through them.
func (o Options) SearchURL() string {
	return o.url(true)
}

// Query is one search on the portal, either Names or Number (or both) must be set.
type Query struct {
	Category string
	Year     string
	Names    string
	Number   string
}

// Title is the text typed into the title filter: the names, then year and number.
func (q Query) Title() string {
	parts := []string{}
	for _, p := range []string{q.Names, q.Year, q.Number} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (q Query) String() string {
	return q.Category + ": " + q.Title()
}
