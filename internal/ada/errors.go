package ada

import "errors"

var (
	ErrNoMatches       = errors.New("found no matches")
	ErrMultipleMatches = errors.New("found multiple matches")
	ErrNameMismatch    = errors.New("the only match does not carry the searched names")
	ErrNoSession       = errors.New("could not open Ada in a new session, and no old session cookie was found")
	ErrSessionRejected = errors.New("could not open Ada in a new session, and the old session cookie does not work")
	ErrUnauthorized    = errors.New("the portal rejected the configured credentials")
)
