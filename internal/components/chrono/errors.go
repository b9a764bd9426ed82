package chrono

import "errors"

var ErrTimeout = errors.New("condition was not met before the timeout")
