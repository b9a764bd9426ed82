package dabs

import "errors"

var (
	ErrPastMaxYear       = errors.New("record is dated after the max year")
	ErrQueueEnd          = errors.New("no record left at the skip counter")
	ErrUnreadableYear    = errors.New("record has no readable year")
	ErrNoCertificate     = errors.New("no lookup found exactly one certificate")
	ErrUnsupportedFile   = errors.New("downloaded file is not a tif scan")
	ErrUploadFormMissing = errors.New("upload form did not appear")
	ErrRowNotFound       = errors.New("record row not found on the page")
	ErrPageNotReached    = errors.New("could not page to the record")
	ErrMissingButtons    = errors.New("upload dialog buttons not found")
)
