package dabs

import "context"

type Status string

const (
	StatusUploaded Status = "uploaded"
	// StatusRejected is a record whose upload the application refused to submit.
	StatusRejected Status = "rejected"
	StatusSkipped  Status = "skipped"
)

type SkipReason string

const (
	ReasonUnmatchedCategory SkipReason = "unmatched_category"
	ReasonUnreadableYear    SkipReason = "unreadable_year"
	ReasonNotFound          SkipReason = "not_found"
	ReasonUnsupportedFile   SkipReason = "unsupported_file"
	ReasonNoUploadForm      SkipReason = "no_upload_form"
	ReasonSubmitDisabled    SkipReason = "submit_disabled"
)

// Outcome is how a single record was decided.
type Outcome struct {
	Index  int
	Record RawRecord
	Status Status
	// Reason is empty for uploaded records.
	Reason SkipReason
	// Query is the search that found the scan, Image the path it was downloaded to.
	Query string
	Image string
	Err   error
}

// OutcomeSink receives every decided record, a failing sink never stops the batch.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

type Summary struct {
	Uploaded int
	Rejected int
	Skipped  int
}

func (s *Summary) add(status Status) {
	switch status {
	case StatusUploaded:
		s.Uploaded++
	case StatusRejected:
		s.Rejected++
	case StatusSkipped:
		s.Skipped++
	}
}

// Merge adds the counts of other to s.
func (s *Summary) Merge(other Summary) {
	s.Uploaded += other.Uploaded
	s.Rejected += other.Rejected
	s.Skipped += other.Skipped
}

func (s Summary) Decided() int {
	return s.Uploaded + s.Rejected + s.Skipped
}
