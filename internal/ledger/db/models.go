package db

import "database/sql"

type Run struct {
	ID         string
	StartedAt  int64
	FinishedAt sql.NullInt64
	Attempts   int64
	Uploaded   int64
	Rejected   int64
	Skipped    int64
	Error      string
}

type Outcome struct {
	ID          int64
	RunID       string
	Attempt     int64
	RecordIndex int64
	Category    string
	Date        string
	Number      string
	Persons     string
	Status      string
	Reason      string
	Query       string
	Image       string
	Error       string
	DecidedAt   int64
}
