package db

import (
	"context"
)

const createRun = `-- name: CreateRun :exec
insert into Run(id, startedAt) values (?, ?)
`

type CreateRunParams struct {
	ID        string
	StartedAt int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun, arg.ID, arg.StartedAt)
	return err
}

const finishRun = `-- name: FinishRun :exec
update Run set
    finishedAt = ?,
    attempts = ?,
    uploaded = ?,
    rejected = ?,
    skipped = ?,
    error = ?
where id = ?
`

type FinishRunParams struct {
	FinishedAt int64
	Attempts   int64
	Uploaded   int64
	Rejected   int64
	Skipped    int64
	Error      string
	ID         string
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun,
		arg.FinishedAt,
		arg.Attempts,
		arg.Uploaded,
		arg.Rejected,
		arg.Skipped,
		arg.Error,
		arg.ID,
	)
	return err
}

const createOutcome = `-- name: CreateOutcome :exec
insert into Outcome(
    runId, attempt, recordIndex, category, date, number, persons,
    status, reason, query, image, error, decidedAt
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateOutcomeParams struct {
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

func (q *Queries) CreateOutcome(ctx context.Context, arg CreateOutcomeParams) error {
	_, err := q.db.ExecContext(ctx, createOutcome,
		arg.RunID,
		arg.Attempt,
		arg.RecordIndex,
		arg.Category,
		arg.Date,
		arg.Number,
		arg.Persons,
		arg.Status,
		arg.Reason,
		arg.Query,
		arg.Image,
		arg.Error,
		arg.DecidedAt,
	)
	return err
}

const listOutcomes = `-- name: ListOutcomes :many
select id, runId, attempt, recordIndex, category, date, number, persons,
    status, reason, query, image, error, decidedAt
from Outcome
order by id desc
limit ?
`

func (q *Queries) ListOutcomes(ctx context.Context, limit int64) ([]Outcome, error) {
	rows, err := q.db.QueryContext(ctx, listOutcomes, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Outcome
	for rows.Next() {
		var i Outcome
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Attempt,
			&i.RecordIndex,
			&i.Category,
			&i.Date,
			&i.Number,
			&i.Persons,
			&i.Status,
			&i.Reason,
			&i.Query,
			&i.Image,
			&i.Error,
			&i.DecidedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRuns = `-- name: ListRuns :many
select id, startedAt, finishedAt, attempts, uploaded, rejected, skipped, error
from Run
order by startedAt desc, id desc
limit ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		var i Run
		if err := rows.Scan(
			&i.ID,
			&i.StartedAt,
			&i.FinishedAt,
			&i.Attempts,
			&i.Uploaded,
			&i.Rejected,
			&i.Skipped,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteRunsBefore = `-- name: DeleteRunsBefore :exec
delete from Run where startedAt < ?
`

func (q *Queries) DeleteRunsBefore(ctx context.Context, before int64) error {
	_, err := q.db.ExecContext(ctx, deleteRunsBefore, before)
	return err
}

const deleteOutcomesOfRunsBefore = `-- name: DeleteOutcomesOfRunsBefore :exec
delete from Outcome where runId in (select id from Run where startedAt < ?)
`

func (q *Queries) DeleteOutcomesOfRunsBefore(ctx context.Context, before int64) error {
	_, err := q.db.ExecContext(ctx, deleteOutcomesOfRunsBefore, before)
	return err
}
