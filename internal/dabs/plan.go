package dabs

import (
	"certsync/internal/ada"
)

// lookupPlan lists the searches to try for a record, in order: the number alone, then for
// every candidate its names alone and its names with the number.
func lookupPlan(rec Record) []ada.Query {
	base := ada.Query{
		Category: rec.Category,
		Year:     rec.YearText,
	}

	plan := []ada.Query{}
	if rec.Number != "" {
		q := base
		q.Number = rec.Number
		plan = append(plan, q)
	}
	for _, names := range rec.Candidates {
		q := base
		q.Names = names
		plan = append(plan, q)

		if rec.Number != "" {
			q.Number = rec.Number
			plan = append(plan, q)
		}
	}
	return plan
}
