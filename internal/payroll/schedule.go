package payroll

import (
	"time"

	"github.com/teambition/rrule-go"
)

// NextDueDate returns the first occurrence of the monthly salary recurrence
// anchored at anchor that falls strictly after the given time. It is used
// to advance a worker's next due date once a payment for the current cycle
// is recorded. If the recurrence cannot be built (zero anchor), the anchor
// plus one calendar month is returned as a fallback.
func NextDueDate(anchor, after time.Time) time.Time {
	if anchor.IsZero() {
		return after.AddDate(0, 1, 0)
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.MONTHLY,
		Dtstart: anchor,
	})
	if err != nil {
		return anchor.AddDate(0, 1, 0)
	}

	next := r.After(after, false)
	if next.IsZero() {
		return anchor.AddDate(0, 1, 0)
	}
	return next
}
