package payroll

import (
	"sort"
	"time"

	"github.com/mka6199/wagebook/internal/models"
)

// ComputeDueWorkersForPeriod lists active workers whose due date falls
// inside [start, end] with a positive outstanding amount, sorted overdue
// first and then by ascending due date. The result drives a batch pay-run
// view.
func ComputeDueWorkersForPeriod(workers []models.Worker, payments []models.Payment, start, end, now time.Time) []models.DueWorker {
	var out []models.DueWorker

	for _, w := range workers {
		if !w.IsActive() {
			continue
		}
		due := w.NextDueTime()
		if due.IsZero() || due.Before(start) || due.After(end) {
			continue
		}

		outstanding := outstandingForMonth(w, payments, due.Year(), due.Month())
		if outstanding <= 0 {
			continue
		}

		out = append(out, models.DueWorker{
			Worker:      w,
			Outstanding: outstanding,
			IsOverdue:   !due.After(now),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IsOverdue != out[j].IsOverdue {
			return out[i].IsOverdue
		}
		return out[i].Worker.NextDueTime().Before(out[j].Worker.NextDueTime())
	})

	return out
}
