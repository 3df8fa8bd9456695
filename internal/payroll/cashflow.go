package payroll

import (
	"sort"
	"time"

	"github.com/mka6199/wagebook/internal/models"
)

// ComputeCashFlowProjection projects salary obligations over the next 60
// days for active workers with a positive salary. Each obligation is the
// outstanding amount for the month containing its due date; obligations are
// bucketed into next-30-day / next-60-day totals plus an overdue total, and
// grouped into Monday-aligned weekly buckets sorted ascending.
func ComputeCashFlowProjection(workers []models.Worker, payments []models.Payment, now time.Time) models.CashFlowProjection {
	proj := models.CashFlowProjection{
		WeeklyBreakdown:     []models.WeeklyBucket{},
		UpcomingObligations: []models.Obligation{},
	}

	horizon30 := now.AddDate(0, 0, 30)
	horizon60 := now.AddDate(0, 0, 60)
	weekly := make(map[time.Time]*models.WeeklyBucket)

	for _, w := range workers {
		if !w.IsActive() || w.MonthlySalaryAED <= 0 {
			continue
		}
		due := w.NextDueTime()
		if due.IsZero() || due.After(horizon60) {
			continue
		}

		outstanding := outstandingForMonth(w, payments, due.Year(), due.Month())
		if outstanding <= 0 {
			continue
		}

		overdue := !due.After(now)
		switch {
		case overdue:
			proj.OverdueTotal += outstanding
		case !due.After(horizon30):
			proj.TotalNext30Days += outstanding
		default:
			proj.TotalNext60Days += outstanding
		}

		ws := weekStart(due)
		b, ok := weekly[ws]
		if !ok {
			b = &models.WeeklyBucket{WeekStart: ws}
			weekly[ws] = b
		}
		b.TotalAED += outstanding
		b.Workers++

		proj.UpcomingObligations = append(proj.UpcomingObligations, models.Obligation{
			WorkerID:   w.ID,
			WorkerName: w.Name,
			AmountAED:  outstanding,
			DueAt:      due,
			Overdue:    overdue,
		})
	}

	for _, b := range weekly {
		proj.WeeklyBreakdown = append(proj.WeeklyBreakdown, *b)
	}
	sort.Slice(proj.WeeklyBreakdown, func(i, j int) bool {
		return proj.WeeklyBreakdown[i].WeekStart.Before(proj.WeeklyBreakdown[j].WeekStart)
	})
	sort.Slice(proj.UpcomingObligations, func(i, j int) bool {
		return proj.UpcomingObligations[i].DueAt.Before(proj.UpcomingObligations[j].DueAt)
	})

	return proj
}

// weekStart returns the Monday-aligned start of the week containing t, at
// midnight in t's location.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}
