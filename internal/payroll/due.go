package payroll

import (
	"time"

	"github.com/mka6199/wagebook/internal/models"
)

// ComputeDueSummary computes the overdue / due-soon alerting view for the
// calendar month containing now. An active worker contributes when their
// next due date falls inside that month and the salary is not yet fully
// covered by payments counted toward the same month. The active filter
// matches ComputeDueWorkersForPeriod, so every worker counted overdue here
// also appears in the pay-run list for the same month.
func ComputeDueSummary(workers []models.Worker, payments []models.Payment, now time.Time) models.DueSummary {
	var s models.DueSummary

	for _, w := range workers {
		if !w.IsActive() {
			continue
		}
		due := w.NextDueTime()
		if due.IsZero() || !sameMonth(due, now) {
			continue
		}

		remaining := outstandingForMonth(w, payments, now.Year(), now.Month())
		if remaining <= 0 {
			continue
		}

		if !due.After(now) {
			s.OverdueCount++
			s.OverdueAmountAED += remaining
		} else {
			s.DueSoonCount++
			s.DueSoonAmountAED += remaining
		}
	}

	return s
}

// outstandingForMonth returns how much of the worker's monthly salary is
// still unpaid for the given salary month, floored at zero.
func outstandingForMonth(w models.Worker, payments []models.Payment, year int, month time.Month) float64 {
	paid := 0.0
	for _, p := range payments {
		py, pm := p.MonthOf()
		if py != year || pm != month {
			continue
		}
		if Matches(p, w) {
			paid += p.Amount
		}
	}

	remaining := w.MonthlySalaryAED - paid
	if remaining < 0 {
		return 0
	}
	return remaining
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
