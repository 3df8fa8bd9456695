// Package models provides data model definitions for the WageBook core.
package models

import "time"

// DueSummary is the alerting view over outstanding salaries for the current
// calendar month. It is recomputed on every relevant change, never persisted.
type DueSummary struct {
	OverdueCount     int     `json:"overdue_count"`
	OverdueAmountAED float64 `json:"overdue_amount_aed"`
	DueSoonCount     int     `json:"due_soon_count"`
	DueSoonAmountAED float64 `json:"due_soon_amount_aed"`
}

// WeeklyBucket groups projected obligations by the Monday-aligned start of
// the week their due date falls in.
type WeeklyBucket struct {
	WeekStart time.Time `json:"week_start"`
	TotalAED  float64   `json:"total_aed"`
	Workers   int       `json:"workers"`
}

// Obligation is a single upcoming (or overdue) salary obligation.
type Obligation struct {
	WorkerID   string    `json:"worker_id"`
	WorkerName string    `json:"worker_name"`
	AmountAED  float64   `json:"amount_aed"`
	DueAt      time.Time `json:"due_at"`
	Overdue    bool      `json:"overdue"`
}

// CashFlowProjection is the derived financial projection over the next 60
// days. Derived, never persisted.
type CashFlowProjection struct {
	TotalNext30Days     float64        `json:"total_next_30_days"`
	TotalNext60Days     float64        `json:"total_next_60_days"`
	OverdueTotal        float64        `json:"overdue_total"`
	WeeklyBreakdown     []WeeklyBucket `json:"weekly_breakdown"`
	UpcomingObligations []Obligation   `json:"upcoming_obligations"`
}

// DueWorker is one row of a pay-run due list: a worker with a positive
// outstanding amount inside the requested period.
type DueWorker struct {
	Worker      Worker  `json:"worker"`
	Outstanding float64 `json:"outstanding"`
	IsOverdue   bool    `json:"is_overdue"`
}
