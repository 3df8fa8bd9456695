// Package models provides data model definitions for the WageBook core.
package models

import "time"

// WorkerStatus represents the employment status of a worker.
type WorkerStatus string

const (
	WorkerStatusActive WorkerStatus = "active"
	WorkerStatusFormer WorkerStatus = "former"
)

// Worker represents an employed worker tracked by the business owner.
type Worker struct {
	ID               string       `bson:"_id" json:"id"`
	Name             string       `bson:"name" json:"name"`
	Role             string       `bson:"role" json:"role"`
	MonthlySalaryAED float64      `bson:"monthly_salary_aed" json:"monthly_salary_aed"`
	Status           WorkerStatus `bson:"status" json:"status"`
	NextDueAt        int64        `bson:"next_due_at" json:"next_due_at"` // milliseconds since epoch, 0 = unset
	CreatedAt        int64        `bson:"created_at" json:"created_at"`   // milliseconds since epoch
}

// CollectionName returns the remote collection name for Worker.
func (Worker) CollectionName() string {
	return "workers"
}

// NextDueTime returns NextDueAt as a UTC time.Time, so month and week
// boundaries in the derivations do not drift with the machine timezone.
// The zero time means no due date has been assigned yet.
func (w *Worker) NextDueTime() time.Time {
	if w.NextDueAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(w.NextDueAt).UTC()
}

// IsActive reports whether the worker is currently employed.
func (w *Worker) IsActive() bool {
	return w.Status == WorkerStatusActive
}
