// Package models provides data model definitions for the WageBook core.
package models

import "time"

// Payment represents a recorded salary payment.
//
// WorkerName is denormalized at write time so the record stays readable
// even if the worker is later renamed or removed.
type Payment struct {
	ID         string  `bson:"_id" json:"id"`
	WorkerID   string  `bson:"worker_id" json:"worker_id"`
	WorkerName string  `bson:"worker_name" json:"worker_name"`
	Amount     float64 `bson:"amount" json:"amount"`
	Bonus      float64 `bson:"bonus" json:"bonus"`
	Method     string  `bson:"method" json:"method"` // cash, transfer, ...
	Month      string  `bson:"month" json:"month"`   // "2006-01" tag of the salary month
	PaidAt     int64   `bson:"paid_at" json:"paid_at"`       // milliseconds since epoch
	CreatedAt  int64   `bson:"created_at" json:"created_at"` // milliseconds since epoch
}

// CollectionName returns the remote collection name for Payment.
func (Payment) CollectionName() string {
	return "payments"
}

// PaidTime returns PaidAt as a UTC time.Time.
func (p *Payment) PaidTime() time.Time {
	return time.UnixMilli(p.PaidAt).UTC()
}

// MonthOf returns the salary month this payment counts toward. The explicit
// Month tag wins; otherwise the month is derived from PaidAt.
func (p *Payment) MonthOf() (int, time.Month) {
	if t, err := time.Parse("2006-01", p.Month); err == nil {
		return t.Year(), t.Month()
	}
	paid := p.PaidTime()
	return paid.Year(), paid.Month()
}
