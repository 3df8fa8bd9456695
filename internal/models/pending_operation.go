// Package models provides data model definitions for the WageBook core.
package models

import (
	"encoding/json"
	"time"
)

// OperationType identifies the kind of queued mutation.
type OperationType string

const (
	OpAddWorker     OperationType = "add_worker"
	OpUpdateWorker  OperationType = "update_worker"
	OpDeleteWorker  OperationType = "delete_worker"
	OpAddPayment    OperationType = "add_payment"
	OpUpdatePayment OperationType = "update_payment"
	OpDeletePayment OperationType = "delete_payment"
)

// PendingOperation is a mutation recorded locally because it could not be
// sent to the remote store immediately. Entries are replayed in enqueue
// order, so an update for a temporary id is never applied before its add.
type PendingOperation struct {
	ID        string          `json:"id"`
	Type      OperationType   `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // enqueue time, milliseconds since epoch
	Synced    bool            `json:"synced"`
}

// Time returns the enqueue timestamp as a UTC time.Time.
func (o *PendingOperation) Time() time.Time {
	return time.UnixMilli(o.Timestamp).UTC()
}

// UpdateData is the payload of an update_worker / update_payment operation.
type UpdateData struct {
	ID      string         `json:"id"`
	Updates map[string]any `json:"updates"`
}

// DeleteData is the payload of a delete_worker / delete_payment operation.
type DeleteData struct {
	ID string `json:"id"`
}
