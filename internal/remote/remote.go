// Package remote defines the contract of the remote document store. The
// store is the source of truth once an operation has synced; the core only
// consumes this CRUD-plus-subscription surface.
package remote

import (
	"context"

	"github.com/mka6199/wagebook/internal/models"
)

// WorkerStore is the remote collaborator for the workers collection.
type WorkerStore interface {
	CreateWorker(ctx context.Context, w models.Worker) (id string, err error)
	UpdateWorker(ctx context.Context, id string, patch map[string]any) error
	DeleteWorker(ctx context.Context, id string) error
	// WatchWorkers streams the current matching rows on every remote change.
	WatchWorkers(ctx context.Context, callback func(rows []models.Worker)) (unsubscribe func(), err error)
}

// PaymentStore is the remote collaborator for the payments collection.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p models.Payment) (id string, err error)
	UpdatePayment(ctx context.Context, id string, patch map[string]any) error
	DeletePayment(ctx context.Context, id string) error
	WatchPayments(ctx context.Context, callback func(rows []models.Payment)) (unsubscribe func(), err error)
}

// Store combines both collections.
type Store interface {
	WorkerStore
	PaymentStore
}
