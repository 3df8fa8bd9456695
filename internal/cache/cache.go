// Package cache provides the local snapshot of remote collections, used to
// serve reads while offline.
package cache

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/mka6199/wagebook/internal/localstore"
	"github.com/mka6199/wagebook/internal/logging"
	"github.com/mka6199/wagebook/internal/models"
)

// Cache persists the latest known Worker and Payment collections. Reads
// fail open: a missing or undecodable snapshot is returned as an empty
// list, which the UI treats as "still loading" rather than confirmed empty.
type Cache struct {
	store localstore.Store
}

// New creates a Cache over the given store.
func New(store localstore.Store) *Cache {
	return &Cache{store: store}
}

// SaveWorkers overwrites the persisted workers snapshot.
func (c *Cache) SaveWorkers(ctx context.Context, rows []models.Worker) error {
	return save(ctx, c.store, localstore.KeyWorkersCache, rows)
}

// LoadWorkers returns the last saved workers snapshot.
func (c *Cache) LoadWorkers(ctx context.Context) []models.Worker {
	return load[models.Worker](ctx, c.store, localstore.KeyWorkersCache)
}

// SavePayments overwrites the persisted payments snapshot.
func (c *Cache) SavePayments(ctx context.Context, rows []models.Payment) error {
	return save(ctx, c.store, localstore.KeyPaymentsCache, rows)
}

// LoadPayments returns the last saved payments snapshot.
func (c *Cache) LoadPayments(ctx context.Context) []models.Payment {
	return load[models.Payment](ctx, c.store, localstore.KeyPaymentsCache)
}

func save[T any](ctx context.Context, store localstore.Store, key string, rows []T) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, key, string(raw)); err != nil {
		logging.Error("Failed to persist cache snapshot", err, logrus.Fields{"key": key})
		return err
	}
	return nil
}

func load[T any](ctx context.Context, store localstore.Store, key string) []T {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		logging.Error("Failed to read cache snapshot", err, logrus.Fields{"key": key})
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var rows []T
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		logging.Error("Cache snapshot is corrupt, treating as empty", err, logrus.Fields{"key": key})
		return nil
	}
	return rows
}
