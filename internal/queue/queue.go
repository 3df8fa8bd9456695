// Package queue provides the persisted queue of pending offline mutations.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/mka6199/wagebook/internal/errors"
	"github.com/mka6199/wagebook/internal/localstore"
	"github.com/mka6199/wagebook/internal/logging"
	"github.com/mka6199/wagebook/internal/models"
	"github.com/mka6199/wagebook/internal/opid"
)

const (
	persistAttempts = 3
	persistBackoff  = 50 * time.Millisecond
)

// Queue is the local durable queue of pending operations. The whole list is
// stored under a single key, so every mutation is a read-modify-write; an
// in-process mutex serializes those cycles since the underlying storage has
// no atomic append.
//
// Invariants: Enqueue never removes entries; Compact never removes entries
// with Synced=false; entries keep enqueue (FIFO) order.
type Queue struct {
	store localstore.Store
	key   string
	mu    sync.Mutex
}

// New creates a Queue over the given store.
func New(store localstore.Store) *Queue {
	return &Queue{store: store, key: localstore.KeyPendingOps}
}

// Enqueue appends a new pending operation with a fresh id and timestamp.
// Data is serialized as the operation payload. If persisting fails after a
// bounded number of attempts, the error is returned to the caller rather
// than dropping the operation silently.
func (q *Queue) Enqueue(ctx context.Context, typ models.OperationType, data any) (*models.PendingOperation, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "failed to encode operation payload", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.loadLocked(ctx)
	if err != nil {
		return nil, err
	}

	op := models.PendingOperation{
		ID:        opid.New(),
		Type:      typ,
		Data:      payload,
		Timestamp: time.Now().UnixMilli(),
		Synced:    false,
	}
	ops = append(ops, op)

	if err := q.persistLocked(ctx, ops); err != nil {
		return nil, err
	}

	logging.Debug("Enqueued pending operation", logrus.Fields{
		"op_id": op.ID,
		"type":  op.Type,
	})

	return &op, nil
}

// ListPending returns all entries, synced and unsynced, in enqueue order.
// Read failures fail open to an empty list.
func (q *Queue) ListPending(ctx context.Context) []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.loadLocked(ctx)
	if err != nil {
		logging.Error("Failed to read operation queue", err, logrus.Fields{"key": q.key})
		return nil
	}
	return ops
}

// Unsynced returns the entries still awaiting replay, in enqueue order.
// Read failures fail open to an empty list.
func (q *Queue) Unsynced(ctx context.Context) []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.loadLocked(ctx)
	if err != nil {
		logging.Error("Failed to read operation queue", err, logrus.Fields{"key": q.key})
		return nil
	}

	var out []models.PendingOperation
	for _, op := range ops {
		if !op.Synced {
			out = append(out, op)
		}
	}
	return out
}

// PendingCount returns the number of unsynced entries.
func (q *Queue) PendingCount(ctx context.Context) int {
	return len(q.Unsynced(ctx))
}

// MarkSynced flips Synced=true for the given entry and persists the change
// immediately, so a crash mid-replay does not re-apply the operation on the
// next pass.
func (q *Queue) MarkSynced(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.loadLocked(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range ops {
		if ops[i].ID == id {
			ops[i].Synced = true
			found = true
			break
		}
	}
	if !found {
		return apperrors.New(apperrors.ErrNotFound, "pending operation not found: "+id)
	}

	return q.persistLocked(ctx, ops)
}

// Compact removes all synced entries, preserving the order of the rest.
func (q *Queue) Compact(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.loadLocked(ctx)
	if err != nil {
		return err
	}
	remaining := ops[:0]
	for _, op := range ops {
		if !op.Synced {
			remaining = append(remaining, op)
		}
	}

	if len(remaining) == len(ops) {
		return nil
	}

	logging.Debug("Compacted operation queue", logrus.Fields{
		"removed":   len(ops) - len(remaining),
		"remaining": len(remaining),
	})

	return q.persistLocked(ctx, remaining)
}

// Rewrite lets the caller replace the payloads of unsynced entries in one
// read-modify-write cycle. fn returns the replacement payload and whether
// the entry changed; ids, order and synced flags are untouched. Nothing is
// persisted when no entry changes.
func (q *Queue) Rewrite(ctx context.Context, fn func(op models.PendingOperation) (json.RawMessage, bool)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops, err := q.loadLocked(ctx)
	if err != nil {
		return err
	}

	changed := false
	for i := range ops {
		if ops[i].Synced {
			continue
		}
		if raw, ok := fn(ops[i]); ok {
			ops[i].Data = raw
			changed = true
		}
	}
	if !changed {
		return nil
	}

	return q.persistLocked(ctx, ops)
}

// loadLocked reads the persisted list. A storage read failure is returned
// so mutating callers abort instead of rebuilding the queue from an empty
// list and losing entries. Corrupt data cannot be preserved either way, so
// a decode failure still falls open to an empty list with a logged error.
func (q *Queue) loadLocked(ctx context.Context) ([]models.PendingOperation, error) {
	raw, ok, err := q.store.Get(ctx, q.key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read operation queue", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var ops []models.PendingOperation
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		logging.Error("Operation queue is corrupt, treating as empty",
			apperrors.Wrap(apperrors.ErrQueueCorrupt, "decode failed", err),
			logrus.Fields{"key": q.key})
		return nil, nil
	}
	return ops, nil
}

// persistLocked writes the list back, retrying transient storage failures a
// few times before surfacing the error.
func (q *Queue) persistLocked(ctx context.Context, ops []models.PendingOperation) error {
	raw, err := json.Marshal(ops)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode operation queue", err)
	}

	var lastErr error
	delay := persistBackoff
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		lastErr = q.store.Set(ctx, q.key, string(raw))
		if lastErr == nil {
			return nil
		}
		logging.Warn("Queue persist attempt failed", logrus.Fields{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
		if attempt < persistAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}

	return apperrors.Wrap(apperrors.ErrStorageWrite, "failed to persist operation queue", lastErr)
}
