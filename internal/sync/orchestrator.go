// Package sync coordinates replay of queued offline mutations against the
// remote store.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/mka6199/wagebook/internal/errors"
	"github.com/mka6199/wagebook/internal/localstore"
	"github.com/mka6199/wagebook/internal/logging"
	"github.com/mka6199/wagebook/internal/metrics"
	"github.com/mka6199/wagebook/internal/models"
	"github.com/mka6199/wagebook/internal/netmon"
	"github.com/mka6199/wagebook/internal/opid"
	"github.com/mka6199/wagebook/internal/queue"
	"github.com/mka6199/wagebook/internal/remote"
)

// Status is the observable sync state for UI binding.
type Status struct {
	IsOnline     bool
	IsSyncing    bool
	PendingCount int
	LastSyncTime *time.Time
}

// Orchestrator drains unsynced queue entries by replaying them in enqueue
// order against the remote store. At most one pass runs at a time per
// process; re-entrant SyncNow calls are no-ops.
type Orchestrator struct {
	queue   *queue.Queue
	remote  remote.Store
	monitor *netmon.Monitor
	store   localstore.Store

	mu       sync.Mutex
	syncing  bool
	lastSync time.Time
}

// New creates an Orchestrator. The last-sync timestamp is restored from
// local storage so it survives restarts.
func New(q *queue.Queue, r remote.Store, m *netmon.Monitor, store localstore.Store) *Orchestrator {
	o := &Orchestrator{
		queue:   q,
		remote:  r,
		monitor: m,
		store:   store,
	}
	o.lastSync = o.loadLastSync()
	return o
}

// SyncNow runs one sync pass: snapshot the unsynced entries, replay each in
// FIFO order, mark every success immediately, then compact the queue and
// record the sync time. A per-entry failure is logged and skipped so one
// bad entry cannot block the rest; the entry stays unsynced and is retried
// on the next pass. No error escapes to the caller from inside the replay
// loop.
func (o *Orchestrator) SyncNow(ctx context.Context) error {
	o.mu.Lock()
	if o.syncing {
		o.mu.Unlock()
		return nil
	}
	o.syncing = true
	o.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Sync pass panicked", fmt.Errorf("%v", r), nil)
		}
		metrics.SyncPassDuration.Observe(time.Since(start).Seconds())
		o.mu.Lock()
		o.syncing = false
		o.mu.Unlock()
	}()

	if !o.monitor.IsOnline(ctx) {
		return nil
	}

	// Snapshot taken at start; entries enqueued during the pass are picked
	// up by the next one.
	ops := o.queue.Unsynced(ctx)
	if len(ops) == 0 {
		o.finishPass(ctx)
		return nil
	}

	logging.Info("Starting sync pass", logrus.Fields{"pending": len(ops)})

	// Remote ids assigned to offline-created entities during this pass,
	// keyed by their temporary id. Later entries in the snapshot still
	// carry the temporary id and are resolved through this map.
	remap := make(map[string]string)

	replayed := 0
	for _, op := range ops {
		select {
		case <-ctx.Done():
			logging.Warn("Sync pass interrupted", logrus.Fields{"replayed": replayed})
			o.finishPass(ctx)
			return ctx.Err()
		default:
		}

		if err := o.apply(ctx, op, remap); err != nil {
			logging.Error("Failed to replay operation", err, logrus.Fields{
				"op_id": op.ID,
				"type":  op.Type,
			})
			metrics.OperationsReplayed.WithLabelValues("error", string(op.Type)).Inc()
			continue
		}

		if err := o.queue.MarkSynced(ctx, op.ID); err != nil {
			// The remote write applied but the synced flag did not persist;
			// the entry will be re-sent next pass (at-least-once).
			logging.Error("Failed to mark operation synced", err, logrus.Fields{"op_id": op.ID})
			continue
		}

		metrics.OperationsReplayed.WithLabelValues("success", string(op.Type)).Inc()
		replayed++
	}

	o.finishPass(ctx)

	logging.Info("Sync pass completed", logrus.Fields{
		"replayed":  replayed,
		"remaining": len(ops) - replayed,
	})
	return nil
}

// Status returns the current observable sync state.
func (o *Orchestrator) Status(ctx context.Context) Status {
	o.mu.Lock()
	syncing := o.syncing
	last := o.lastSync
	o.mu.Unlock()

	s := Status{
		IsOnline:     o.monitor.IsOnline(ctx),
		IsSyncing:    syncing,
		PendingCount: o.queue.PendingCount(ctx),
	}
	if !last.IsZero() {
		t := last
		s.LastSyncTime = &t
	}
	return s
}

// apply dispatches one queued operation to the matching remote call.
// Target ids are resolved through remap so operations enqueued against a
// temporary id reach the entity the remote store actually created.
func (o *Orchestrator) apply(ctx context.Context, op models.PendingOperation, remap map[string]string) error {
	resolve := func(id string) string {
		if remoteID, ok := remap[id]; ok {
			return remoteID
		}
		return id
	}

	switch op.Type {
	case models.OpAddWorker:
		var w models.Worker
		if err := json.Unmarshal(op.Data, &w); err != nil {
			return apperrors.Wrap(apperrors.ErrReplayFailed, "bad add_worker payload", err)
		}
		id, err := o.remote.CreateWorker(ctx, w)
		if err != nil {
			return err
		}
		o.resolveTempID(ctx, remap, w.ID, id)
		return nil

	case models.OpUpdateWorker:
		var d models.UpdateData
		if err := json.Unmarshal(op.Data, &d); err != nil {
			return apperrors.Wrap(apperrors.ErrReplayFailed, "bad update_worker payload", err)
		}
		return o.remote.UpdateWorker(ctx, resolve(d.ID), d.Updates)

	case models.OpDeleteWorker:
		var d models.DeleteData
		if err := json.Unmarshal(op.Data, &d); err != nil {
			return apperrors.Wrap(apperrors.ErrReplayFailed, "bad delete_worker payload", err)
		}
		return o.remote.DeleteWorker(ctx, resolve(d.ID))

	case models.OpAddPayment:
		var p models.Payment
		if err := json.Unmarshal(op.Data, &p); err != nil {
			return apperrors.Wrap(apperrors.ErrReplayFailed, "bad add_payment payload", err)
		}
		p.WorkerID = resolve(p.WorkerID)
		id, err := o.remote.CreatePayment(ctx, p)
		if err != nil {
			return err
		}
		o.resolveTempID(ctx, remap, p.ID, id)
		return nil

	case models.OpUpdatePayment:
		var d models.UpdateData
		if err := json.Unmarshal(op.Data, &d); err != nil {
			return apperrors.Wrap(apperrors.ErrReplayFailed, "bad update_payment payload", err)
		}
		return o.remote.UpdatePayment(ctx, resolve(d.ID), d.Updates)

	case models.OpDeletePayment:
		var d models.DeleteData
		if err := json.Unmarshal(op.Data, &d); err != nil {
			return apperrors.Wrap(apperrors.ErrReplayFailed, "bad delete_payment payload", err)
		}
		return o.remote.DeletePayment(ctx, resolve(d.ID))

	default:
		return apperrors.New(apperrors.ErrUnknownOp, "unknown operation type: "+string(op.Type))
	}
}

// resolveTempID records the remote id assigned to an offline-created
// entity and rewrites the still-queued operations that reference the
// temporary id. The rewrite persists, so the mapping survives a crash
// between the add replaying and its dependent entries replaying.
func (o *Orchestrator) resolveTempID(ctx context.Context, remap map[string]string, tempID, remoteID string) {
	if !opid.IsTemp(tempID) || tempID == remoteID {
		return
	}
	remap[tempID] = remoteID

	err := o.queue.Rewrite(ctx, func(op models.PendingOperation) (json.RawMessage, bool) {
		switch op.Type {
		case models.OpUpdateWorker, models.OpUpdatePayment:
			var d models.UpdateData
			if json.Unmarshal(op.Data, &d) != nil || d.ID != tempID {
				return nil, false
			}
			d.ID = remoteID
			return remarshal(d)

		case models.OpDeleteWorker, models.OpDeletePayment:
			var d models.DeleteData
			if json.Unmarshal(op.Data, &d) != nil || d.ID != tempID {
				return nil, false
			}
			d.ID = remoteID
			return remarshal(d)

		case models.OpAddPayment:
			var p models.Payment
			if json.Unmarshal(op.Data, &p) != nil || p.WorkerID != tempID {
				return nil, false
			}
			p.WorkerID = remoteID
			return remarshal(p)
		}
		return nil, false
	})
	if err != nil {
		logging.Error("Failed to rewrite queued references to temporary id", err, logrus.Fields{
			"temp_id":   tempID,
			"remote_id": remoteID,
		})
	}
}

func remarshal(v any) (json.RawMessage, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// finishPass compacts the queue and records the last-sync timestamp.
func (o *Orchestrator) finishPass(ctx context.Context) {
	if err := o.queue.Compact(ctx); err != nil {
		logging.Error("Failed to compact queue after sync pass", err, nil)
	}

	now := time.Now()
	o.mu.Lock()
	o.lastSync = now
	o.mu.Unlock()

	if err := o.store.Set(ctx, localstore.KeyLastSync, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		logging.Error("Failed to persist last-sync time", err, nil)
	}

	metrics.QueueBacklog.Set(float64(o.queue.PendingCount(ctx)))
}

func (o *Orchestrator) loadLastSync() time.Time {
	raw, ok, err := o.store.Get(context.Background(), localstore.KeyLastSync)
	if err != nil || !ok {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
