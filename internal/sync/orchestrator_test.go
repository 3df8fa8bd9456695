// Package sync provides unit tests for the sync orchestrator.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mka6199/wagebook/internal/localstore"
	"github.com/mka6199/wagebook/internal/models"
	"github.com/mka6199/wagebook/internal/netmon"
	"github.com/mka6199/wagebook/internal/queue"
)

// recordingRemote records the calls it receives, in order, and can be told
// to fail specific entity ids.
type recordingRemote struct {
	mu      sync.Mutex
	calls   []string
	failIDs map[string]bool
	block   chan struct{} // when set, Create calls wait until closed
	started chan struct{}
}

func newRecordingRemote() *recordingRemote {
	return &recordingRemote{failIDs: make(map[string]bool)}
}

func (r *recordingRemote) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingRemote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.calls...)
}

func (r *recordingRemote) CreateWorker(ctx context.Context, w models.Worker) (string, error) {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	if r.failIDs[w.ID] {
		return "", errors.New("rejected")
	}
	r.record("create_worker:" + w.Name)
	return "remote-" + w.Name, nil
}

func (r *recordingRemote) UpdateWorker(ctx context.Context, id string, patch map[string]any) error {
	if r.failIDs[id] {
		return errors.New("rejected")
	}
	r.record("update_worker:" + id)
	return nil
}

func (r *recordingRemote) DeleteWorker(ctx context.Context, id string) error {
	if r.failIDs[id] {
		return errors.New("rejected")
	}
	r.record("delete_worker:" + id)
	return nil
}

func (r *recordingRemote) WatchWorkers(ctx context.Context, cb func([]models.Worker)) (func(), error) {
	return func() {}, nil
}

func (r *recordingRemote) CreatePayment(ctx context.Context, p models.Payment) (string, error) {
	if r.failIDs[p.ID] {
		return "", errors.New("rejected")
	}
	r.record("create_payment:" + p.WorkerID)
	return "remote-payment", nil
}

func (r *recordingRemote) UpdatePayment(ctx context.Context, id string, patch map[string]any) error {
	if r.failIDs[id] {
		return errors.New("rejected")
	}
	r.record("update_payment:" + id)
	return nil
}

func (r *recordingRemote) DeletePayment(ctx context.Context, id string) error {
	if r.failIDs[id] {
		return errors.New("rejected")
	}
	r.record("delete_payment:" + id)
	return nil
}

func (r *recordingRemote) WatchPayments(ctx context.Context, cb func([]models.Payment)) (func(), error) {
	return func() {}, nil
}

// staticProber always reports the configured state.
type staticProber struct{ online bool }

func (p *staticProber) Online(ctx context.Context) (bool, error) { return p.online, nil }
func (p *staticProber) Watch(cb func(bool)) func()               { return func() {} }

func newTestOrchestrator(online bool) (*Orchestrator, *queue.Queue, *recordingRemote, localstore.Store) {
	store := localstore.NewMemoryStore()
	q := queue.New(store)
	r := newRecordingRemote()
	m := netmon.New(&staticProber{online: online}, store)
	return New(q, r, m, store), q, r, store
}

// TestFIFOReplay verifies that the remote store receives calls in enqueue
// order.
func TestFIFOReplay(t *testing.T) {
	o, q, r, _ := newTestOrchestrator(true)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{ID: "tmp-1", Name: "Ali"}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpUpdateWorker, models.UpdateData{ID: "tmp-1", Updates: map[string]any{"role": "chef"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpAddPayment, models.Payment{ID: "tmp-2", WorkerID: "tmp-1"}); err != nil {
		t.Fatal(err)
	}

	if err := o.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	// The add resolves tmp-1 to a remote id; the later entries follow it.
	want := []string{"create_worker:Ali", "update_worker:remote-Ali", "create_payment:remote-Ali"}
	got := r.Calls()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, got[i], want[i])
		}
	}

	if n := q.PendingCount(ctx); n != 0 {
		t.Errorf("PendingCount after sync = %d, want 0", n)
	}
	if remaining := q.ListPending(ctx); len(remaining) != 0 {
		t.Errorf("queue not compacted, %d entries remain", len(remaining))
	}
}

// TestNoDuplicateSend verifies at-least-once without duplicate success: a
// synced entry is never re-sent, even across a process restart.
func TestNoDuplicateSend(t *testing.T) {
	o, q, r, store := newTestOrchestrator(true)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{ID: "tmp-1", Name: "Ali"}); err != nil {
		t.Fatal(err)
	}
	if err := o.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}
	if len(r.Calls()) != 1 {
		t.Fatalf("expected 1 call, got %v", r.Calls())
	}

	// Simulate a restart: new queue and orchestrator over the same store.
	q2 := queue.New(store)
	m2 := netmon.New(&staticProber{online: true}, store)
	o2 := New(q2, r, m2, store)
	if err := o2.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}

	if len(r.Calls()) != 1 {
		t.Errorf("synced entry was re-sent after restart: %v", r.Calls())
	}
}

// TestSyncedFlagSurvivesRestart covers the crash-mid-replay window: an
// entry marked synced but not yet compacted must not be re-sent by the
// next process.
func TestSyncedFlagSurvivesRestart(t *testing.T) {
	_, q, r, store := newTestOrchestrator(true)
	ctx := context.Background()

	op, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{ID: "tmp-1", Name: "Ali"})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.MarkSynced(ctx, op.ID); err != nil {
		t.Fatal(err)
	}

	q2 := queue.New(store)
	m2 := netmon.New(&staticProber{online: true}, store)
	o2 := New(q2, r, m2, store)
	if err := o2.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}

	if len(r.Calls()) != 0 {
		t.Errorf("already-synced entry was re-sent: %v", r.Calls())
	}
	if remaining := q2.ListPending(ctx); len(remaining) != 0 {
		t.Errorf("synced entry should be compacted away, got %+v", remaining)
	}
}

// TestPartialFailureIsolation verifies that a failing entry does not block
// the rest of the pass and stays unsynced for the next one.
func TestPartialFailureIsolation(t *testing.T) {
	o, q, r, _ := newTestOrchestrator(true)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OpDeleteWorker, models.DeleteData{ID: "w1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpDeleteWorker, models.DeleteData{ID: "bad"}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpDeleteWorker, models.DeleteData{ID: "w3"}); err != nil {
		t.Fatal(err)
	}
	r.failIDs["bad"] = true

	if err := o.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	want := []string{"delete_worker:w1", "delete_worker:w3"}
	got := r.Calls()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("calls = %v, want %v", got, want)
	}

	// The failed entry survives compaction, unsynced.
	remaining := q.ListPending(ctx)
	if len(remaining) != 1 || remaining[0].Synced {
		t.Fatalf("failed entry should remain unsynced, got %+v", remaining)
	}

	// Next pass retries it.
	r.failIDs["bad"] = false
	if err := o.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}
	if n := q.PendingCount(ctx); n != 0 {
		t.Errorf("PendingCount = %d after retry pass, want 0", n)
	}
}

func TestSyncNowOfflineIsNoOp(t *testing.T) {
	o, q, r, _ := newTestOrchestrator(false)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{Name: "Ali"}); err != nil {
		t.Fatal(err)
	}

	if err := o.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if len(r.Calls()) != 0 {
		t.Errorf("no calls expected while offline, got %v", r.Calls())
	}
	if n := q.PendingCount(ctx); n != 1 {
		t.Errorf("PendingCount = %d, want 1", n)
	}
}

// TestReentrantSyncIsNoOp verifies the busy flag: a second SyncNow during
// an in-flight pass returns immediately without a second replay.
func TestReentrantSyncIsNoOp(t *testing.T) {
	o, q, r, _ := newTestOrchestrator(true)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{ID: "tmp-1", Name: "Ali"}); err != nil {
		t.Fatal(err)
	}

	r.block = make(chan struct{})
	r.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- o.SyncNow(ctx) }()
	<-r.started // first pass is now inside the remote call

	if err := o.SyncNow(ctx); err != nil {
		t.Errorf("re-entrant SyncNow should be a silent no-op, got %v", err)
	}

	close(r.block)
	if err := <-done; err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	if len(r.Calls()) != 1 {
		t.Errorf("expected exactly 1 replay, got %v", r.Calls())
	}
}

func TestStatus(t *testing.T) {
	o, q, _, _ := newTestOrchestrator(true)
	ctx := context.Background()

	s := o.Status(ctx)
	if !s.IsOnline || s.IsSyncing || s.PendingCount != 0 || s.LastSyncTime != nil {
		t.Errorf("unexpected initial status: %+v", s)
	}

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{Name: fmt.Sprintf("w%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	if got := o.Status(ctx).PendingCount; got != 3 {
		t.Errorf("PendingCount = %d, want 3", got)
	}

	if err := o.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}
	s = o.Status(ctx)
	if s.PendingCount != 0 || s.LastSyncTime == nil {
		t.Errorf("status after sync = %+v, want drained with last-sync set", s)
	}
}

// TestLastSyncSurvivesRestart verifies the persisted last-sync timestamp.
func TestLastSyncSurvivesRestart(t *testing.T) {
	o, _, r, store := newTestOrchestrator(true)
	ctx := context.Background()

	if err := o.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}
	first := o.Status(ctx).LastSyncTime
	if first == nil {
		t.Fatal("expected last-sync time after a pass")
	}

	q2 := queue.New(store)
	m2 := netmon.New(&staticProber{online: true}, store)
	o2 := New(q2, r, m2, store)

	// Persistence is millisecond-granular, so compare at that precision.
	restored := o2.Status(ctx).LastSyncTime
	if restored == nil || restored.UnixMilli() != first.UnixMilli() {
		t.Errorf("last-sync = %v after restart, want %v", restored, first)
	}
}

// strictRemote assigns fresh ids on create and rejects updates and deletes
// for ids it has never seen, like a real document store.
type strictRemote struct {
	mu          sync.Mutex
	nextID      int
	workers     map[string]models.Worker
	payments    map[string]models.Payment
	failUpdates bool
}

func newStrictRemote() *strictRemote {
	return &strictRemote{
		workers:  make(map[string]models.Worker),
		payments: make(map[string]models.Payment),
	}
}

func (r *strictRemote) CreateWorker(ctx context.Context, w models.Worker) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	w.ID = fmt.Sprintf("w-%d", r.nextID)
	r.workers[w.ID] = w
	return w.ID, nil
}

func (r *strictRemote) UpdateWorker(ctx context.Context, id string, patch map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdates {
		return errors.New("unavailable")
	}
	w, ok := r.workers[id]
	if !ok {
		return fmt.Errorf("worker %s not found", id)
	}
	if role, ok := patch["role"].(string); ok {
		w.Role = role
	}
	r.workers[id] = w
	return nil
}

func (r *strictRemote) DeleteWorker(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workers[id]; !ok {
		return fmt.Errorf("worker %s not found", id)
	}
	delete(r.workers, id)
	return nil
}

func (r *strictRemote) WatchWorkers(ctx context.Context, cb func([]models.Worker)) (func(), error) {
	return func() {}, nil
}

func (r *strictRemote) CreatePayment(ctx context.Context, p models.Payment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = fmt.Sprintf("p-%d", r.nextID)
	r.payments[p.ID] = p
	return p.ID, nil
}

func (r *strictRemote) UpdatePayment(ctx context.Context, id string, patch map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return fmt.Errorf("payment %s not found", id)
	}
	return nil
}

func (r *strictRemote) DeletePayment(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return fmt.Errorf("payment %s not found", id)
	}
	delete(r.payments, id)
	return nil
}

func (r *strictRemote) WatchPayments(ctx context.Context, cb func([]models.Payment)) (func(), error) {
	return func() {}, nil
}

// TestTempIDResolutionWithinPass replays an offline add followed by an
// update, a dependent payment and a delete for the same temporary id: the
// later operations must target the remote id the add was assigned, and the
// queue must drain completely.
func TestTempIDResolutionWithinPass(t *testing.T) {
	store := localstore.NewMemoryStore()
	q := queue.New(store)
	r := newStrictRemote()
	m := netmon.New(&staticProber{online: true}, store)
	o := New(q, r, m, store)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{ID: "tmp-w1", Name: "Ali"}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpUpdateWorker, models.UpdateData{ID: "tmp-w1", Updates: map[string]any{"role": "chef"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpAddPayment, models.Payment{ID: "tmp-p1", WorkerID: "tmp-w1", Amount: 2000}); err != nil {
		t.Fatal(err)
	}

	if err := o.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	if n := q.PendingCount(ctx); n != 0 {
		t.Fatalf("PendingCount = %d after sync, want 0 (temp-id entries must drain)", n)
	}

	if len(r.workers) != 1 {
		t.Fatalf("expected 1 remote worker, got %d", len(r.workers))
	}
	for id, w := range r.workers {
		if w.Role != "chef" {
			t.Errorf("update did not reach the created worker: %+v", w)
		}
		for _, p := range r.payments {
			if p.WorkerID != id {
				t.Errorf("payment WorkerID = %s, want remote id %s", p.WorkerID, id)
			}
		}
	}
}

// TestTempIDResolutionSurvivesRestart covers the crash window between the
// add replaying and its dependent update replaying: the rewritten target id
// must be persisted, so a fresh process can still deliver the update.
func TestTempIDResolutionSurvivesRestart(t *testing.T) {
	store := localstore.NewMemoryStore()
	q := queue.New(store)
	r := newStrictRemote()
	m := netmon.New(&staticProber{online: true}, store)
	o := New(q, r, m, store)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OpAddWorker, models.Worker{ID: "tmp-w1", Name: "Ali"}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpUpdateWorker, models.UpdateData{ID: "tmp-w1", Updates: map[string]any{"role": "chef"}}); err != nil {
		t.Fatal(err)
	}

	// First pass: the add succeeds, the update fails transiently and stays
	// queued.
	r.failUpdates = true
	if err := o.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}

	pending := q.ListPending(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected the failed update to remain, got %d entries", len(pending))
	}
	var d models.UpdateData
	if err := json.Unmarshal(pending[0].Data, &d); err != nil {
		t.Fatal(err)
	}
	if d.ID == "tmp-w1" {
		t.Fatalf("queued update still targets the temporary id after the add synced")
	}

	// Restart: new queue and orchestrator, same store and remote.
	r.failUpdates = false
	q2 := queue.New(store)
	m2 := netmon.New(&staticProber{online: true}, store)
	o2 := New(q2, r, m2, store)
	if err := o2.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}

	if n := q2.PendingCount(ctx); n != 0 {
		t.Errorf("PendingCount = %d after restart pass, want 0", n)
	}
	for _, w := range r.workers {
		if w.Role != "chef" {
			t.Errorf("update was not applied after restart: %+v", w)
		}
	}
}

func TestUnknownOperationSkipped(t *testing.T) {
	o, q, r, _ := newTestOrchestrator(true)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, models.OperationType("bogus"), map[string]any{}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, models.OpDeleteWorker, models.DeleteData{ID: "w1"}); err != nil {
		t.Fatal(err)
	}

	if err := o.SyncNow(ctx); err != nil {
		t.Fatal(err)
	}

	if len(r.Calls()) != 1 || r.Calls()[0] != "delete_worker:w1" {
		t.Errorf("calls = %v, want the valid entry only", r.Calls())
	}
	if n := q.PendingCount(ctx); n != 1 {
		t.Errorf("bogus entry should stay pending, count = %d", n)
	}
}
