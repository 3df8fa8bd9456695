// Package netmon provides the connectivity monitor: current online/offline
// state plus a subscription to transitions.
package netmon

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mka6199/wagebook/internal/localstore"
	"github.com/mka6199/wagebook/internal/logging"
)

// Prober abstracts the device network-status API.
type Prober interface {
	// Online reports current connectivity.
	Online(ctx context.Context) (bool, error)
	// Watch registers a callback invoked with the raw connectivity state on
	// every change. It returns an unsubscribe function.
	Watch(callback func(online bool)) (unsubscribe func())
}

// Monitor wraps a Prober and layers the force-offline debug flag on top.
// When the flag is set, the monitor reports offline regardless of the real
// network state. Prober failures are swallowed and reported as online: an
// unnecessary remote attempt is cheaper than a false-positive queue.
type Monitor struct {
	prober Prober
	store  localstore.Store

	mu        sync.Mutex
	subs      map[int]func(bool)
	nextSub   int
	last      bool
	lastKnown bool // raw prober state, before the force-offline override
	unwatch   func()
}

// New creates a Monitor. Call Start to begin tracking transitions.
func New(prober Prober, store localstore.Store) *Monitor {
	return &Monitor{
		prober:    prober,
		store:     store,
		subs:      make(map[int]func(bool)),
		last:      true,
		lastKnown: true,
	}
}

// Start registers with the prober and begins fanning out transitions.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	m.lastKnown = m.probe(ctx)
	m.last = m.lastKnown && !m.forceOffline(ctx)
	m.mu.Unlock()

	m.unwatch = m.prober.Watch(func(online bool) {
		m.mu.Lock()
		m.lastKnown = online
		m.mu.Unlock()
		m.recompute(context.Background())
	})
}

// Stop unregisters from the prober.
func (m *Monitor) Stop() {
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
}

// IsOnline returns the current effective connectivity state.
func (m *Monitor) IsOnline(ctx context.Context) bool {
	if m.forceOffline(ctx) {
		return false
	}
	return m.probe(ctx)
}

// Subscribe registers a callback invoked with the effective state on every
// transition. It returns an unsubscribe function.
func (m *Monitor) Subscribe(callback func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = callback

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetForceOffline persists the force-offline debug flag and notifies
// subscribers if the effective state changed.
func (m *Monitor) SetForceOffline(ctx context.Context, forced bool) error {
	value := "0"
	if forced {
		value = "1"
	}
	if err := m.store.Set(ctx, localstore.KeyForceOffline, value); err != nil {
		logging.Error("Failed to persist force-offline flag", err, nil)
		return err
	}
	m.recompute(ctx)
	return nil
}

// ForceOffline reports whether the force-offline debug flag is set.
func (m *Monitor) ForceOffline(ctx context.Context) bool {
	return m.forceOffline(ctx)
}

func (m *Monitor) forceOffline(ctx context.Context) bool {
	value, ok, err := m.store.Get(ctx, localstore.KeyForceOffline)
	if err != nil {
		logging.Error("Failed to read force-offline flag", err, nil)
		return false
	}
	return ok && value == "1"
}

func (m *Monitor) probe(ctx context.Context) bool {
	online, err := m.prober.Online(ctx)
	if err != nil {
		// No definitive signal: assume online.
		logging.Warn("Connectivity probe failed, assuming online", logrus.Fields{"error": err.Error()})
		return true
	}
	return online
}

// recompute re-evaluates the effective state and fans out on transitions.
func (m *Monitor) recompute(ctx context.Context) {
	forced := m.forceOffline(ctx)

	m.mu.Lock()
	effective := m.lastKnown && !forced
	changed := effective != m.last
	m.last = effective

	var callbacks []func(bool)
	if changed {
		callbacks = make([]func(bool), 0, len(m.subs))
		for _, cb := range m.subs {
			callbacks = append(callbacks, cb)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	logging.Info("Connectivity changed", logrus.Fields{"online": effective})
	for _, cb := range callbacks {
		cb(effective)
	}
}
