package sync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mka6199/wagebook/internal/logging"
	"github.com/mka6199/wagebook/internal/metrics"
	"github.com/mka6199/wagebook/internal/netmon"
)

// Scheduler triggers sync passes automatically: once on every
// offline-to-online transition and periodically while online. It also
// refreshes the queue backlog gauge on a short polling interval.
type Scheduler struct {
	orchestrator *Orchestrator
	monitor      *netmon.Monitor

	syncInterval time.Duration
	pollInterval time.Duration

	mu        sync.Mutex
	isRunning bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	unsub     func()
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	SyncInterval time.Duration // periodic sync cadence while online
	PollInterval time.Duration // pending-count refresh cadence
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		SyncInterval: 5 * time.Minute,
		PollInterval: 5 * time.Second,
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(o *Orchestrator, m *netmon.Monitor, config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	return &Scheduler{
		orchestrator: o,
		monitor:      m,
		syncInterval: config.SyncInterval,
		pollInterval: config.PollInterval,
	}
}

// Start begins the background loops and subscribes to connectivity
// transitions.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Reconnect trigger: drain the queue as soon as we come back online.
	s.unsub = s.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		logging.Info("Reconnected, starting sync", nil)
		go func() {
			if err := s.orchestrator.SyncNow(ctx); err != nil {
				logging.Error("Reconnect sync failed", err, nil)
			}
		}()
	})

	s.wg.Add(2)
	go s.periodicSyncLoop(ctx)
	go s.pendingPollLoop(ctx)

	logging.Info("Sync scheduler started", logrus.Fields{
		"sync_interval": s.syncInterval.String(),
		"poll_interval": s.pollInterval.String(),
	})
}

// Stop stops the background loops gracefully.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	close(s.stopCh)
	s.wg.Wait()

	logging.Info("Sync scheduler stopped", nil)
}

func (s *Scheduler) periodicSyncLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.monitor.IsOnline(ctx) {
				continue
			}
			if err := s.orchestrator.SyncNow(ctx); err != nil {
				logging.Error("Periodic sync failed", err, nil)
			}
		}
	}
}

func (s *Scheduler) pendingPollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			metrics.QueueBacklog.Set(float64(s.orchestrator.queue.PendingCount(ctx)))
		}
	}
}
