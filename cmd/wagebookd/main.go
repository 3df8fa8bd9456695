// Command wagebookd runs the WageBook offline-sync core as a standalone
// daemon: it keeps the local cache warm from the remote store, replays
// queued mutations on reconnect and serves Prometheus metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mka6199/wagebook/internal/cache"
	"github.com/mka6199/wagebook/internal/config"
	"github.com/mka6199/wagebook/internal/localstore"
	"github.com/mka6199/wagebook/internal/logging"
	"github.com/mka6199/wagebook/internal/models"
	"github.com/mka6199/wagebook/internal/netmon"
	"github.com/mka6199/wagebook/internal/queue"
	"github.com/mka6199/wagebook/internal/remote/mongostore"
	syncpkg "github.com/mka6199/wagebook/internal/sync"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	cfg := config.Load()
	logging.Init(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	log := logging.Get()

	log.WithField("version", Version).Info("Starting wagebookd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := localstore.Open(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to open local store")
	}
	defer store.Close()

	remoteStore, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.RemoteTimeout)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to remote store")
	}
	defer remoteStore.Close(context.Background())

	prober := netmon.NewDialProber(cfg.ProbeTarget, cfg.ProbeInterval)
	defer prober.Close()

	monitor := netmon.New(prober, store)
	monitor.Start(ctx)
	defer monitor.Stop()

	q := queue.New(store)
	c := cache.New(store)

	// Keep the cache warm: every remote change refreshes the snapshot the
	// derivation functions read while offline.
	unsubWorkers, err := remoteStore.WatchWorkers(ctx, func(rows []models.Worker) {
		if err := c.SaveWorkers(ctx, rows); err != nil {
			logging.Error("Failed to refresh workers cache", err, nil)
		}
	})
	if err != nil {
		log.WithError(err).Warn("Workers watch unavailable, cache will go stale while online")
	} else {
		defer unsubWorkers()
	}

	unsubPayments, err := remoteStore.WatchPayments(ctx, func(rows []models.Payment) {
		if err := c.SavePayments(ctx, rows); err != nil {
			logging.Error("Failed to refresh payments cache", err, nil)
		}
	})
	if err != nil {
		log.WithError(err).Warn("Payments watch unavailable, cache will go stale while online")
	} else {
		defer unsubPayments()
	}

	orchestrator := syncpkg.New(q, remoteStore, monitor, store)
	scheduler := syncpkg.NewScheduler(orchestrator, monitor, &syncpkg.SchedulerConfig{
		SyncInterval: cfg.SyncInterval,
		PollInterval: cfg.PendingPollInterval,
	})
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Drain anything queued before the last shutdown.
	go func() {
		if err := orchestrator.SyncNow(ctx); err != nil {
			logging.Error("Startup sync failed", err, nil)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		log.WithField("addr", cfg.MetricsAddr).Info("Metrics listener started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics listener failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.WithFields(logrus.Fields{"signal": sig.String()}).Info("Shutting down")
	cancel()
	_ = srv.Shutdown(context.Background())
}
