package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/notifications"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/geocoder89/eventloop/internal/queue/worker"
	"github.com/geocoder89/eventloop/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	if cfg.Store == repo.KindMemory {
		log.Error("the standalone worker needs STORE=postgres; memory mode runs the worker inside the API")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTelEnabled, "eventloop-worker", cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	// the API owns migrations
	cfg.AutoMigrate = false

	store, err := repo.Open(ctx, cfg, prom, log)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer store.Close()

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.NewSignupWorker(worker.Config{
		PollInterval: cfg.WorkerPollInterval,
		WorkerID:     workerID,
		Concurrency:  cfg.WorkerConcurrency,
	}, worker.Stores{
		Jobs:       store.Jobs,
		Signups:    store.Signups,
		Users:      store.Users,
		Events:     store.Events,
		Deliveries: store.Deliveries,
	}, notifications.FromConfig(cfg.ResendAPIKey, cfg.MailFrom, log), log, prom)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID, "health_port", cfg.WorkerHealthPort)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
