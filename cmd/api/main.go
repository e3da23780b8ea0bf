package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/eventloop/internal/auth"
	"github.com/geocoder89/eventloop/internal/config"
	httpx "github.com/geocoder89/eventloop/internal/http"
	"github.com/geocoder89/eventloop/internal/notifications"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/geocoder89/eventloop/internal/queue/redisclient"
	"github.com/geocoder89/eventloop/internal/queue/worker"
	"github.com/geocoder89/eventloop/internal/repo"
	"github.com/geocoder89/eventloop/internal/seed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTelEnabled, "eventloop-api", cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, err := repo.Open(ctx, cfg, prom, log)
	if err != nil {
		log.Error("store open failed", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := httpx.PingStore(ctx, store); err != nil {
		log.Error("store not reachable", "store", store.Kind, "err", err)
		os.Exit(1)
	}

	// a fresh memory store has nobody to log in with
	if store.Kind == repo.KindMemory {
		if err := seed.Run(ctx, store.Users, seed.Accounts(cfg), log); err != nil {
			log.Error("seed failed", "err", err)
			os.Exit(1)
		}
	}

	rdb, err := redisclient.Connect(ctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	switch {
	case errors.Is(err, redisclient.ErrDisabled):
		log.Info("redis disabled; rate limits are per process")
	case err != nil:
		log.Warn("redis unavailable; rate limits are per process", "err", err)
		rdb = nil
	default:
		defer func() { _ = rdb.Close() }()
	}

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Log:      log,
		Prom:     prom,
		Gatherer: reg,
		Users:    store.Users,
		Events:   store.Events,
		Signups:  store.Signups,
		Store:    store,
		Redis:    rdb,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.SessionTTL),
	})

	if cfg.InProcessWorker {
		w := worker.NewSignupWorker(worker.Config{
			WorkerID:     "api-inproc",
			PollInterval: cfg.WorkerPollInterval,
			Concurrency:  1,
		}, worker.Stores{
			Jobs:       store.Jobs,
			Signups:    store.Signups,
			Users:      store.Users,
			Events:     store.Events,
			Deliveries: store.Deliveries,
		}, notifications.FromConfig(cfg.ResendAPIKey, cfg.MailFrom, log), log, prom)

		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("in-process worker stopped", "err", err)
			}
		}()
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", store.Kind)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	// Graceful shutdown

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}
