package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"desarquivamento/internal/app"
	reqHandler "desarquivamento/internal/desarquivamento/handler"
	jwttoken "desarquivamento/internal/jwt_token"
	notifHandler "desarquivamento/internal/notification/handler"
	"desarquivamento/internal/platform/config"
	"desarquivamento/internal/platform/httpserver"
	"desarquivamento/internal/platform/logger"
	"desarquivamento/internal/platform/metrics"
	"desarquivamento/internal/scheduler"
	httptransport "desarquivamento/internal/transport/http"
)

const schedulerStopTimeout = 30 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set JWT_SIGNING_KEY in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	application, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	httpMetrics := metrics.NewWith(reg)
	validator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience),
	)
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Logger:   log,
		Metrics:  httpMetrics,
		Gatherer: reg,
		Ready:    application.Ready,
	},
		reqHandler.New(application.Requests, log, httpMetrics, validator),
		notifHandler.New(application.Notifications, log, httpMetrics, validator),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting desarquivamento", "addr", cfg.Server.Addr)
		return httpserver.Run(gctx, srv)
	})
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewScheduler(application.Scanner, cfg.Scheduler.ScanSchedule, cfg.Scheduler.CleanupSchedule, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return runScheduler(gctx, sched, log)
		})
	}

	err = g.Wait()
	log.Info("desarquivamento stopped")
	return err
}

func runScheduler(ctx context.Context, sched *scheduler.Scheduler, log *slog.Logger) error {
	sched.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), schedulerStopTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		log.Warn("scheduler did not stop cleanly", "error", err)
	}
	return nil
}
