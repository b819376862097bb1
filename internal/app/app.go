// Package app assembles stores, services and the scanner from configuration.
// Both the server and the operator CLI build on it.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"desarquivamento/internal/desarquivamento/document"
	reqMetrics "desarquivamento/internal/desarquivamento/metrics"
	reqService "desarquivamento/internal/desarquivamento/service"
	reqStore "desarquivamento/internal/desarquivamento/store"
	notifService "desarquivamento/internal/notification/service"
	notifStore "desarquivamento/internal/notification/store"
	"desarquivamento/internal/platform/config"
	"desarquivamento/internal/platform/database"
	"desarquivamento/internal/scheduler"
	"desarquivamento/pkg/platform/tx"
)

// requestStore is what both the use cases and the scanner need.
type requestStore interface {
	reqService.RequestStore
	scheduler.RequestSource
}

type notificationStore interface {
	notifService.Store
	scheduler.NotificationStore
}

// App holds the wired components. DB is nil when running on memory stores.
type App struct {
	DB            *sql.DB
	Requests      *reqService.Service
	Notifications *notifService.Service
	Scanner       *scheduler.Scanner
}

// New wires the application. reg receives every domain metric.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{}

	var (
		requests      requestStore
		notifications notificationStore
		runner        tx.Runner = tx.NoopRunner{}
	)
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		requests = reqStore.NewInMemory()
		notifications = notifStore.NewInMemory()
	} else {
		db, err := database.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.DB = db
		requests = reqStore.NewPostgres(db)
		notifications = notifStore.NewPostgres(db)
		runner = tx.NewSQLRunner(db, 0)
	}

	a.Requests = reqService.New(requests, renderer(cfg.Document.Format),
		reqService.WithLogger(logger),
		reqService.WithMetrics(reqMetrics.NewWith(reg)),
		reqService.WithTxRunner(runner),
	)
	a.Notifications = notifService.New(notifications, notifService.WithLogger(logger))
	a.Scanner = scheduler.NewScanner(requests, notifications,
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(scheduler.NewMetricsWith(reg)),
		scheduler.WithThreshold(cfg.Scheduler.StaleThreshold),
		scheduler.WithRetention(cfg.Scheduler.NotificationRetention),
	)
	return a, nil
}

// Ready reports database reachability; memory stores are always ready.
func (a *App) Ready(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return database.ReadinessCheck(a.DB)(ctx)
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func renderer(format string) reqService.DocumentRenderer {
	if format == "xlsx" {
		return document.NewXLSXRenderer()
	}
	return document.NewTextRenderer()
}
