package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/analytics/aggregate"
	"github.com/mamadbah2/aquafarm/internal/analytics/period"
	"github.com/mamadbah2/aquafarm/internal/analytics/scope"
	"github.com/mamadbah2/aquafarm/internal/config"
	"github.com/mamadbah2/aquafarm/internal/repository/mongodb"
	"github.com/mamadbah2/aquafarm/internal/repository/postgres"
	"github.com/mamadbah2/aquafarm/internal/repository/sheets"
	"github.com/mamadbah2/aquafarm/internal/scheduler"
	"github.com/mamadbah2/aquafarm/internal/server/handlers"
	"github.com/mamadbah2/aquafarm/internal/server/router"
	"github.com/mamadbah2/aquafarm/internal/service/alerting"
	"github.com/mamadbah2/aquafarm/internal/service/overview"
	"github.com/mamadbah2/aquafarm/pkg/clients/forecaster"
	whatsappclient "github.com/mamadbah2/aquafarm/pkg/clients/whatsapp"
	"github.com/mamadbah2/aquafarm/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxWait)
	if err != nil {
		baseLogger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()
	farmRepo := postgres.NewRepository(pool, logger.Named(baseLogger, "repo.postgres"))

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	engine := overview.NewEngine(
		scope.NewResolver(farmRepo, farmRepo, logger.Named(baseLogger, "analytics.scope")),
		period.NewResolver(farmRepo, logger.Named(baseLogger, "analytics.period")),
		aggregate.NewAggregator(farmRepo, logger.Named(baseLogger, "analytics.aggregate")),
		logger.Named(baseLogger, "svc.overview"),
	)

	alertOpts := alerting.Options{
		Thresholds: alerting.DefaultThresholds(
			cfg.Alerts.DOMin, cfg.Alerts.AmmoniaMax, cfg.Alerts.TemperatureMax, cfg.Alerts.PHMin, cfg.Alerts.PHMax),
		Sigma:        cfg.Alerts.Sigma,
		LookbackDays: cfg.Alerts.LookbackDays,
		Recipient:    cfg.WhatsApp.Recipient,
	}
	alertExtras := []alerting.Option{alerting.WithHistory(mongoRepo)}
	deps := scheduler.Dependencies{Overviews: engine, Orgs: farmRepo, Snapshots: mongoRepo}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		workbook := sheets.NewWorkbook(sheetsRepo, logger.Named(baseLogger, "repo.sheets"))
		alertExtras = append(alertExtras, alerting.WithThresholdSource(workbook))
		deps.Exporter = workbook
	} else {
		baseLogger.Warn("google sheet not configured, threshold overrides and kpi export disabled")
	}

	var notifier handlers.Notifier
	if cfg.WhatsApp.Enabled() {
		client := whatsappclient.NewClient(cfg.WhatsApp)
		notifier = client
		alertExtras = append(alertExtras, alerting.WithNotifier(client))
	} else {
		baseLogger.Warn("whatsapp not configured, alert notifications disabled")
	}

	if cfg.Forecaster.BaseURL != "" {
		alertExtras = append(alertExtras, alerting.WithExpectationSource(forecaster.NewClient(cfg.Forecaster)))
		baseLogger.Info("feeding forecaster enabled", zap.String("base_url", cfg.Forecaster.BaseURL))
	}

	alertSvc := alerting.NewService(farmRepo, alertOpts, logger.Named(baseLogger, "svc.alerting"), alertExtras...)
	deps.Scanner = alertSvc

	sched, err := scheduler.NewScheduler(cfg.Reporting, cfg.Alerts.Organizations, deps, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	httpEngine := router.New(
		handlers.NewOverviewHandler(engine, logger.Named(baseLogger, "handlers.overview")),
		handlers.NewAlertsHandler(alertSvc, mongoRepo, notifier, logger.Named(baseLogger, "handlers.alerts")),
		logger.Named(baseLogger, "router"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
