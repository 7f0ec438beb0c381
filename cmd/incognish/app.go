package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/incognish/incognish"
	"github.com/incognish/incognish/internal/adapters/sqlite"
	appservices "github.com/incognish/incognish/internal/app/services"
	"github.com/incognish/incognish/internal/brokers"
	"github.com/incognish/incognish/internal/captcha"
	"github.com/incognish/incognish/internal/config"
	"github.com/incognish/incognish/internal/db"
	"github.com/incognish/incognish/internal/notify"
	"github.com/incognish/incognish/internal/observability"
	"github.com/incognish/incognish/internal/registry"
)

// app holds the wired components shared by every command.
type app struct {
	cfg          config.Config
	log          *slog.Logger
	database     *db.Database
	browser      *brokers.ChromeBrowser
	registry     *registry.Registry
	orchestrator *appservices.Orchestrator
	tracker      *appservices.TrackerService
	shutdownOTel func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	log := slog.New(observability.WrapSlogHandler(baseHandler))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdownTelemetry, err := observability.SetupOpenTelemetry(ctx, log, observability.OpenTelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		Environment:       cfg.Environment,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		_ = shutdownTelemetry(context.Background())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := sqlite.NewStore(database)
	catalog := registry.New(cfg.Registry.Path, incognish.DefaultRegistry)

	browser := brokers.NewChromeBrowser(brokers.ChromeOptions{
		ExecPath: cfg.Browser.ChromePath,
		Headless: cfg.Browser.Headless,
		Timeout:  cfg.Browser.Timeout,
	})
	solver := captcha.Client{
		APIKey:     cfg.Captcha.APIKey,
		Timeout:    cfg.Captcha.PollTimeout,
		HTTPClient: observability.HTTPClient(30 * time.Second),
	}
	mailer := brokers.SMTPMailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		SSLPort:  cfg.SMTP.SSLPort,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		Timeout:  30 * time.Second,
	}
	if !cfg.SMTP.Configured() {
		log.Warn("SMTP credentials not set, email brokers will need manual follow-up")
	}

	handlers := brokers.NewRegistry()
	brokers.RegisterDefaults(handlers, browser, solver, mailer)

	options := []appservices.OrchestratorOption{
		appservices.WithLogger(log),
		appservices.WithRunMetrics(observability.NewRunMetrics()),
	}
	if cfg.Notify.Enabled() {
		options = append(options, appservices.WithNotifier(notify.Client{
			Endpoint:   cfg.Notify.Endpoint,
			Token:      cfg.Notify.Token,
			Secret:     cfg.Notify.Secret,
			Source:     cfg.Notify.Source,
			Timeout:    10 * time.Second,
			HTTPClient: observability.HTTPClient(10 * time.Second),
		}))
	}

	return &app{
		cfg:          cfg,
		log:          log,
		database:     database,
		browser:      browser,
		registry:     catalog,
		orchestrator: appservices.NewOrchestrator(store, catalog, handlers, options...),
		tracker:      appservices.NewTrackerService(store, catalog),
		shutdownOTel: shutdownTelemetry,
	}, nil
}

func (a *app) Close() {
	a.browser.Close()
	if err := a.database.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownOTel(ctx); err != nil {
		slog.Error("Failed to shutdown OpenTelemetry", "error", err)
	}
}

func logDBLatencyStats(ctx context.Context, log *slog.Logger, database *db.Database) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		stats := database.QueryLatencyStats()
		limit := min(5, len(stats))
		for index := 0; index < limit; index++ {
			entry := stats[index]
			log.Info("db_query_latency",
				"query", entry.Name,
				"count", entry.Count,
				"p50_ms", entry.P50.Milliseconds(),
				"p95_ms", entry.P95.Milliseconds(),
				"max_ms", entry.Max.Milliseconds(),
			)
		}
	}
}
