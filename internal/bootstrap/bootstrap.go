package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/epi-console/internal/config"
	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/ports"
	"github.com/kirillkom/epi-console/internal/core/usecase"
	"github.com/kirillkom/epi-console/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/epi-console/internal/infrastructure/orchestrator"
	"github.com/kirillkom/epi-console/internal/infrastructure/queue/nats"
	"github.com/kirillkom/epi-console/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/epi-console/internal/infrastructure/resilience"
	"github.com/kirillkom/epi-console/internal/observability/logging"
	"github.com/kirillkom/epi-console/internal/observability/metrics"
	"github.com/kirillkom/epi-console/internal/presentation"
)

const ServiceName = "epi-console"

type Options struct {
	// LogWriter defaults to stdout.
	LogWriter io.Writer
	// SkipStatus avoids the startup banner request.
	SkipStatus bool
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPServerMetrics
	Metrics     *metrics.ConsoleMetrics

	Client   *orchestrator.Client
	Composer *usecase.Composer
	Board    *usecase.Dashboard
	Poller   *usecase.Poller
	SubmitUC *usecase.SubmitUseCase
	Views    presentation.Builder
	Exporter *xlsx.Exporter

	// Journal and Feed are nil when not configured.
	Journal *postgres.JournalRepository
	Feed    *nats.Feed

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = os.Stdout
	}
	logger := logging.NewJSONLoggerTo(logWriter, ServiceName, cfg.LogLevel)

	required, err := parseRequiredEpis(cfg.RequiredEpis)
	if err != nil {
		return nil, fmt.Errorf("parse required epis: %w", err)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPServerMetrics(ServiceName, registry)
	consoleMetrics := metrics.NewConsoleMetrics(ServiceName, registry)

	breakerOpts := []resilience.Option{
		resilience.WithLogger(logger),
		resilience.WithStateObserver(consoleMetrics.ObserveBreaker),
	}
	resilienceCfg := resilienceConfig(cfg)

	contract, err := orchestrator.LoadContract()
	if err != nil {
		return nil, fmt.Errorf("load orchestration contract: %w", err)
	}
	client := orchestrator.New(orchestrator.Options{
		BaseURL:        cfg.BackendURL,
		Timeout:        cfg.BackendTimeout,
		Executor:       resilience.NewExecutor(resilienceCfg, breakerOpts...),
		SubmitExecutor: resilience.NewExecutor(resilienceCfg, breakerOpts...),
		Contract:       contract,
		Observer:       consoleMetrics,
		Logger:         logger,
	})

	app := &App{
		Config:      cfg,
		Logger:      logger,
		Registry:    registry,
		HTTPMetrics: httpMetrics,
		Metrics:     consoleMetrics,
		Client:      client,
		Views:       presentation.Builder{Location: cfg.Location()},
		Exporter:    xlsx.NewExporter(cfg.Location()),
	}

	if cfg.JournalDSN != "" {
		db, err := postgres.OpenDB(ctx, cfg.JournalDSN)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		journal := postgres.NewJournalRepository(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure journal schema: %w", err)
		}
		app.Journal = journal
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
	}

	if cfg.NATSURL != "" {
		feed, err := nats.New(cfg.NATSURL, cfg.NATSDecisionsSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilienceCfg, breakerOpts...),
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init decision feed: %w", err)
		}
		app.Feed = feed
		app.closeFns = append(app.closeFns, feed.Close)
	}

	app.Composer = usecase.NewComposer(usecase.ComposerOptions{
		Location:     cfg.DefaultLocation,
		RequiredEpis: required,
	})
	app.Board = usecase.NewDashboard(cfg.StaleAfter)
	app.Poller = usecase.NewPoller(client, app.Board, usecase.PollerOptions{
		Interval:       cfg.PollInterval,
		Jitter:         cfg.PollJitter,
		DecisionsLimit: cfg.DecisionsLimit,
		FetchTimeout:   cfg.BackendTimeout,
		Observer:       consoleMetrics,
		Logger:         logger,
	})

	submitOpts := usecase.SubmitOptions{Observer: consoleMetrics, Logger: logger}
	if app.Journal != nil {
		submitOpts.Journal = app.Journal
	}
	if app.Feed != nil {
		submitOpts.Publisher = app.Feed
	}
	app.SubmitUC = usecase.NewSubmitUseCase(app.Composer, client, app.Board, app.Poller, submitOpts)

	if !opts.SkipStatus {
		app.loadServiceStatus(ctx)
	}
	return app, nil
}

// JournalReader returns the journal as a port, or nil when disabled.
func (a *App) JournalReader() ports.JournalReader {
	if a.Journal == nil {
		return nil
	}
	return a.Journal
}

// Start begins polling and, when a feed is configured, refreshes on every
// decision nudge. Polling keeps running if the subscription fails.
func (a *App) Start(ctx context.Context) {
	a.Poller.Start(ctx)
	if a.Feed == nil {
		return
	}
	go a.follow(ctx, a.Feed)
}

func (a *App) follow(ctx context.Context, feed ports.DecisionFeed) {
	err := feed.SubscribeDecisions(ctx, func(handlerCtx context.Context) {
		a.Metrics.RecordNudge()
		a.Poller.RefreshNow(handlerCtx)
	})
	if err != nil && ctx.Err() == nil {
		a.Logger.Warn("decision_feed_failed", "error", err)
	}
}

func (a *App) Close() {
	if a.Poller != nil {
		a.Poller.Stop()
	}
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func (a *App) loadServiceStatus(ctx context.Context) {
	statusCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status, err := a.Client.Status(statusCtx)
	if err != nil {
		a.Logger.Warn("service_status_unavailable", "failure_kind", domain.FailureKindOf(err), "error", err)
		return
	}
	a.Views.Service = status
	a.Logger.Info("service_status_loaded", "version", status.Version, "status", status.Status)
}

func parseRequiredEpis(raw []string) ([]domain.EpiType, error) {
	out := make([]domain.EpiType, 0, len(raw))
	for _, item := range raw {
		t, err := domain.ParseEpiType(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     cfg.RetryInitialBackoff,
		RetryMaxBackoff:         cfg.RetryMaxBackoff,
		RetryMultiplier:         cfg.RetryMultiplier,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      cfg.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
	}
}
