package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ClippingsImporter/internal/config"
	"ClippingsImporter/internal/dedup"
	"ClippingsImporter/internal/domain"
	"ClippingsImporter/internal/extract"
	"ClippingsImporter/internal/infrastructure/export"
	"ClippingsImporter/internal/infrastructure/llm"
	"ClippingsImporter/internal/infrastructure/parser"
	"ClippingsImporter/internal/infrastructure/pure"
	"ClippingsImporter/internal/infrastructure/scheduler"
	"ClippingsImporter/internal/infrastructure/storage"
	"ClippingsImporter/internal/infrastructure/telegram"
	"ClippingsImporter/internal/infrastructure/urlresolve"
	"ClippingsImporter/internal/logging"
	"ClippingsImporter/internal/ports"
	"ClippingsImporter/internal/resolve"
	"ClippingsImporter/internal/scanner"
	"ClippingsImporter/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg         config.Config
	logger      *slog.Logger
	registry    *scanner.Registry
	coordinator *resolve.Coordinator
	ledger      *storage.SQLLedger
	pipeline    *usecase.Pipeline
	scheduler   *usecase.Scheduler
}

// New builds every adapter from cfg. The caller must Close the application.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	component := func(name string) *slog.Logger { return baseLogger.With("component", name) }

	directory, err := pure.NewClient(cfg.Pure, nil, component("pure"))
	if err != nil {
		return nil, err
	}
	resolver := resolve.NewResolver(directory, cfg.Pure.EmployeeIDType, component("resolver"))
	affiliations := resolve.NewAffiliationFilter(directory, cfg.Organizations, component("affiliations"))
	coordinator := resolve.NewCoordinator(resolver, affiliations, component("coordinator"))

	extractor, err := extract.New(cfg.Extraction)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewLexisNexisScanner(extractor, cfg.Extraction.ValidFaculties, cfg.Scheduler.Location(), component("scanner.lexisnexis")))
	source := parser.NewStrategySource(registry, cfg.Inputs, component("source"))

	filter, err := parser.LoadMediaFilter(cfg.Filters.Workbook, component("filter"))
	if err != nil {
		return nil, err
	}

	ledger, err := storage.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, err
	}

	var urlResolver ports.URLResolver
	if !cfg.URLResolution.Disabled {
		urlResolver = urlresolve.New(cfg.URLResolution, nil, component("urlresolve"))
	}

	chat := llm.NewChatGPTClient(cfg.ChatGPT, nil)
	if !chat.Configured() {
		baseLogger.Info("chatgpt not configured, classification uses defaults")
	}

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram, nil); tg.Configured() {
		notifier = tg
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Filter:      filter,
		Ledger:      ledger,
		URLResolver: urlResolver,
		URLWorkers:  cfg.URLResolution.Workers,
		Resolver:    coordinator,
		Suppressor:  dedup.NewSuppressor(directory, component("dedup")),
		Classifier:  llm.NewClassifier(chat, nil, component("classifier")),
		Clippings:   export.NewClippingWriter(cfg.Output.Directory, cfg.Organizations.FallbackOrgUUID),
		Report:      export.NewReportWriter(cfg.Output.ReportDir),
		Notifier:    notifier,
		Workers:     cfg.Workers,
		Logger:      component("pipeline"),
	})

	return &Application{
		cfg:         cfg,
		logger:      baseLogger,
		registry:    registry,
		coordinator: coordinator,
		ledger:      ledger,
		pipeline:    pipeline,
		scheduler:   usecase.NewScheduler(scheduler.NewTickerScheduler(cfg.Scheduler.Interval), pipeline, component("scheduler")),
	}, nil
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (usecase.Summary, error) {
	return a.pipeline.Run(ctx)
}

// Watch reruns the pipeline on the configured interval until ctx is done.
func (a *Application) Watch(ctx context.Context, onRun func(usecase.Summary)) error {
	if err := a.scheduler.Start(ctx, onRun); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching inputs", "interval", a.cfg.Scheduler.Interval)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// ResolveNames resolves candidate names as of a publication date.
func (a *Application) ResolveNames(ctx context.Context, names []string, asOf time.Time) domain.ResolutionResult {
	return a.coordinator.ResolveBatch(ctx, names, asOf, nil)
}

// ScanFile runs the named scanner over one digest file.
func (a *Application) ScanFile(ctx context.Context, scannerName, path string) ([]domain.Article, error) {
	sc, err := a.registry.Resolve(scannerName)
	if err != nil {
		return nil, err
	}
	return sc.Scan(ctx, scanner.Request{Path: path, InputName: "cli"})
}

// Close releases the ledger.
func (a *Application) Close() error {
	return a.ledger.Close()
}
