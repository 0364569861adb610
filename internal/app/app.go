package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"NoticeHub/internal/config"
	"NoticeHub/internal/fanout"
	"NoticeHub/internal/infrastructure/fetch"
	"NoticeHub/internal/infrastructure/parser"
	"NoticeHub/internal/infrastructure/push"
	schedinfra "NoticeHub/internal/infrastructure/scheduler"
	"NoticeHub/internal/infrastructure/storage"
	"NoticeHub/internal/keyword"
	"NoticeHub/internal/logging"
	"NoticeHub/internal/ports"
	"NoticeHub/internal/scanner"
	"NoticeHub/internal/usecase"
)

// Application wires config to repositories, use cases and the sweep driver.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	runner   *usecase.Runner
	keywords *keyword.Service
	tagger   *keyword.Tagger
	driver   ports.Scheduler
}

// New builds a runnable application instance. Parsers are bound to
// sources here, once; an unknown parser kind in config is a startup
// error, not a scrape-time surprise.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewOffsetParser())
	registry.Register(parser.NewBoardParser())
	registry.Register(parser.NewTokenParser())

	sources := make([]usecase.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		p, err := registry.Resolve(sc.Parser)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Type, err)
		}
		sources = append(sources, usecase.Source{
			Type:       sc.Type,
			URL:        sc.URL,
			Parser:     p,
			DetailDate: sc.DetailDate,
			PageSize:   sc.PageSize,
		})
	}

	notices := storage.NewNoticeRepository(db)
	keywords := storage.NewKeywordRepository(db)
	prefs := storage.NewPreferenceRepository(db)
	links := storage.NewKeywordLinkRepository(db)

	cache := keyword.NewGlobalCache(keywords)
	tagger := keyword.NewTagger(notices, cache, baseLogger.With("component", "tagger"))
	keywordService := keyword.NewService(keywords, links, prefs, cache,
		baseLogger.With("component", "keywords"))

	gateway := push.NewGateway(cfg.Push.BaseURL, cfg.Push.Token)
	resolver := fanout.NewResolver(prefs, links, gateway, baseLogger.With("component", "fanout"))

	persister := usecase.NewPersister(notices, baseLogger.With("component", "persistence"))
	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Fetcher:   fetch.NewHTTPFetcher(nil),
		Notices:   notices,
		Persister: persister,
		Tagger:    tagger,
		Resolver:  resolver,
		Logger:    baseLogger.With("component", "scrape"),
	})
	runner := usecase.NewRunner(orchestrator, sources, baseLogger.With("component", "runner"))

	driver := schedinfra.NewIntervalScheduler(
		cfg.Scheduler.InitialDelayDuration(),
		cfg.Scheduler.IntervalDuration(),
	)

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		runner:   runner,
		keywords: keywordService,
		tagger:   tagger,
		driver:   driver,
	}, nil
}

// Run prepares storage, seeds GLOBAL keywords, starts the sweep driver
// and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if err := storage.EnsureSchema(ctx, a.db); err != nil {
		return err
	}

	if err := a.keywords.SeedGlobals(ctx, a.cfg.Keywords.Seed); err != nil {
		return fmt.Errorf("seed keywords: %w", err)
	}

	if a.cfg.Keywords.RetagOnStart {
		if err := a.tagger.RetagAll(ctx); err != nil {
			a.logger.Error("startup retag failed", "error", err)
		}
	}

	if err := a.driver.Start(ctx, func(time.Time) { a.runner.Sweep(ctx) }); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("noticehub started",
		"sources", len(a.cfg.Sources),
		"interval", a.cfg.Scheduler.IntervalDuration())

	<-ctx.Done()
	return a.driver.Stop(context.Background())
}
