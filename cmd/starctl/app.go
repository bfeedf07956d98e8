package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	star "github.com/goliatone/go-star"
	"github.com/goliatone/go-star/account"
	"github.com/goliatone/go-star/ai"
	"github.com/goliatone/go-star/ai/providers"
	"github.com/goliatone/go-star/audit"
	"github.com/goliatone/go-star/casestudy"
	"github.com/goliatone/go-star/competency"
	"github.com/goliatone/go-star/config"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/migrations"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/ratelimit"
	"github.com/goliatone/go-star/story"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// App holds the process-wide wiring shared by every subcommand.
type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	logger   *glog.BaseLogger
	client   *persistence.Client
	db       *bun.DB
	registry *prometheus.Registry
	service  *star.Service
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func loadConfig(ctx context.Context, lgr *glog.BaseLogger) (*gconfig.Container[*config.BaseConfig], error) {
	cfg := gconfig.New(config.Defaults()).WithLogger(lgr.GetLogger("config"))
	if err := cfg.Load(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Raw().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithPersistence opens the database and registers the dialect-aware
// migrations. It does not run them; see runMigrations.
func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config().Persistence

	driverName, dialect, err := sqlDriver(cfg.GetDriver())
	if err != nil {
		return err
	}
	sqldb, err := sql.Open(driverName, cfg.GetServer())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*account.Record)(nil))
	persistence.RegisterModel((*competency.Record)(nil))
	persistence.RegisterModel((*story.Record)(nil))
	persistence.RegisterModel((*casestudy.Record)(nil))
	persistence.RegisterModel((*audit.LogEntry)(nil))

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return err
	}
	client.SetLogger(app.GetLogger("persistence"))

	for _, fsys := range migrations.Filesystems() {
		client.RegisterDialectMigrations(
			fsys,
			persistence.WithDialectSourceLabel("."),
			persistence.WithValidationTargets("postgres", "sqlite"),
		)
	}

	app.client = client
	app.db = client.DB()
	return nil
}

func sqlDriver(driver string) (string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case config.DriverSQLite:
		return "sqlite3", sqlitedialect.New(), nil
	case config.DriverPostgres:
		return "pgx", pgdialect.New(), nil
	default:
		return "", nil, fmt.Errorf("starctl: unsupported driver %q", driver)
	}
}

func runMigrations(ctx context.Context, app *App) error {
	if err := app.client.ValidateDialects(ctx); err != nil {
		app.GetLogger("persistence").Warn("dialect validation failed", "error", err)
	}
	if err := app.client.Migrate(ctx); err != nil {
		return err
	}
	if report := app.client.Report(); report != nil && !report.IsZero() {
		app.GetLogger("persistence").Info("migrations applied", "report", report.String())
	}
	return migrations.ValidateSchema(ctx, app.db, app.Config().Persistence.GetDriver(), nil)
}

// WithService builds the AI orchestrator, image store, limiter and gate
// around the Bun repositories.
func WithService(ctx context.Context, app *App) error {
	cfg := app.Config()
	logger := adaptLogger(app.GetLogger("commands"))

	svcCfg, err := star.NewBunConfig(app.db, star.BunOptions{Logger: adaptLogger(app.GetLogger("repository"))})
	if err != nil {
		return err
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := ai.NewPrometheusRecorder(app.registry)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg.AI, adaptLogger(app.GetLogger("ai")))
	if err != nil {
		return err
	}
	svcCfg.AI = ai.New(ai.Config{
		Provider: provider,
		Settings: ai.NewSettings(cfg.AI.Defaults(), nil),
		Metrics:  recorder,
		Logger:   adaptLogger(app.GetLogger("ai")),
	})

	images, err := imagestore.New(ctx, cfg.Images.StoreConfig())
	if err != nil {
		return err
	}
	svcCfg.Images = images

	limits, err := cfg.Limits.Set()
	if err != nil {
		return err
	}
	svcCfg.AILimiter = limits.Get(ratelimit.PresetAI)
	svcCfg.FeatureGate = cfg.Features.Gate()
	svcCfg.AdminEmails = cfg.Auth.AdminEmailList()
	svcCfg.Logger = logger

	app.service = star.New(svcCfg)
	return app.service.HealthCheck(ctx)
}

// buildProvider returns nil for the "none" provider; AI commands then
// report a degraded result instead of calling out.
func buildProvider(cfg config.AIConfig, logger types.Logger) (ai.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderOpenAI:
		return providers.NewOpenAI(providers.OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			MaxTokens:  cfg.OpenAI.MaxTokens,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
		})
	case config.ProviderAnthropic:
		return providers.NewAnthropic(providers.AnthropicConfig{
			APIKey:     cfg.Anthropic.APIKey,
			BaseURL:    cfg.Anthropic.BaseURL,
			Model:      cfg.Anthropic.Model,
			MaxTokens:  cfg.Anthropic.MaxTokens,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
		})
	default:
		return nil, nil
	}
}

func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
