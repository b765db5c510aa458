package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/location"
	"github.com/pgEdge/modmigrate/internal/migrate"
	"github.com/pgEdge/modmigrate/internal/testutils"
)

type fakeEngine struct {
	cfg    engine.Configuration
	loader *fakeLoader
}

func (e *fakeEngine) Configuration() engine.Configuration {
	return e.cfg
}

func (e *fakeEngine) Migrate(_ context.Context) (*engine.Result, error) {
	e.loader.calls = append(e.loader.calls, e.cfg.Module)
	if err := e.loader.failures[e.cfg.Module]; err != nil {
		return nil, err
	}
	return &engine.Result{
		Module:             e.cfg.Module,
		Table:              e.cfg.Table,
		MigrationsExecuted: 1,
		TargetVersion:      "1",
		UpToDate:           e.loader.upToDate,
	}, nil
}

// fakeLoader records the configurations it loads and the order in which its
// engines are migrated.
type fakeLoader struct {
	loaded   []engine.Configuration
	calls    []string
	failures map[string]error
	upToDate []string
}

func (l *fakeLoader) Load(cfg engine.Configuration) (engine.Engine, error) {
	l.loaded = append(l.loaded, cfg)
	return &fakeEngine{cfg: cfg, loader: l}, nil
}

func allExist(string) bool { return true }

func modules(names ...string) []config.Module {
	out := make([]config.Module, len(names))
	for i, name := range names {
		out[i] = config.Module{Name: name}
	}
	return out
}

func testConfig(names ...string) config.Config {
	cfg := config.DefaultConfig()
	cfg.DataSource = config.DataSource{
		URL:      "jdbc:h2:mem:app",
		User:     "app",
		Password: "secret",
	}
	cfg.Migration.Modular = true
	cfg.Migration.Modules = modules(names...)
	return cfg
}

type orchestratorOptions struct {
	exists   location.Predicate
	strategy migrate.Strategy
	ext      migrate.Extensions
}

func newOrchestrator(t *testing.T, cfg config.Config, loader engine.Loader, opts orchestratorOptions) *migrate.Orchestrator {
	t.Helper()

	require.NoError(t, cfg.Validate())
	if opts.exists == nil {
		opts.exists = allExist
	}
	logger := testutils.Logger(t)
	dataSources := datasource.NewDataSources(cfg)
	publisher := migrate.NewPublisher(logger)
	publisher.Subscribe(opts.ext.Listeners...)

	return migrate.NewOrchestrator(
		cfg,
		migrate.NewBuilder(cfg, dataSources),
		dataSources,
		loader,
		opts.exists,
		publisher,
		opts.strategy,
		opts.ext,
		logger,
	)
}
