package migrate

import (
	"github.com/rs/zerolog"
	"github.com/samber/do"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/housekeeping"
	"github.com/pgEdge/modmigrate/internal/location"
)

// Provide registers migration dependencies with the injector.
func Provide(i *do.Injector, ext Extensions) {
	provideBuilder(i)
	providePublisher(i, ext.Listeners)
	provideStrategy(i, ext.Strategy)
	provideOrchestrator(i, ext)
}

func provideBuilder(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Builder, error) {
		cfg, err := do.Invoke[config.Config](i)
		if err != nil {
			return nil, err
		}
		dataSources, err := do.Invoke[*datasource.DataSources](i)
		if err != nil {
			return nil, err
		}
		return NewBuilder(cfg, dataSources), nil
	})
}

func providePublisher(i *do.Injector, listeners []Listener) {
	do.Provide(i, func(i *do.Injector) (*Publisher, error) {
		logger, err := do.Invoke[zerolog.Logger](i)
		if err != nil {
			return nil, err
		}
		publisher := NewPublisher(logger)
		publisher.Subscribe(listeners...)
		return publisher, nil
	})
}

// provideStrategy registers the host's strategy, or the one selected by the
// configuration when the host doesn't supply one. The default strategy is
// nil, which migrates each module directly.
func provideStrategy(i *do.Injector, strategy Strategy) {
	do.Provide(i, func(i *do.Injector) (Strategy, error) {
		if strategy != nil {
			return strategy, nil
		}
		cfg, err := do.Invoke[config.Config](i)
		if err != nil {
			return nil, err
		}
		if cfg.Migration.Strategy != config.StrategyHousekeeping {
			return nil, nil
		}
		housekeeper, err := do.Invoke[*housekeeping.Housekeeper](i)
		if err != nil {
			return nil, err
		}
		logger, err := do.Invoke[zerolog.Logger](i)
		if err != nil {
			return nil, err
		}
		return NewHousekeepingStrategy(cfg.Migration, housekeeper, logger), nil
	})
}

func provideOrchestrator(i *do.Injector, ext Extensions) {
	do.Provide(i, func(i *do.Injector) (*Orchestrator, error) {
		cfg, err := do.Invoke[config.Config](i)
		if err != nil {
			return nil, err
		}
		builder, err := do.Invoke[*Builder](i)
		if err != nil {
			return nil, err
		}
		dataSources, err := do.Invoke[*datasource.DataSources](i)
		if err != nil {
			return nil, err
		}
		loader, err := do.Invoke[engine.Loader](i)
		if err != nil {
			return nil, err
		}
		resources, err := do.Invoke[*location.Loader](i)
		if err != nil {
			return nil, err
		}
		publisher, err := do.Invoke[*Publisher](i)
		if err != nil {
			return nil, err
		}
		strategy, err := do.Invoke[Strategy](i)
		if err != nil {
			return nil, err
		}
		logger, err := do.Invoke[zerolog.Logger](i)
		if err != nil {
			return nil, err
		}
		return NewOrchestrator(
			cfg,
			builder,
			dataSources,
			loader,
			resources.Exists,
			publisher,
			strategy,
			ext,
			logger,
		), nil
	})
}
