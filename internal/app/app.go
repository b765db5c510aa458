package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/do"
)

// Initializer is a unit of startup work. Initializers with a lower order run
// first.
type Initializer interface {
	Order() int
	Init(ctx context.Context) error
}

type named struct {
	name string
	Initializer
}

type App struct {
	i            *do.Injector
	logger       zerolog.Logger
	initializers []named
	once         sync.Once
	err          error
}

func NewApp(i *do.Injector) (*App, error) {
	logger, err := do.Invoke[zerolog.Logger](i)
	if err != nil {
		return nil, fmt.Errorf("failed to get logger: %w", err)
	}
	return &App{
		i:      i,
		logger: logger.With().Str("component", "app").Logger(),
	}, nil
}

// Register adds an initializer. Initializers with equal orders run in the
// order they were registered.
func (a *App) Register(name string, initializer Initializer) {
	a.initializers = append(a.initializers, named{name: name, Initializer: initializer})
}

// Start runs every registered initializer once. Later calls return the result
// of the first.
func (a *App) Start(ctx context.Context) error {
	a.once.Do(func() {
		a.err = a.start(ctx)
	})
	return a.err
}

func (a *App) start(ctx context.Context) error {
	initializers := slices.Clone(a.initializers)
	slices.SortStableFunc(initializers, func(x, y named) int {
		return cmp.Compare(x.Order(), y.Order())
	})
	for _, initializer := range initializers {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.logger.Debug().
			Str("initializer", initializer.name).
			Int("order", initializer.Order()).
			Msg("running initializer")
		if err := initializer.Init(ctx); err != nil {
			return fmt.Errorf("%s: %w", initializer.name, err)
		}
	}
	return nil
}

func (a *App) Shutdown(reason error) error {
	errs := []error{reason}

	a.logger.Info().Msg("shutting down")
	errs = append(errs, a.i.Shutdown())

	return errors.Join(errs...)
}
