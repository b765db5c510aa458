package sqlmigrator

import (
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/spf13/afero"

	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/location"
)

func Provide(i *do.Injector) {
	provideLoader(i)
}

func provideLoader(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (engine.Loader, error) {
		fs, err := do.Invoke[afero.Fs](i)
		if err != nil {
			return nil, err
		}
		scanner, err := do.Invoke[*location.Scanner](i)
		if err != nil {
			return nil, err
		}
		logger, err := do.Invoke[zerolog.Logger](i)
		if err != nil {
			return nil, err
		}
		return NewLoader(fs, scanner, logger), nil
	})
}
