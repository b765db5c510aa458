package location

import (
	"github.com/samber/do"
	"github.com/spf13/afero"

	"github.com/pgEdge/modmigrate/internal/config"
)

func Provide(i *do.Injector) {
	provideLoader(i)
	provideScanner(i)
}

func provideLoader(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Loader, error) {
		cfg, err := do.Invoke[config.Config](i)
		if err != nil {
			return nil, err
		}
		fs, err := do.Invoke[afero.Fs](i)
		if err != nil {
			return nil, err
		}
		return NewLoader(fs, cfg.Migration.ResourceRoot), nil
	})
}

func provideScanner(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Scanner, error) {
		loader, err := do.Invoke[*Loader](i)
		if err != nil {
			return nil, err
		}
		return NewScanner(loader), nil
	})
}
