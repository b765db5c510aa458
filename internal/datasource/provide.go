package datasource

import (
	"errors"

	"github.com/samber/do"

	"github.com/pgEdge/modmigrate/internal/config"
)

// DataSources holds the application's primary datasource and, when
// configured, a dedicated datasource for running migrations.
type DataSources struct {
	Primary   *DataSource
	Dedicated *DataSource
}

// Default returns the dedicated datasource if there is one, otherwise the
// primary datasource.
func (d *DataSources) Default() *DataSource {
	if d.Dedicated != nil {
		return d.Dedicated
	}
	return d.Primary
}

// Shutdown implements do.Shutdownable.
func (d *DataSources) Shutdown() error {
	var errs []error
	if d.Primary != nil {
		errs = append(errs, d.Primary.Close())
	}
	if d.Dedicated != nil {
		errs = append(errs, d.Dedicated.Close())
	}
	return errors.Join(errs...)
}

func Provide(i *do.Injector) {
	provideDataSources(i)
}

func provideDataSources(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*DataSources, error) {
		cfg, err := do.Invoke[config.Config](i)
		if err != nil {
			return nil, err
		}
		return NewDataSources(cfg), nil
	})
}

func NewDataSources(cfg config.Config) *DataSources {
	sources := &DataSources{
		Primary: New(cfg.DataSource),
	}
	if cfg.MigrationDataSource.IsSet() {
		sources.Dedicated = New(cfg.MigrationDataSource.WithFallback(cfg.DataSource))
	}
	return sources
}
