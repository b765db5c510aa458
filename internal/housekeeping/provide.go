package housekeeping

import (
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/spf13/afero"

	"github.com/pgEdge/modmigrate/internal/location"
)

func Provide(i *do.Injector) {
	provideHousekeeper(i)
}

func provideHousekeeper(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Housekeeper, error) {
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
		return NewHousekeeper(fs, scanner, logger), nil
	})
}
