package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine/sqlmigrator"
	"github.com/pgEdge/modmigrate/internal/filesystem"
	"github.com/pgEdge/modmigrate/internal/housekeeping"
	"github.com/pgEdge/modmigrate/internal/location"
	"github.com/pgEdge/modmigrate/internal/logging"
	"github.com/pgEdge/modmigrate/internal/migrate"
)

var (
	configPath string
	logger     *zerolog.Logger
)

func newRootCmd(i *do.Injector) *cobra.Command {
	return &cobra.Command{
		Use:   "modmigrate",
		Short: "Modular database schema migrations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			// Source order determines precedence. The last source loaded will
			// override any previous values.
			var sources []*config.Source
			if configPath != "" {
				sources = append(sources, config.NewFileSource(configPath))
			}
			sources = append(sources,
				config.NewEnvVarSource(),
				config.NewPFlagSource(cmd.Flags()),
			)

			config.Provide(i, sources...)
			logging.Provide(i)
			filesystem.Provide(i)
			datasource.Provide(i)
			location.Provide(i)
			sqlmigrator.Provide(i)
			housekeeping.Provide(i)
			migrate.Provide(i, migrate.Extensions{})

			l, err := do.Invoke[zerolog.Logger](i)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = &l

			return nil
		},
	}
}

func Execute() {
	i := do.New()
	rootCmd := newRootCmd(i)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config-path", "c", "", "Path to a JSON or YAML config file.")
	rootCmd.PersistentFlags().StringP("logging.level", "l", "", "The logging level, e.g. 'debug', 'info', 'error', etc.")
	rootCmd.PersistentFlags().BoolP("logging.pretty", "p", false, "Use pretty logging instead of JSON logging.")
	rootCmd.PersistentFlags().String("migration.resource-root", "", "Directory that classpath: locations are resolved against.")

	rootCmd.AddCommand(
		newMigrateCommand(i),
		newPlanCommand(i),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			// The logger is uninitialized when config loading fails. In this
			// case we'll use our fallback logger.
			logging.Fatal(err, "command failed")
		} else {
			logger.Fatal().
				Err(err).
				Msg("command failed")
		}
	}
}
