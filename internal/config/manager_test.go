package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/utils"
)

func TestManager(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		manager := config.NewManager()
		require.NoError(t, manager.Load())

		cfg := manager.Config()
		assert.Equal(t, config.CurrentVersion, cfg.Version)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.False(t, cfg.Migration.Modular)
		assert.True(t, cfg.Migration.Enabled)
		assert.True(t, cfg.Migration.CheckLocation)
		assert.Equal(t, config.StrategyDefault, cfg.Migration.Strategy)
		assert.Equal(t, []string{config.DefaultModuleLocation}, cfg.Migration.Locations)
		assert.Equal(t, config.DefaultModuleTable, cfg.Migration.Table)
		assert.Equal(t, config.DefaultRenameSuffix, cfg.Migration.RenameSuffix)
	})

	t.Run("struct source overrides defaults", func(t *testing.T) {
		user := config.Config{
			DataSource: config.DataSource{
				URL: "postgres://localhost:5432/app",
			},
			Migration: config.Migration{
				Modular: true,
				Modules: []config.Module{
					{Name: "auth"},
					{
						Name:          "billing",
						Enabled:       utils.PointerTo(false),
						CheckLocation: utils.PointerTo(false),
						Locations:     []string{"filesystem:/srv/billing"},
					},
				},
			},
		}

		manager := config.NewManager(structSource(t, user))
		require.NoError(t, manager.Load())

		assert.Equal(t, defaultWithOverrides(t, user), manager.Config())
		modules := manager.Config().Migration.Modules
		require.Len(t, modules, 2)
		assert.True(t, modules[0].IsEnabled())
		assert.True(t, modules[0].ShouldCheckLocation(true))
		assert.False(t, modules[1].IsEnabled())
		assert.False(t, modules[1].ShouldCheckLocation(true))
	})

	t.Run("yaml file source", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "modmigrate.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
version: 1
logging:
  level: debug
datasource:
  url: jdbc:h2:mem:app
migration:
  modular: true
  clear_migrated: true
  modules:
    - name: auth
      locations:
        - classpath:db/migration/{module}/{vendor}
      table: flyway_{module}_schema_history
      placeholders:
        owner: app
      connect_retries: 3
      connect_retries_interval: 2s
    - name: billing
      url: jdbc:postgresql://db:5432/billing
      user: billing
      init_sqls:
        - SET search_path TO billing
`), 0o644))

		manager := config.NewManager(config.NewFileSource(path))
		require.NoError(t, manager.Load())

		cfg := manager.Config()
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "jdbc:h2:mem:app", cfg.DataSource.URL)
		assert.True(t, cfg.Migration.ClearMigrated)
		require.Len(t, cfg.Migration.Modules, 2)

		auth := cfg.Migration.Modules[0]
		assert.Equal(t, "auth", auth.Name)
		assert.Equal(t, []string{"classpath:db/migration/{module}/{vendor}"}, auth.Locations)
		assert.Equal(t, map[string]string{"owner": "app"}, auth.Placeholders)
		require.NotNil(t, auth.ConnectRetries)
		assert.Equal(t, 3, *auth.ConnectRetries)
		require.NotNil(t, auth.ConnectRetriesInterval)
		assert.Equal(t, "2s", *auth.ConnectRetriesInterval)
		assert.Nil(t, auth.Encoding)

		billing := cfg.Migration.Modules[1]
		assert.True(t, billing.DataSource().IsSet())
		assert.Equal(t, []string{"SET search_path TO billing"}, billing.InitSQLs)
	})

	t.Run("env source", func(t *testing.T) {
		t.Setenv("MODMIGRATE_MIGRATION__STRATEGY", "housekeeping")
		t.Setenv("MODMIGRATE_MIGRATION__RENAME_SUFFIX", ".done")

		manager := config.NewManager(config.NewEnvVarSource())
		require.NoError(t, manager.Load())

		assert.Equal(t, config.StrategyHousekeeping, manager.Config().Migration.Strategy)
		assert.Equal(t, ".done", manager.Config().Migration.RenameSuffix)
	})

	t.Run("flag source", func(t *testing.T) {
		newFlags := func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("modmigrate", pflag.ContinueOnError)
			flags.StringP("logging.level", "l", "", "")
			flags.BoolP("logging.pretty", "p", false, "")
			flags.String("migration.resource-root", "", "")
			return flags
		}

		t.Run("unset flags keep defaults", func(t *testing.T) {
			flags := newFlags()
			require.NoError(t, flags.Parse(nil))

			manager := config.NewManager(config.NewEnvVarSource(), config.NewPFlagSource(flags))
			require.NoError(t, manager.Load())
			assert.Equal(t, ".", manager.Config().Migration.ResourceRoot)
			assert.Equal(t, "info", manager.Config().Logging.Level)
		})

		t.Run("set flags override", func(t *testing.T) {
			t.Setenv("MODMIGRATE_LOGGING__LEVEL", "warn")
			flags := newFlags()
			require.NoError(t, flags.Parse([]string{"--migration.resource-root", "/srv/app", "-l", "debug"}))

			manager := config.NewManager(config.NewEnvVarSource(), config.NewPFlagSource(flags))
			require.NoError(t, manager.Load())
			assert.Equal(t, "/srv/app", manager.Config().Migration.ResourceRoot)
			assert.Equal(t, "debug", manager.Config().Logging.Level)
		})
	})

	t.Run("invalid user-specified config", func(t *testing.T) {
		user := config.Config{
			Logging: config.Logging{Level: "loud"},
			Migration: config.Migration{
				Modular:  true,
				Strategy: "parallel",
				Modules: []config.Module{
					{},
					{Name: "billing-v2"},
					{Name: "auth", Driver: "oracle", ConnectRetriesInterval: utils.PointerTo("soon")},
				},
			},
		}

		err := config.NewManager(structSource(t, user)).Load()
		assert.ErrorContains(t, err, "logging.level: invalid log level")
		assert.ErrorContains(t, err, `migration.strategy: unsupported strategy "parallel"`)
		assert.ErrorContains(t, err, "migration.modules[0].name: cannot be empty")
		assert.ErrorContains(t, err, `migration.modules[1].name: invalid module name "billing-v2"`)
		assert.ErrorContains(t, err, `migration.modules[2].driver: unsupported driver "oracle"`)
		assert.ErrorContains(t, err, "migration.modules[2].connect_retries_interval")
	})

	t.Run("modular requires modules", func(t *testing.T) {
		user := config.Config{Migration: config.Migration{Modular: true}}

		err := config.NewManager(structSource(t, user)).Load()
		assert.ErrorContains(t, err, "at least one module is required")
	})
}

func TestDataSourceWithFallback(t *testing.T) {
	primary := config.DataSource{
		URL:      "postgres://primary:5432/app",
		User:     "app",
		Password: "secret",
	}

	ds := config.DataSource{User: "billing"}.WithFallback(primary)

	assert.Equal(t, config.DataSource{
		URL:      "postgres://primary:5432/app",
		User:     "billing",
		Password: "secret",
	}, ds)
}

func structSource(t *testing.T, cfg config.Config) *config.Source {
	t.Helper()

	source, err := config.NewStructSource(cfg)
	require.NoError(t, err)

	return source
}

func defaultWithOverrides(t *testing.T, overrides config.Config) config.Config {
	t.Helper()

	k := koanf.New(".")
	require.NoError(t, config.LoadStruct(k, config.DefaultConfig()))
	require.NoError(t, config.LoadStruct(k, overrides))

	var merged config.Config
	require.NoError(t, k.Unmarshal("", &merged))

	return merged
}
