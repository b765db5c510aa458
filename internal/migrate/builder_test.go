package migrate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/migrate"
	"github.com/pgEdge/modmigrate/internal/placeholder"
	"github.com/pgEdge/modmigrate/internal/utils"
)

func TestBuild(t *testing.T) {
	cfg := testConfig()
	builder := migrate.NewBuilder(cfg, datasource.NewDataSources(cfg))

	t.Run("auth module on h2", func(t *testing.T) {
		ec, err := builder.Build(config.Module{
			Name:      "auth",
			Locations: []string{"classpath:db/migration/{module}/{vendor}"},
			Table:     "flyway_{module}_schema_history",
		})
		require.NoError(t, err)
		assert.Equal(t, "auth", ec.Module)
		assert.Equal(t, []string{"classpath:db/migration/auth/h2"}, ec.Locations)
		assert.Equal(t, "flyway_auth_schema_history", ec.Table)
	})

	t.Run("global defaults", func(t *testing.T) {
		ec, err := builder.Build(config.Module{Name: "billing"})
		require.NoError(t, err)
		assert.Equal(t, []string{"classpath:db/migration/billing/h2"}, ec.Locations)
		assert.Equal(t, "flyway_billing_schema_history", ec.Table)
	})

	t.Run("unset options keep engine defaults", func(t *testing.T) {
		ec, err := builder.Build(config.Module{Name: "billing"})
		require.NoError(t, err)

		expected := engine.DefaultConfiguration()
		assert.Equal(t, expected.Encoding, ec.Encoding)
		assert.Equal(t, expected.SQLMigrationPrefix, ec.SQLMigrationPrefix)
		assert.Equal(t, expected.SQLMigrationSuffixes, ec.SQLMigrationSuffixes)
		assert.Equal(t, expected.ValidateOnMigrate, ec.ValidateOnMigrate)
		assert.Equal(t, expected.ConnectRetriesInterval, ec.ConnectRetriesInterval)
		assert.Nil(t, ec.Placeholders)
	})

	t.Run("set options are copied", func(t *testing.T) {
		module := config.Module{
			Name:                   "billing",
			Encoding:               utils.PointerTo("ISO-8859-1"),
			Schemas:                []string{"billing", "audit"},
			BaselineOnMigrate:      utils.PointerTo(true),
			Placeholders:           map[string]string{"owner": "billing_app"},
			SQLMigrationSuffixes:   []string{".sql", ".pgsql"},
			ValidateOnMigrate:      utils.PointerTo(false),
			Group:                  utils.PointerTo(true),
			ConnectRetries:         utils.PointerTo(3),
			ConnectRetriesInterval: utils.PointerTo("5s"),
		}
		ec, err := builder.Build(module)
		require.NoError(t, err)
		assert.Equal(t, "ISO-8859-1", ec.Encoding)
		assert.Equal(t, []string{"billing", "audit"}, ec.Schemas)
		assert.True(t, ec.BaselineOnMigrate)
		assert.Equal(t, map[string]string{"owner": "billing_app"}, ec.Placeholders)
		assert.Equal(t, []string{".sql", ".pgsql"}, ec.SQLMigrationSuffixes)
		assert.False(t, ec.ValidateOnMigrate)
		assert.True(t, ec.Group)
		assert.Equal(t, 3, ec.ConnectRetries)
		assert.Equal(t, 5*time.Second, ec.ConnectRetriesInterval)

		// The configuration doesn't share state with the module.
		ec.Placeholders["owner"] = "changed"
		assert.Equal(t, "billing_app", module.Placeholders["owner"])
	})

	t.Run("builds are repeatable", func(t *testing.T) {
		module := config.Module{Name: "auth"}
		first, err := builder.Build(module)
		require.NoError(t, err)
		second, err := builder.Build(module)
		require.NoError(t, err)
		assert.Equal(t, first.Locations, second.Locations)
		assert.Equal(t, first.Table, second.Table)
	})
}

func TestBuildDataSource(t *testing.T) {
	t.Run("primary", func(t *testing.T) {
		cfg := testConfig()
		dataSources := datasource.NewDataSources(cfg)

		ec, err := migrate.NewBuilder(cfg, dataSources).Build(config.Module{Name: "auth"})
		require.NoError(t, err)
		assert.Same(t, dataSources.Primary, ec.DataSource)
	})

	t.Run("dedicated migration datasource", func(t *testing.T) {
		cfg := testConfig()
		cfg.MigrationDataSource = config.DataSource{User: "owner", Password: "owner"}
		dataSources := datasource.NewDataSources(cfg)

		ec, err := migrate.NewBuilder(cfg, dataSources).Build(config.Module{Name: "auth"})
		require.NoError(t, err)
		assert.Same(t, dataSources.Dedicated, ec.DataSource)
		assert.Equal(t, "owner", ec.DataSource.User())
	})

	t.Run("module datasource", func(t *testing.T) {
		cfg := testConfig()
		cfg.MigrationDataSource = config.DataSource{User: "owner"}
		dataSources := datasource.NewDataSources(cfg)

		ec, err := migrate.NewBuilder(cfg, dataSources).Build(config.Module{
			Name:      "reports",
			URL:       "jdbc:postgresql://reports:5432/reports",
			InitSQLs:  []string{"SET search_path TO reports", "SET statement_timeout TO 0"},
			Locations: []string{"classpath:db/migration/{module}/{vendor}"},
		})
		require.NoError(t, err)
		assert.NotSame(t, dataSources.Primary, ec.DataSource)
		assert.NotSame(t, dataSources.Dedicated, ec.DataSource)
		assert.Equal(t, "jdbc:postgresql://reports:5432/reports", ec.DataSource.URL())
		assert.Equal(t, "app", ec.DataSource.User())
		assert.Equal(t, []string{"SET search_path TO reports", "SET statement_timeout TO 0"}, ec.DataSource.InitSQL())
		assert.Equal(t, []string{"classpath:db/migration/reports/postgresql"}, ec.Locations)
	})
}

func TestBuildVendorDetection(t *testing.T) {
	cfg := testConfig()
	cfg.DataSource = config.DataSource{}
	builder := migrate.NewBuilder(cfg, datasource.NewDataSources(cfg))

	_, err := builder.Build(config.Module{Name: "auth"})
	assert.ErrorIs(t, err, placeholder.ErrVendorDetection)
	assert.ErrorContains(t, err, `module "auth"`)

	ec, err := builder.Build(config.Module{
		Name:      "auth",
		Locations: []string{"classpath:db/migration/{module}"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"classpath:db/migration/auth"}, ec.Locations)

	cfg = testConfig()
	cfg.DataSource.URL = "jdbc:acme://db/app"
	builder = migrate.NewBuilder(cfg, datasource.NewDataSources(cfg))
	ec, err = builder.Build(config.Module{Name: "auth"})
	require.NoError(t, err)
	assert.Equal(t, []string{"classpath:db/migration/auth/{vendor}"}, ec.Locations)
}
