package migrate

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/placeholder"
)

// Builder turns module properties into engine configurations. It doesn't
// perform any I/O and can be called any number of times.
type Builder struct {
	cfg         config.Config
	dataSources *datasource.DataSources
}

func NewBuilder(cfg config.Config, dataSources *datasource.DataSources) *Builder {
	return &Builder{
		cfg:         cfg,
		dataSources: dataSources,
	}
}

func (b *Builder) Build(module config.Module) (engine.Configuration, error) {
	ec := engine.DefaultConfiguration()
	ec.Module = module.Name
	ec.DataSource = b.dataSource(module)

	locations := module.Locations
	if len(locations) == 0 {
		locations = b.cfg.Migration.Locations
	}
	locations = placeholder.ResolveModule(locations, module.Name)
	locations, err := placeholder.ResolveVendor(locations, ec.DataSource)
	if err != nil {
		return engine.Configuration{}, fmt.Errorf("module %q: %w", module.Name, err)
	}
	ec.Locations = slices.Clone(locations)

	table := module.Table
	if table == "" {
		table = b.cfg.Migration.Table
	}
	ec.Table = placeholder.ResolveTable(table, module.Name)

	if err := applyOptions(&ec, module); err != nil {
		return engine.Configuration{}, fmt.Errorf("module %q: %w", module.Name, err)
	}

	return ec, nil
}

// dataSource picks the module's own connection when it declares one, then the
// dedicated migration datasource, then the primary datasource.
func (b *Builder) dataSource(module config.Module) *datasource.DataSource {
	props := module.DataSource()
	if props.IsSet() {
		return datasource.New(props.WithFallback(b.cfg.DataSource))
	}
	return b.dataSources.Default()
}

// dataSourceKey identifies the database a module migrates without creating a
// datasource for it.
func (b *Builder) dataSourceKey(module config.Module) string {
	props := module.DataSource()
	if props.IsSet() {
		return datasource.New(props.WithFallback(b.cfg.DataSource)).Key()
	}
	return b.dataSources.Default().Key()
}

func applyOptions(ec *engine.Configuration, m config.Module) error {
	setString(&ec.Encoding, m.Encoding)
	if m.Schemas != nil {
		ec.Schemas = slices.Clone(m.Schemas)
	}
	setString(&ec.DefaultSchema, m.DefaultSchema)
	setBool(&ec.CreateSchemas, m.CreateSchemas)
	setString(&ec.Tablespace, m.Tablespace)
	setString(&ec.BaselineVersion, m.BaselineVersion)
	setString(&ec.BaselineDescription, m.BaselineDescription)
	setBool(&ec.BaselineOnMigrate, m.BaselineOnMigrate)
	setString(&ec.InstalledBy, m.InstalledBy)
	if m.Placeholders != nil {
		ec.Placeholders = maps.Clone(m.Placeholders)
	}
	setString(&ec.PlaceholderPrefix, m.PlaceholderPrefix)
	setString(&ec.PlaceholderSuffix, m.PlaceholderSuffix)
	setBool(&ec.PlaceholderReplacement, m.PlaceholderReplacement)
	setString(&ec.SQLMigrationPrefix, m.SQLMigrationPrefix)
	setString(&ec.SQLMigrationSeparator, m.SQLMigrationSeparator)
	if m.SQLMigrationSuffixes != nil {
		ec.SQLMigrationSuffixes = slices.Clone(m.SQLMigrationSuffixes)
	}
	setString(&ec.RepeatableSQLMigrationPrefix, m.RepeatableSQLMigrationPrefix)
	setString(&ec.Target, m.Target)
	setBool(&ec.ValidateOnMigrate, m.ValidateOnMigrate)
	setBool(&ec.CleanDisabled, m.CleanDisabled)
	setBool(&ec.CleanOnValidationError, m.CleanOnValidationError)
	setBool(&ec.Group, m.Group)
	setBool(&ec.Mixed, m.Mixed)
	setBool(&ec.OutOfOrder, m.OutOfOrder)
	setBool(&ec.IgnoreMissingMigrations, m.IgnoreMissingMigrations)
	setBool(&ec.IgnoreFutureMigrations, m.IgnoreFutureMigrations)
	setBool(&ec.ExecuteInTransaction, m.ExecuteInTransaction)
	if m.ConnectRetries != nil {
		ec.ConnectRetries = *m.ConnectRetries
	}
	if m.ConnectRetriesInterval != nil {
		interval, err := time.ParseDuration(*m.ConnectRetriesInterval)
		if err != nil {
			return fmt.Errorf("invalid connect_retries_interval: %w", err)
		}
		ec.ConnectRetriesInterval = interval
	}
	if m.LockRetryCount != nil {
		ec.LockRetryCount = *m.LockRetryCount
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
