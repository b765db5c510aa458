// Package engine defines the migration engine used for each module along with
// its configuration.
package engine

import (
	"maps"
	"slices"
	"time"

	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/location"
)

const TargetLatest = "latest"

// Configuration is the complete set of options for one engine instance.
type Configuration struct {
	Module     string                 `json:"module,omitempty"`
	DataSource *datasource.DataSource `json:"-"`
	Locations  []string               `json:"locations"`
	Table      string                 `json:"table"`

	Encoding                     string            `json:"encoding"`
	Schemas                      []string          `json:"schemas,omitempty"`
	DefaultSchema                string            `json:"default_schema,omitempty"`
	CreateSchemas                bool              `json:"create_schemas"`
	Tablespace                   string            `json:"tablespace,omitempty"`
	BaselineVersion              string            `json:"baseline_version"`
	BaselineDescription          string            `json:"baseline_description"`
	BaselineOnMigrate            bool              `json:"baseline_on_migrate"`
	InstalledBy                  string            `json:"installed_by,omitempty"`
	Placeholders                 map[string]string `json:"placeholders,omitempty"`
	PlaceholderPrefix            string            `json:"placeholder_prefix"`
	PlaceholderSuffix            string            `json:"placeholder_suffix"`
	PlaceholderReplacement       bool              `json:"placeholder_replacement"`
	SQLMigrationPrefix           string            `json:"sql_migration_prefix"`
	SQLMigrationSeparator        string            `json:"sql_migration_separator"`
	SQLMigrationSuffixes         []string          `json:"sql_migration_suffixes"`
	RepeatableSQLMigrationPrefix string            `json:"repeatable_sql_migration_prefix"`
	Target                       string            `json:"target"`
	ValidateOnMigrate            bool              `json:"validate_on_migrate"`
	CleanDisabled                bool              `json:"clean_disabled"`
	CleanOnValidationError       bool              `json:"clean_on_validation_error"`
	Group                        bool              `json:"group"`
	Mixed                        bool              `json:"mixed"`
	OutOfOrder                   bool              `json:"out_of_order"`
	IgnoreMissingMigrations      bool              `json:"ignore_missing_migrations"`
	IgnoreFutureMigrations       bool              `json:"ignore_future_migrations"`
	ExecuteInTransaction         bool              `json:"execute_in_transaction"`
	ConnectRetries               int               `json:"connect_retries"`
	ConnectRetriesInterval       time.Duration     `json:"connect_retries_interval"`
	LockRetryCount               int               `json:"lock_retry_count"`

	Callbacks []Callback `json:"-"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Locations:                    []string{"classpath:db/migration"},
		Table:                        "flyway_schema_history",
		Encoding:                     "UTF-8",
		BaselineVersion:              "1",
		BaselineDescription:          "<< Baseline >>",
		PlaceholderPrefix:            "${",
		PlaceholderSuffix:            "}",
		PlaceholderReplacement:       true,
		SQLMigrationPrefix:           "V",
		SQLMigrationSeparator:        "__",
		SQLMigrationSuffixes:         []string{".sql"},
		RepeatableSQLMigrationPrefix: "R",
		Target:                       TargetLatest,
		ValidateOnMigrate:            true,
		CleanDisabled:                true,
		IgnoreFutureMigrations:       true,
		ExecuteInTransaction:         true,
		ConnectRetriesInterval:       120 * time.Second,
		LockRetryCount:               50,
	}
}

// Clone returns a copy that doesn't share slices or maps with c.
func (c Configuration) Clone() Configuration {
	c.Locations = slices.Clone(c.Locations)
	c.Schemas = slices.Clone(c.Schemas)
	c.SQLMigrationSuffixes = slices.Clone(c.SQLMigrationSuffixes)
	c.Placeholders = maps.Clone(c.Placeholders)
	c.Callbacks = slices.Clone(c.Callbacks)
	return c
}

func (c Configuration) VersionedPattern() location.Pattern {
	return location.Pattern{
		Prefix:    c.SQLMigrationPrefix,
		Separator: c.SQLMigrationSeparator,
		Suffixes:  c.SQLMigrationSuffixes,
	}
}

func (c Configuration) RepeatablePattern() location.Pattern {
	return location.Pattern{
		Prefix:    c.RepeatableSQLMigrationPrefix,
		Separator: c.SQLMigrationSeparator,
		Suffixes:  c.SQLMigrationSuffixes,
	}
}

// Schema returns the schema that holds the history table, if any.
func (c Configuration) Schema() string {
	if c.DefaultSchema != "" {
		return c.DefaultSchema
	}
	if len(c.Schemas) > 0 {
		return c.Schemas[0]
	}
	return ""
}
