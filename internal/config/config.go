package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// CurrentVersion is the only configuration schema version understood by this
// build.
const CurrentVersion = 1

const (
	DefaultModuleLocation = "classpath:db/migration/{module}/{vendor}"
	DefaultModuleTable    = "flyway_{module}_schema_history"
	DefaultRenameSuffix   = ".back"
)

var moduleNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type Logging struct {
	Level  string `koanf:"level" json:"level,omitempty"`
	Pretty bool   `koanf:"pretty" json:"pretty,omitempty"`
}

func (l Logging) validate() []error {
	var errs []error
	if _, err := zerolog.ParseLevel(l.Level); err != nil {
		errs = append(errs, fmt.Errorf("level: invalid log level %q: %w", l.Level, err))
	}
	return errs
}

var loggingDefault = Logging{
	Level: "info",
}

const (
	DriverPgx     = "pgx"
	DriverPQ      = "postgres"
	DriverMySQL   = "mysql"
	DriverSQLite3 = "sqlite3"
)

var supportedDrivers = []string{DriverPgx, DriverPQ, DriverMySQL, DriverSQLite3}

// DataSource holds the connection parameters for a database. An empty driver
// means the driver is picked from the URL.
type DataSource struct {
	URL      string   `koanf:"url" json:"url,omitempty"`
	User     string   `koanf:"user" json:"user,omitempty"`
	Password string   `koanf:"password" json:"password,omitempty"`
	Driver   string   `koanf:"driver" json:"driver,omitempty"`
	InitSQLs []string `koanf:"init_sqls" json:"init_sqls,omitempty"`
}

// IsSet returns true when the datasource declares its own connection, i.e.
// a URL or a user.
func (d DataSource) IsSet() bool {
	return d.URL != "" || d.User != ""
}

// WithFallback fills the URL, user and password from fallback when they're
// not set on d.
func (d DataSource) WithFallback(fallback DataSource) DataSource {
	if d.URL == "" {
		d.URL = fallback.URL
	}
	if d.User == "" {
		d.User = fallback.User
	}
	if d.Password == "" {
		d.Password = fallback.Password
	}
	if d.Driver == "" {
		d.Driver = fallback.Driver
	}
	return d
}

func (d DataSource) validate() []error {
	var errs []error
	if d.Driver != "" && !slices.Contains(supportedDrivers, d.Driver) {
		errs = append(errs, fmt.Errorf("driver: unsupported driver %q", d.Driver))
	}
	return errs
}

// Module describes one logical migration unit with its own locations and
// schema history table. Optional engine settings are pointers so that unset
// values keep the engine defaults.
type Module struct {
	Name          string   `koanf:"name" json:"name,omitempty"`
	Enabled       *bool    `koanf:"enabled" json:"enabled,omitempty"`
	CheckLocation *bool    `koanf:"check_location" json:"check_location,omitempty"`
	Locations     []string `koanf:"locations" json:"locations,omitempty"`
	Table         string   `koanf:"table" json:"table,omitempty"`

	URL      string   `koanf:"url" json:"url,omitempty"`
	User     string   `koanf:"user" json:"user,omitempty"`
	Password string   `koanf:"password" json:"password,omitempty"`
	Driver   string   `koanf:"driver" json:"driver,omitempty"`
	InitSQLs []string `koanf:"init_sqls" json:"init_sqls,omitempty"`

	Encoding                     *string           `koanf:"encoding" json:"encoding,omitempty"`
	Schemas                      []string          `koanf:"schemas" json:"schemas,omitempty"`
	DefaultSchema                *string           `koanf:"default_schema" json:"default_schema,omitempty"`
	CreateSchemas                *bool             `koanf:"create_schemas" json:"create_schemas,omitempty"`
	Tablespace                   *string           `koanf:"tablespace" json:"tablespace,omitempty"`
	BaselineVersion              *string           `koanf:"baseline_version" json:"baseline_version,omitempty"`
	BaselineDescription          *string           `koanf:"baseline_description" json:"baseline_description,omitempty"`
	BaselineOnMigrate            *bool             `koanf:"baseline_on_migrate" json:"baseline_on_migrate,omitempty"`
	InstalledBy                  *string           `koanf:"installed_by" json:"installed_by,omitempty"`
	Placeholders                 map[string]string `koanf:"placeholders" json:"placeholders,omitempty"`
	PlaceholderPrefix            *string           `koanf:"placeholder_prefix" json:"placeholder_prefix,omitempty"`
	PlaceholderSuffix            *string           `koanf:"placeholder_suffix" json:"placeholder_suffix,omitempty"`
	PlaceholderReplacement       *bool             `koanf:"placeholder_replacement" json:"placeholder_replacement,omitempty"`
	SQLMigrationPrefix           *string           `koanf:"sql_migration_prefix" json:"sql_migration_prefix,omitempty"`
	SQLMigrationSeparator        *string           `koanf:"sql_migration_separator" json:"sql_migration_separator,omitempty"`
	SQLMigrationSuffixes         []string          `koanf:"sql_migration_suffixes" json:"sql_migration_suffixes,omitempty"`
	RepeatableSQLMigrationPrefix *string           `koanf:"repeatable_sql_migration_prefix" json:"repeatable_sql_migration_prefix,omitempty"`
	Target                       *string           `koanf:"target" json:"target,omitempty"`
	ValidateOnMigrate            *bool             `koanf:"validate_on_migrate" json:"validate_on_migrate,omitempty"`
	CleanDisabled                *bool             `koanf:"clean_disabled" json:"clean_disabled,omitempty"`
	CleanOnValidationError       *bool             `koanf:"clean_on_validation_error" json:"clean_on_validation_error,omitempty"`
	Group                        *bool             `koanf:"group" json:"group,omitempty"`
	Mixed                        *bool             `koanf:"mixed" json:"mixed,omitempty"`
	OutOfOrder                   *bool             `koanf:"out_of_order" json:"out_of_order,omitempty"`
	IgnoreMissingMigrations      *bool             `koanf:"ignore_missing_migrations" json:"ignore_missing_migrations,omitempty"`
	IgnoreFutureMigrations       *bool             `koanf:"ignore_future_migrations" json:"ignore_future_migrations,omitempty"`
	ExecuteInTransaction         *bool             `koanf:"execute_in_transaction" json:"execute_in_transaction,omitempty"`
	ConnectRetries               *int              `koanf:"connect_retries" json:"connect_retries,omitempty"`
	ConnectRetriesInterval       *string           `koanf:"connect_retries_interval" json:"connect_retries_interval,omitempty"`
	LockRetryCount               *int              `koanf:"lock_retry_count" json:"lock_retry_count,omitempty"`
}

func (m Module) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// ShouldCheckLocation returns the module-level check_location setting, or
// the given default when the module doesn't set it.
func (m Module) ShouldCheckLocation(def bool) bool {
	if m.CheckLocation == nil {
		return def
	}
	return *m.CheckLocation
}

// DataSource returns the module's own connection parameters.
func (m Module) DataSource() DataSource {
	return DataSource{
		URL:      m.URL,
		User:     m.User,
		Password: m.Password,
		Driver:   m.Driver,
		InitSQLs: m.InitSQLs,
	}
}

func (m Module) validate() []error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name: cannot be empty"))
	} else if !moduleNamePattern.MatchString(m.Name) {
		errs = append(errs, fmt.Errorf("name: invalid module name %q, must start with a letter and contain only letters, digits and underscores", m.Name))
	}
	errs = append(errs, m.DataSource().validate()...)
	if m.ConnectRetriesInterval != nil {
		if _, err := time.ParseDuration(*m.ConnectRetriesInterval); err != nil {
			errs = append(errs, fmt.Errorf("connect_retries_interval: %w", err))
		}
	}
	if m.ConnectRetries != nil && *m.ConnectRetries < 0 {
		errs = append(errs, errors.New("connect_retries: cannot be negative"))
	}
	if m.SQLMigrationSeparator != nil && *m.SQLMigrationSeparator == "" {
		errs = append(errs, errors.New("sql_migration_separator: cannot be empty"))
	}
	return errs
}

type Strategy string

const (
	// StrategyDefault migrates each module directly and stops at the first
	// failure.
	StrategyDefault Strategy = "default"
	// StrategyHousekeeping logs migration failures instead of returning them
	// and cleans up applied scripts afterwards.
	StrategyHousekeeping Strategy = "housekeeping"
)

type Migration struct {
	Modular         bool     `koanf:"modular" json:"modular,omitempty"`
	Enabled         bool     `koanf:"enabled" json:"enabled,omitempty"`
	Strategy        Strategy `koanf:"strategy" json:"strategy,omitempty"`
	Order           int      `koanf:"order" json:"order,omitempty"`
	CheckLocation   bool     `koanf:"check_location" json:"check_location,omitempty"`
	Locations       []string `koanf:"locations" json:"locations,omitempty"`
	Table           string   `koanf:"table" json:"table,omitempty"`
	ResourceRoot    string   `koanf:"resource_root" json:"resource_root,omitempty"`
	IgnoreMigration bool     `koanf:"ignore_migration" json:"ignore_migration,omitempty"`
	ClearMigrated   bool     `koanf:"clear_migrated" json:"clear_migrated,omitempty"`
	RenameMigrated  bool     `koanf:"rename_migrated" json:"rename_migrated,omitempty"`
	RenameSuffix    string   `koanf:"rename_suffix" json:"rename_suffix,omitempty"`
	Modules         []Module `koanf:"modules" json:"modules,omitempty"`
}

func (m Migration) validate() []error {
	var errs []error
	switch m.Strategy {
	case StrategyDefault, StrategyHousekeeping:
	default:
		errs = append(errs, fmt.Errorf("strategy: unsupported strategy %q", m.Strategy))
	}
	if m.ResourceRoot == "" {
		errs = append(errs, errors.New("resource_root: cannot be empty"))
	}
	if m.RenameMigrated && m.RenameSuffix == "" {
		errs = append(errs, errors.New("rename_suffix: cannot be empty when rename_migrated is enabled"))
	}
	if !m.Modular {
		return errs
	}
	if len(m.Modules) == 0 {
		errs = append(errs, errors.New("modules: at least one module is required when modular is enabled"))
	}
	for idx, module := range m.Modules {
		for _, err := range module.validate() {
			errs = append(errs, fmt.Errorf("modules[%d].%w", idx, err))
		}
	}
	return errs
}

var migrationDefault = Migration{
	Enabled:       true,
	Strategy:      StrategyDefault,
	CheckLocation: true,
	Locations:     []string{DefaultModuleLocation},
	Table:         DefaultModuleTable,
	ResourceRoot:  ".",
	RenameSuffix:  DefaultRenameSuffix,
}

type Config struct {
	Version             int        `koanf:"version" json:"version,omitempty"`
	Logging             Logging    `koanf:"logging" json:"logging,omitzero"`
	DataSource          DataSource `koanf:"datasource" json:"datasource,omitzero"`
	MigrationDataSource DataSource `koanf:"migration_datasource" json:"migration_datasource,omitzero"`
	Migration           Migration  `koanf:"migration" json:"migration,omitzero"`
}

func (c Config) Validate() error {
	var errs []error
	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("version: unsupported config version %d, expected %d", c.Version, CurrentVersion))
	}
	for _, err := range c.Logging.validate() {
		errs = append(errs, fmt.Errorf("logging.%w", err))
	}
	for _, err := range c.DataSource.validate() {
		errs = append(errs, fmt.Errorf("datasource.%w", err))
	}
	for _, err := range c.MigrationDataSource.validate() {
		errs = append(errs, fmt.Errorf("migration_datasource.%w", err))
	}
	for _, err := range c.Migration.validate() {
		errs = append(errs, fmt.Errorf("migration.%w", err))
	}
	return errors.Join(errs...)
}

func DefaultConfig() Config {
	return Config{
		Version:   CurrentVersion,
		Logging:   loggingDefault,
		Migration: migrationDefault,
	}
}
