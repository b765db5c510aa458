// Package sqlmigrator implements the migration engine on top of
// github.com/aatuh/migrator. Versioned scripts are applied in version order
// and repeatable scripts are reapplied whenever their checksum changes.
package sqlmigrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aatuh/migrator"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/location"
	"github.com/pgEdge/modmigrate/internal/utils"
)

var (
	ErrNoDataSource = errors.New("no datasource configured")
	ErrValidation   = errors.New("migration validation failed")
)

var _ engine.Loader = (*Loader)(nil)

type Loader struct {
	fs      afero.Fs
	scanner *location.Scanner
	logger  zerolog.Logger
}

func NewLoader(fs afero.Fs, scanner *location.Scanner, logger zerolog.Logger) *Loader {
	return &Loader{
		fs:      fs,
		scanner: scanner,
		logger:  logger.With().Str("component", "sqlmigrator").Logger(),
	}
}

// Load reads and validates the scripts for the given configuration.
func (l *Loader) Load(cfg engine.Configuration) (engine.Engine, error) {
	if cfg.DataSource == nil {
		return nil, ErrNoDataSource
	}
	if cfg.Target != "" && cfg.Target != engine.TargetLatest {
		if _, err := strconv.Atoi(cfg.Target); err != nil {
			return nil, fmt.Errorf("%w: target %q", ErrInvalidVersion, cfg.Target)
		}
	}
	if _, err := strconv.Atoi(cfg.BaselineVersion); cfg.BaselineOnMigrate && err != nil {
		return nil, fmt.Errorf("%w: baseline version %q", ErrInvalidVersion, cfg.BaselineVersion)
	}
	versioned, err := loadScripts(l.fs, l.scanner, cfg, engine.MigrationTypeVersioned)
	if err != nil {
		return nil, err
	}
	repeatable, err := loadScripts(l.fs, l.scanner, cfg, engine.MigrationTypeRepeatable)
	if err != nil {
		return nil, err
	}

	table := cfg.Table
	if schema := cfg.Schema(); schema != "" && cfg.DataSource.Vendor() != datasource.VendorSQLite {
		table = schema + "." + table
	}
	name := cfg.Module
	if name == "" {
		name = cfg.Table
	}

	if ignored := ignoredSettings(cfg); len(ignored) > 0 {
		l.logger.Warn().
			Str("module", cfg.Module).
			Strs("settings", ignored).
			Msg("settings are accepted but have no effect")
	}

	l.logger.Debug().
		Str("module", cfg.Module).
		Int("versioned", len(versioned)).
		Int("repeatable", len(repeatable)).
		Msg("loaded migration scripts")

	return &Engine{
		cfg:        cfg,
		table:      table,
		name:       name,
		versioned:  versioned,
		repeatable: repeatable,
		logger:     l.logger.With().Str("module", cfg.Module).Str("table", table).Logger(),
	}, nil
}

// ignoredSettings lists the configured settings that differ from their
// defaults but are not acted on by this engine.
func ignoredSettings(cfg engine.Configuration) []string {
	defaults := engine.DefaultConfiguration()

	var ignored []string
	if cfg.Mixed != defaults.Mixed {
		ignored = append(ignored, "mixed")
	}
	if cfg.CleanDisabled != defaults.CleanDisabled {
		ignored = append(ignored, "clean_disabled")
	}
	if cfg.CleanOnValidationError != defaults.CleanOnValidationError {
		ignored = append(ignored, "clean_on_validation_error")
	}
	if cfg.LockRetryCount != defaults.LockRetryCount {
		ignored = append(ignored, "lock_retry_count")
	}
	return ignored
}

var _ engine.Engine = (*Engine)(nil)

type Engine struct {
	cfg        engine.Configuration
	table      string
	name       string
	versioned  []script
	repeatable []script
	logger     zerolog.Logger
}

func (e *Engine) Configuration() engine.Configuration {
	return e.cfg
}

func (e *Engine) Migrate(ctx context.Context) (*engine.Result, error) {
	if err := engine.Fire(ctx, e.cfg.Callbacks, engine.EventBeforeMigrate, e.cfg); err != nil {
		return nil, fmt.Errorf("%s callback failed: %w", engine.EventBeforeMigrate, err)
	}

	result := &engine.Result{
		Module: e.cfg.Module,
		Table:  e.table,
	}
	if err := e.migrate(ctx, result); err != nil {
		if cbErr := engine.Fire(ctx, e.cfg.Callbacks, engine.EventAfterMigrateError, e.cfg); cbErr != nil {
			e.logger.Warn().Err(cbErr).Msgf("%s callback failed", engine.EventAfterMigrateError)
		}
		return result, err
	}
	if err := engine.Fire(ctx, e.cfg.Callbacks, engine.EventAfterMigrate, e.cfg); err != nil {
		return result, fmt.Errorf("%s callback failed: %w", engine.EventAfterMigrate, err)
	}

	return result, nil
}

func (e *Engine) migrate(ctx context.Context, result *engine.Result) error {
	db, err := e.connect(ctx)
	if err != nil {
		return err
	}
	if err := e.createSchemas(ctx, db); err != nil {
		return err
	}

	history := newHistoryManager(e.cfg.DataSource.Vendor(), e.cfg.Tablespace, e.installedBy())
	defer func() {
		result.Migrations = history.recorded
		for _, m := range history.recorded {
			if m.Type != engine.MigrationTypeBaseline {
				result.MigrationsExecuted++
			}
		}
	}()

	if err := history.EnsureHistoryTable(ctx, db, e.table); err != nil {
		return err
	}
	records, err := history.history(ctx, db, e.table, e.name)
	if err != nil {
		return err
	}
	result.InitialVersion = currentVersion(records)

	if len(records) == 0 && e.cfg.BaselineOnMigrate {
		record, err := e.baseline(ctx, db, history)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	pending, warnings, err := e.pending(records)
	result.Warnings = warnings
	for _, w := range warnings {
		e.logger.Warn().Msg(w)
	}
	if err != nil {
		return err
	}

	if err := e.applyVersioned(ctx, db, history, pending); err != nil {
		return err
	}
	if err := e.applyRepeatable(ctx, db, history); err != nil {
		return err
	}

	result.TargetVersion = result.InitialVersion
	for _, m := range history.recorded {
		if m.Type != engine.MigrationTypeRepeatable {
			result.TargetVersion = m.Version
		}
	}
	result.UpToDate = e.upToDate(records, history.recorded)

	return nil
}

// upToDate returns the paths of the scripts that are recorded in the schema
// history or covered by its baseline. Every repeatable script is current
// after a successful run.
func (e *Engine) upToDate(records []historyRecord, recorded []engine.AppliedMigration) []string {
	applied := make(map[int]bool, len(records)+len(recorded))
	baseline := -1
	for _, r := range records {
		switch n := r.number(); r.kind {
		case engine.MigrationTypeBaseline:
			baseline = max(baseline, n)
		case engine.MigrationTypeVersioned:
			applied[n] = true
		}
	}
	for _, m := range recorded {
		if m.Type == engine.MigrationTypeVersioned {
			n, _ := strconv.Atoi(m.Version)
			applied[n] = true
		}
	}

	var paths []string
	for _, s := range e.versioned {
		if n := s.number(); applied[n] || n <= baseline {
			paths = append(paths, s.path)
		}
	}
	for _, s := range e.repeatable {
		paths = append(paths, s.path)
	}
	return paths
}

func (e *Engine) connect(ctx context.Context) (*sql.DB, error) {
	db, err := e.cfg.DataSource.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open datasource %s: %w", e.cfg.DataSource, err)
	}
	err = utils.Retry(ctx, e.cfg.ConnectRetries+1, time.Second, e.cfg.ConnectRetriesInterval, func() error {
		err := db.PingContext(ctx)
		if datasource.IsPermanentConnectError(err) {
			return utils.Permanent(err)
		}
		if err != nil {
			e.logger.Warn().Err(err).Msg("unable to connect to database")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to datasource %s: %w", e.cfg.DataSource, err)
	}
	return db, nil
}

func (e *Engine) createSchemas(ctx context.Context, db *sql.DB) error {
	if !e.cfg.CreateSchemas {
		return nil
	}
	switch e.cfg.DataSource.Vendor() {
	case datasource.VendorPostgreSQL, datasource.VendorMySQL, datasource.VendorMariaDB:
	default:
		return nil
	}
	schemas := e.cfg.Schemas
	if e.cfg.DefaultSchema != "" {
		schemas = append([]string{e.cfg.DefaultSchema}, schemas...)
	}
	for _, schema := range schemas {
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return fmt.Errorf("failed to create schema %q: %w", schema, err)
		}
	}
	return nil
}

func (e *Engine) installedBy() string {
	if e.cfg.InstalledBy != "" {
		return e.cfg.InstalledBy
	}
	return e.cfg.DataSource.User()
}

func (e *Engine) baseline(ctx context.Context, db *sql.DB, history *historyManager) (historyRecord, error) {
	s := script{
		kind:        engine.MigrationTypeBaseline,
		version:     e.cfg.BaselineVersion,
		description: e.cfg.BaselineDescription,
		name:        e.cfg.BaselineDescription,
	}
	history.track(e.name, s)
	mig := migrator.NewMigration(s.version, s.description)
	if err := history.RecordMigration(ctx, db, e.table, *mig, e.name); err != nil {
		return historyRecord{}, err
	}
	e.logger.Info().Str("version", s.version).Msg("baselined schema history")

	return historyRecord{
		migrationName: e.name,
		version:       s.version,
		description:   s.description,
		kind:          s.kind,
	}, nil
}

// pending compares the loaded scripts against the schema history and returns
// the scripts that still need to be applied.
func (e *Engine) pending(records []historyRecord) ([]script, []string, error) {
	var (
		warnings   []string
		baseline   = -1
		maxApplied = -1
		applied    = make(map[int]historyRecord, len(records))
	)
	for _, r := range records {
		n := r.number()
		applied[n] = r
		if r.kind == engine.MigrationTypeBaseline && n > baseline {
			baseline = n
		}
		if n > maxApplied {
			maxApplied = n
		}
	}
	target := -1
	if e.cfg.Target != "" && e.cfg.Target != engine.TargetLatest {
		target, _ = strconv.Atoi(e.cfg.Target)
	}

	var (
		pending  []script
		errs     []error
		resolved = make(map[int]bool, len(e.versioned))
	)
	for _, s := range e.versioned {
		n := s.number()
		resolved[n] = true
		if r, ok := applied[n]; ok {
			if e.cfg.ValidateOnMigrate && r.kind == engine.MigrationTypeVersioned && r.checksum != s.checksum {
				errs = append(errs, fmt.Errorf("checksum mismatch for migration %s: applied %d, resolved %d", s.version, r.checksum, s.checksum))
			}
			continue
		}
		switch {
		case n <= baseline:
			continue
		case target >= 0 && n > target:
			continue
		case n < maxApplied && !e.cfg.OutOfOrder:
			msg := fmt.Sprintf("resolved migration %s is older than the current version %d and was not applied", s.version, maxApplied)
			if e.cfg.ValidateOnMigrate {
				errs = append(errs, errors.New(msg))
			} else {
				warnings = append(warnings, msg)
			}
			continue
		}
		pending = append(pending, s)
	}

	maxResolved := -1
	if len(e.versioned) > 0 {
		maxResolved = e.versioned[len(e.versioned)-1].number()
	}
	for n, r := range applied {
		if r.kind != engine.MigrationTypeVersioned || resolved[n] {
			continue
		}
		future := n > maxResolved
		ignored := (future && e.cfg.IgnoreFutureMigrations) || (!future && e.cfg.IgnoreMissingMigrations)
		msg := fmt.Sprintf("applied migration %s is not resolved locally", r.version)
		if future {
			msg = fmt.Sprintf("applied migration %s is newer than any resolved migration", r.version)
		}
		if e.cfg.ValidateOnMigrate && !ignored {
			errs = append(errs, errors.New(msg))
		} else {
			warnings = append(warnings, msg)
		}
	}

	if len(errs) > 0 {
		return nil, warnings, fmt.Errorf("%w: %w", ErrValidation, errors.Join(errs...))
	}
	return pending, warnings, nil
}

func (e *Engine) newMigrator(db *sql.DB, history *historyManager, name string, scripts []script, transactional bool) *migrator.Migrator {
	source := &scriptSource{
		scripts:       scripts,
		migrationName: name,
		history:       history,
		cfg:           e.cfg,
	}
	return migrator.NewMigrator(db, e.table, history, name).
		WithSources([]migrator.MigrationSource{source}).
		WithTransactional(transactional)
}

func (e *Engine) applyVersioned(ctx context.Context, db *sql.DB, history *historyManager, pending []script) error {
	if len(pending) == 0 {
		e.logger.Info().Msg("schema is up to date")
		return nil
	}
	if e.cfg.Group {
		recorded := len(history.recorded)
		if err := e.newMigrator(db, history, e.name, pending, true).MigrateUp(ctx, ""); err != nil {
			// The whole group was rolled back.
			history.recorded = history.recorded[:recorded]
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	}
	for _, s := range pending {
		m := e.newMigrator(db, history, e.name, []script{s}, e.cfg.ExecuteInTransaction)
		if err := m.MigrateUp(ctx, ""); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", s.name, err)
		}
		e.logger.Info().Str("version", s.version).Str("script", s.name).Msg("applied migration")
	}
	return nil
}

func (e *Engine) applyRepeatable(ctx context.Context, db *sql.DB, history *historyManager) error {
	for _, s := range e.repeatable {
		name := e.name + ":" + s.description
		before := len(history.recorded)
		m := e.newMigrator(db, history, name, []script{s}, e.cfg.ExecuteInTransaction || e.cfg.Group)
		if err := m.MigrateUp(ctx, ""); err != nil {
			return fmt.Errorf("failed to apply repeatable migration %s: %w", s.name, err)
		}
		if len(history.recorded) > before {
			e.logger.Info().Str("script", s.name).Msg("applied repeatable migration")
		}
	}
	return nil
}

func currentVersion(records []historyRecord) string {
	var (
		current string
		highest = -1
	)
	for _, r := range records {
		if n := r.number(); n > highest {
			highest = n
			current = r.version
		}
	}
	return current
}
