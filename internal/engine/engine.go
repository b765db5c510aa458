package engine

import (
	"context"
	"time"
)

// Engine applies the pending migrations for a single configuration.
type Engine interface {
	Configuration() Configuration
	Migrate(ctx context.Context) (*Result, error)
}

// Loader validates a configuration and creates an engine for it. Loading
// doesn't connect to the database.
type Loader interface {
	Load(cfg Configuration) (Engine, error)
}

type LoaderFunc func(cfg Configuration) (Engine, error)

func (f LoaderFunc) Load(cfg Configuration) (Engine, error) {
	return f(cfg)
}

// Customizer adjusts a configuration before it's loaded.
type Customizer interface {
	Customize(cfg *Configuration)
}

type CustomizerFunc func(cfg *Configuration)

func (f CustomizerFunc) Customize(cfg *Configuration) {
	f(cfg)
}

type MigrationType string

const (
	MigrationTypeVersioned  MigrationType = "versioned"
	MigrationTypeRepeatable MigrationType = "repeatable"
	MigrationTypeBaseline   MigrationType = "baseline"
)

type AppliedMigration struct {
	Type        MigrationType `json:"type"`
	Version     string        `json:"version,omitempty"`
	Description string        `json:"description"`
	Script      string        `json:"script,omitempty"`
	Checksum    int64         `json:"checksum,omitempty"`
	Duration    time.Duration `json:"duration"`
}

type Result struct {
	Module             string             `json:"module,omitempty"`
	Table              string             `json:"table"`
	InitialVersion     string             `json:"initial_version,omitempty"`
	TargetVersion      string             `json:"target_version,omitempty"`
	MigrationsExecuted int                `json:"migrations_executed"`
	Migrations         []AppliedMigration `json:"migrations,omitempty"`
	Warnings           []string           `json:"warnings,omitempty"`
	// UpToDate holds the paths of the local scripts that the schema history
	// covers after a successful run. Scripts that were skipped, e.g. past the
	// target version, are left out.
	UpToDate []string `json:"up_to_date,omitempty"`
}
