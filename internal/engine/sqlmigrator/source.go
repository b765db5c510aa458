package sqlmigrator

import (
	"context"

	"github.com/aatuh/migrator"

	"github.com/pgEdge/modmigrate/internal/engine"
)

var _ migrator.MigrationSource = (*scriptSource)(nil)

// scriptSource hands already loaded scripts to the migrator. Each migration
// starts with a hook step that fires the per-migration callbacks.
type scriptSource struct {
	scripts       []script
	migrationName string
	history       *historyManager
	cfg           engine.Configuration
}

func (s *scriptSource) LoadMigrations() ([]migrator.Migration, error) {
	migrations := make([]migrator.Migration, 0, len(s.scripts))
	for _, sc := range s.scripts {
		s.history.track(s.migrationName, sc)

		version := sc.version
		before := migrator.NewHookMigrationStep().WithUpHook(func(ctx context.Context, _ migrator.Executor) error {
			s.history.start(s.migrationName, version)
			return engine.Fire(ctx, s.cfg.Callbacks, engine.EventBeforeEachMigrate, s.cfg)
		})
		after := migrator.NewHookMigrationStep().WithUpHook(func(ctx context.Context, _ migrator.Executor) error {
			return engine.Fire(ctx, s.cfg.Callbacks, engine.EventAfterEachMigrate, s.cfg)
		})
		mig := migrator.NewMigration(sc.version, sc.description).
			WithUpSteps([]migrator.MigrationStep{
				before,
				migrator.NewSQLMigrationStep(sc.sql),
				after,
			})
		migrations = append(migrations, *mig)
	}
	return migrations, nil
}
