package migrate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/housekeeping"
)

// Strategy replaces the default migrate call for each engine. The strategy
// decides how failures are handled. It records what it did in the outcome,
// and an error that it returns stops the run.
type Strategy interface {
	Migrate(ctx context.Context, eng engine.Engine, outcome *Outcome) error
}

type StrategyFunc func(ctx context.Context, eng engine.Engine, outcome *Outcome) error

func (f StrategyFunc) Migrate(ctx context.Context, eng engine.Engine, outcome *Outcome) error {
	return f(ctx, eng, outcome)
}

var _ Strategy = (*HousekeepingStrategy)(nil)

// HousekeepingStrategy logs migration failures instead of returning them, and
// clears or renames the applied scripts after a successful migration.
type HousekeepingStrategy struct {
	housekeeper *housekeeping.Housekeeper
	ignore      bool
	mode        housekeeping.Mode
	suffix      string
	logger      zerolog.Logger
}

func NewHousekeepingStrategy(cfg config.Migration, housekeeper *housekeeping.Housekeeper, logger zerolog.Logger) *HousekeepingStrategy {
	return &HousekeepingStrategy{
		housekeeper: housekeeper,
		ignore:      cfg.IgnoreMigration,
		mode:        housekeeping.ModeFor(cfg.ClearMigrated, cfg.RenameMigrated),
		suffix:      cfg.RenameSuffix,
		logger:      logger.With().Str("component", "housekeeping_strategy").Logger(),
	}
}

func (s *HousekeepingStrategy) Migrate(ctx context.Context, eng engine.Engine, outcome *Outcome) error {
	cfg := eng.Configuration()
	logger := s.logger.With().Str("module", cfg.Module).Logger()

	if s.ignore {
		outcome.Skipped = true
		logger.Info().Msg("migration ignored")
		return nil
	}

	logger.Info().Msg("starting migration")
	result, err := eng.Migrate(ctx)
	outcome.Result = result
	if err != nil {
		outcome.Error = err.Error()
		logger.Error().Err(err).Msg("migration failed")
		return nil
	}
	if s.mode != housekeeping.ModeNone && result != nil {
		outcome.Housekeeping = s.housekeeper.Run(cfg, result.UpToDate, s.mode, s.suffix)
	}
	logger.Info().Msg("migration complete")

	return nil
}
