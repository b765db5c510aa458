package engine

import "context"

type Event string

const (
	EventBeforeMigrate     Event = "beforeMigrate"
	EventAfterMigrate      Event = "afterMigrate"
	EventAfterMigrateError Event = "afterMigrateError"
	EventBeforeEachMigrate Event = "beforeEachMigrate"
	EventAfterEachMigrate  Event = "afterEachMigrate"
)

// Callback receives engine lifecycle events. An error returned from a before
// event aborts the migration.
type Callback interface {
	Handle(ctx context.Context, event Event, cfg Configuration) error
}

type CallbackFunc func(ctx context.Context, event Event, cfg Configuration) error

func (f CallbackFunc) Handle(ctx context.Context, event Event, cfg Configuration) error {
	return f(ctx, event, cfg)
}

// Fire delivers the event to every callback in order and stops at the first
// error.
func Fire(ctx context.Context, callbacks []Callback, event Event, cfg Configuration) error {
	for _, cb := range callbacks {
		if err := cb.Handle(ctx, event, cfg); err != nil {
			return err
		}
	}
	return nil
}
