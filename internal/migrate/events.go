package migrate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MigratedEvent is published once after every run, including runs that were
// stopped by a failure.
type MigratedEvent struct {
	RunID       uuid.UUID  `json:"run_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	Outcomes    []*Outcome `json:"outcomes"`
	Error       string     `json:"error,omitempty"`
}

func (e *MigratedEvent) Successful() bool {
	if e.Error != "" {
		return false
	}
	for _, o := range e.Outcomes {
		if !o.Successful {
			return false
		}
	}
	return true
}

type Listener interface {
	OnMigrated(ctx context.Context, event *MigratedEvent) error
}

type ListenerFunc func(ctx context.Context, event *MigratedEvent) error

func (f ListenerFunc) OnMigrated(ctx context.Context, event *MigratedEvent) error {
	return f(ctx, event)
}

// Publisher delivers events to listeners synchronously, in subscription order.
// Listener errors are logged.
type Publisher struct {
	mu        sync.RWMutex
	listeners []Listener
	logger    zerolog.Logger
}

func NewPublisher(logger zerolog.Logger) *Publisher {
	return &Publisher{
		logger: logger.With().Str("component", "migration_events").Logger(),
	}
}

func (p *Publisher) Subscribe(listeners ...Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listeners = append(p.listeners, listeners...)
}

func (p *Publisher) Publish(ctx context.Context, event *MigratedEvent) {
	p.mu.RLock()
	listeners := p.listeners
	p.mu.RUnlock()

	for _, l := range listeners {
		if err := l.OnMigrated(ctx, event); err != nil {
			p.logger.Warn().
				Err(err).
				Stringer("run_id", event.RunID).
				Msg("migrated event listener failed")
		}
	}
}
