package migrate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgEdge/modmigrate/internal/config"
	"github.com/pgEdge/modmigrate/internal/datasource"
	"github.com/pgEdge/modmigrate/internal/engine"
	"github.com/pgEdge/modmigrate/internal/location"
	"github.com/pgEdge/modmigrate/internal/placeholder"
	"github.com/pgEdge/modmigrate/internal/version"
)

// PrimaryModule is the name of the single module that's migrated when modular
// migrations are disabled.
const PrimaryModule = "primary"

var (
	ErrInvalidState  = errors.New("invalid orchestrator state")
	ErrInvalidModule = errors.New("invalid module")
)

type State int

const (
	StateUninitialized State = iota
	StateBuilt
	StateMigrated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilt:
		return "built"
	case StateMigrated:
		return "migrated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Extensions are supplied by the host application. Configurations are
// migrated after the property modules. Callbacks and customizers are applied
// to every configuration in order. A nil strategy selects the strategy from
// the migration configuration.
type Extensions struct {
	Configurations []engine.Configuration
	Callbacks      []engine.Callback
	Customizers    []engine.Customizer
	Strategy       Strategy
	Listeners      []Listener
}

// Orchestrator builds one engine per module and migrates them in order.
type Orchestrator struct {
	cfg         config.Config
	builder     *Builder
	dataSources *datasource.DataSources
	loader      engine.Loader
	exists      location.Predicate
	publisher   *Publisher
	strategy    Strategy
	ext         Extensions
	logger      zerolog.Logger

	mu      sync.Mutex
	state   State
	engines []engine.Engine
	created []*datasource.DataSource
	last    *MigratedEvent
}

func NewOrchestrator(
	cfg config.Config,
	builder *Builder,
	dataSources *datasource.DataSources,
	loader engine.Loader,
	exists location.Predicate,
	publisher *Publisher,
	strategy Strategy,
	ext Extensions,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		builder:     builder,
		dataSources: dataSources,
		loader:      loader,
		exists:      exists,
		publisher:   publisher,
		strategy:    strategy,
		ext:         ext,
		logger: logger.With().
			Str("component", "migration_orchestrator").
			Logger(),
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Order is the startup priority of the orchestrator.
func (o *Orchestrator) Order() int {
	return o.cfg.Migration.Order
}

// Init builds and migrates every module. It's a no-op when migrations are
// disabled.
func (o *Orchestrator) Init(ctx context.Context) error {
	if !o.cfg.Migration.Enabled {
		o.logger.Info().Msg("migrations are disabled")
		return nil
	}
	if _, err := o.Build(ctx); err != nil {
		return err
	}
	return o.Migrate(ctx)
}

// Build validates the modules and creates their engines. Any error aborts the
// build before engines are returned.
func (o *Orchestrator) Build(ctx context.Context) ([]engine.Engine, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateUninitialized {
		return nil, fmt.Errorf("%w: cannot build when %s", ErrInvalidState, o.state)
	}
	engines, err := o.build(ctx)
	if err != nil {
		if closeErr := o.closeCreated(); closeErr != nil {
			o.logger.Warn().Err(closeErr).Msg("failed to close datasources")
		}
		return nil, err
	}
	o.engines = engines
	o.state = StateBuilt

	return slices.Clone(engines), nil
}

func (o *Orchestrator) modules() []config.Module {
	if o.cfg.Migration.Modular {
		return o.cfg.Migration.Modules
	}
	// Without modules there's a single history table. The module templates
	// only apply when they were configured explicitly.
	primary := config.Module{Name: PrimaryModule}
	defaults := engine.DefaultConfiguration()
	if slices.Equal(o.cfg.Migration.Locations, []string{config.DefaultModuleLocation}) {
		primary.Locations = defaults.Locations
	}
	if o.cfg.Migration.Table == config.DefaultModuleTable {
		primary.Table = defaults.Table
	}
	return []config.Module{primary}
}

func (o *Orchestrator) build(ctx context.Context) ([]engine.Engine, error) {
	modules := o.modules()
	if err := o.validateModules(modules); err != nil {
		return nil, err
	}

	var engines []engine.Engine
	for _, module := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger := o.logger.With().Str("module", module.Name).Logger()
		if !module.IsEnabled() {
			logger.Info().Msg("module is disabled, skipping")
			continue
		}

		ec, err := o.builder.Build(module)
		if err != nil {
			return nil, err
		}
		o.track(ec.DataSource)

		checkLocation := module.ShouldCheckLocation(o.cfg.Migration.CheckLocation)
		if err := location.Check(ec.Locations, o.exists, checkLocation); err != nil {
			return nil, fmt.Errorf("module %q: %w", module.Name, err)
		}
		eng, err := o.load(ec)
		if err != nil {
			return nil, err
		}
		logger.Debug().
			Str("table", ec.Table).
			Strs("locations", ec.Locations).
			Stringer("datasource", ec.DataSource).
			Msg("built module")
		engines = append(engines, eng)
	}

	for _, pc := range o.ext.Configurations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ec, err := o.prepare(pc)
		if err != nil {
			return nil, err
		}
		if err := location.Check(ec.Locations, o.exists, true); err != nil {
			return nil, fmt.Errorf("module %q: %w", ec.Module, err)
		}
		eng, err := o.load(ec)
		if err != nil {
			return nil, err
		}
		engines = append(engines, eng)
	}

	return engines, nil
}

// validateModules requires every module to have a name that's unique among
// the modules that share its datasource.
func (o *Orchestrator) validateModules(modules []config.Module) error {
	seen := map[string]map[string]bool{}
	for idx, module := range modules {
		if module.Name == "" {
			return fmt.Errorf("%w: modules[%d] has no name", ErrInvalidModule, idx)
		}
		key := o.builder.dataSourceKey(module)
		if seen[key] == nil {
			seen[key] = map[string]bool{}
		}
		if seen[key][module.Name] {
			return fmt.Errorf("%w: duplicate module name %q", ErrInvalidModule, module.Name)
		}
		seen[key][module.Name] = true
	}
	return nil
}

// prepare fills in the parts of a host-supplied configuration that depend on
// the environment.
func (o *Orchestrator) prepare(pc engine.Configuration) (engine.Configuration, error) {
	ec := pc.Clone()
	if ec.DataSource == nil {
		ec.DataSource = o.dataSources.Default()
	}
	locations, err := placeholder.ResolveVendor(ec.Locations, ec.DataSource)
	if err != nil {
		return engine.Configuration{}, fmt.Errorf("module %q: %w", ec.Module, err)
	}
	ec.Locations = locations
	ec.Table = placeholder.ResolveTable(ec.Table, ec.Module)
	return ec, nil
}

func (o *Orchestrator) load(ec engine.Configuration) (engine.Engine, error) {
	ec.Callbacks = append(ec.Callbacks, o.ext.Callbacks...)
	for _, c := range o.ext.Customizers {
		c.Customize(&ec)
	}
	eng, err := o.loader.Load(ec)
	if err != nil {
		return nil, fmt.Errorf("module %q: failed to load engine: %w", ec.Module, err)
	}
	return eng, nil
}

// track remembers datasources that were created for a single module, so that
// they can be closed on shutdown.
func (o *Orchestrator) track(ds *datasource.DataSource) {
	if ds == o.dataSources.Primary || ds == o.dataSources.Dedicated {
		return
	}
	if !slices.Contains(o.created, ds) {
		o.created = append(o.created, ds)
	}
}

// Migrate runs every built engine in order. Without a strategy, the first
// failure stops the run and is returned. A MigratedEvent is published after
// the run either way.
func (o *Orchestrator) Migrate(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateBuilt {
		return fmt.Errorf("%w: cannot migrate when %s", ErrInvalidState, o.state)
	}
	o.state = StateMigrated

	// failure to get version info is non-fatal
	versionInfo, _ := version.GetInfo()

	event := &MigratedEvent{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	logger := o.logger.With().Stringer("run_id", event.RunID).Logger()
	logger.Info().
		Int("modules", len(o.engines)).
		Stringer("version", versionInfo).
		Msg("starting migrations")

	var runErr error
	for _, eng := range o.engines {
		outcome, err := o.run(ctx, logger, eng, versionInfo)
		event.Outcomes = append(event.Outcomes, outcome)
		if err != nil {
			logger.Err(err).Msg("migration failed, stopping migrations")
			runErr = err
			break
		}
	}
	event.CompletedAt = time.Now()
	if runErr != nil {
		event.Error = runErr.Error()
	}
	o.last = event
	o.publisher.Publish(ctx, event)

	if runErr == nil {
		logger.Info().
			Dur("duration", event.CompletedAt.Sub(event.StartedAt)).
			Msg("migrations complete")
	}
	return runErr
}

func (o *Orchestrator) run(
	ctx context.Context,
	logger zerolog.Logger,
	eng engine.Engine,
	versionInfo *version.Info,
) (*Outcome, error) {
	cfg := eng.Configuration()
	logger = logger.With().Str("module", cfg.Module).Str("table", cfg.Table).Logger()
	logger.Info().Strs("locations", cfg.Locations).Msg("running migration")

	outcome := &Outcome{
		Module:           cfg.Module,
		Table:            cfg.Table,
		Locations:        cfg.Locations,
		StartedAt:        time.Now(),
		RunByVersionInfo: versionInfo,
	}

	var err error
	if o.strategy != nil {
		err = o.strategy.Migrate(ctx, eng, outcome)
	} else {
		outcome.Result, err = eng.Migrate(ctx)
	}
	outcome.CompletedAt = time.Now()
	if err != nil {
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("module %q: %w", cfg.Module, err)
	}
	outcome.Successful = outcome.Error == ""

	event := logger.Info().Dur("duration", outcome.Duration())
	if outcome.Result != nil {
		event = event.
			Int("applied", outcome.Result.MigrationsExecuted).
			Str("version", outcome.Result.TargetVersion)
	}
	event.Msg("finished migration")

	return outcome, nil
}

// LastEvent returns the event published by the most recent run, if any.
func (o *Orchestrator) LastEvent() *MigratedEvent {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.last
}

// Shutdown closes the datasources that were created for individual modules.
// Shared datasources are left open.
func (o *Orchestrator) Shutdown() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.closeCreated()
}

func (o *Orchestrator) closeCreated() error {
	var errs []error
	for _, ds := range o.created {
		errs = append(errs, ds.Close())
	}
	o.created = nil
	return errors.Join(errs...)
}
