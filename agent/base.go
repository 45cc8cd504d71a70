package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rysweet/skwaq-sub005/bus"
	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/logging"
	"github.com/rysweet/skwaq-sub005/registry"
)

// Options configures a BaseAgent (and, by embedding, every variant).
type Options struct {
	// ID overrides the generated agent id.
	ID string
	// Description is free-form documentation of the agent's purpose.
	Description string
	// ConfigKey is the opaque lookup key into configuration for this agent.
	ConfigKey string
	// Capabilities are the capability tags advertised for discovery.
	Capabilities []string
	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Variant lifecycle hooks. A hook error forces the ERROR state, records
	// the error, emits an ERROR lifecycle event and is returned to the
	// caller.
	OnStart  func(ctx context.Context) error
	OnStop   func(ctx context.Context) error
	OnPause  func() error
	OnResume func() error
}

// WithID overrides the generated agent id.
func WithID(id string) func(o *Options) {
	return func(o *Options) { o.ID = id }
}

// WithDescription sets the agent description.
func WithDescription(desc string) func(o *Options) {
	return func(o *Options) { o.Description = desc }
}

// WithConfigKey sets the configuration lookup key.
func WithConfigKey(key string) func(o *Options) {
	return func(o *Options) { o.ConfigKey = key }
}

// WithCapabilities sets the advertised capability tags.
func WithCapabilities(caps ...string) func(o *Options) {
	return func(o *Options) { o.Capabilities = caps }
}

// WithLogger overrides the default NoOp logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// BaseAgent bundles identity, the lifecycle state machine and event handler
// dispatch. Embed it in concrete variants and supply hooks for
// variant-specific startup/shutdown work.
//
// Lifecycle methods are intended to be called by the agent's single owner;
// the internal mutex protects the state record against concurrent readers
// (bus handlers, registry snapshots), not against racing Start/Stop calls.
type BaseAgent struct {
	id           string
	name         string
	agentType    string
	description  string
	configKey    string
	capabilities []string

	eventBus bus.Bus
	reg      *registry.Registry
	logger   logging.Logger

	mu       sync.Mutex
	agentCtx core.AgentContext
	handlers map[core.EventType][]bus.Handler

	onStart  func(ctx context.Context) error
	onStop   func(ctx context.Context) error
	onPause  func() error
	onResume func() error
}

// New constructs a BaseAgent, registers it with the registry and emits a
// CREATED lifecycle event, all before returning. Agents are destroyed only
// by explicit unregistration.
func New(name, agentType string, b bus.Bus, reg *registry.Registry, optFns ...func(o *Options)) (*BaseAgent, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.ID == "" {
		opts.ID = core.NewID()
	}
	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Agent %s", name)
	}

	a := &BaseAgent{
		id:           opts.ID,
		name:         name,
		agentType:    agentType,
		description:  opts.Description,
		configKey:    opts.ConfigKey,
		capabilities: opts.Capabilities,
		eventBus:     b,
		reg:          reg,
		logger:       opts.Logger,
		agentCtx:     core.AgentContext{State: core.StateInitialized, Metadata: map[string]any{}},
		handlers:     make(map[core.EventType][]bus.Handler),
		onStart:      opts.OnStart,
		onStop:       opts.OnStop,
		onPause:      opts.OnPause,
		onResume:     opts.OnResume,
	}

	if err := reg.Register(a); err != nil {
		return nil, fmt.Errorf("register agent %s: %w", name, err)
	}
	a.publishLifecycle(core.PhaseCreated, core.StateInitialized, nil)
	return a, nil
}

// ID returns the globally unique agent id.
func (a *BaseAgent) ID() string { return a.id }

// Name returns the human-readable name.
func (a *BaseAgent) Name() string { return a.name }

// Description returns the agent's purpose description.
func (a *BaseAgent) Description() string { return a.description }

// Type returns the concrete variant tag.
func (a *BaseAgent) Type() string { return a.agentType }

// ConfigKey returns the opaque configuration lookup key.
func (a *BaseAgent) ConfigKey() string { return a.configKey }

// Capabilities returns the advertised capability tags.
func (a *BaseAgent) Capabilities() []string {
	out := make([]string, len(a.capabilities))
	copy(out, a.capabilities)
	return out
}

// Bus returns the injected event bus.
func (a *BaseAgent) Bus() bus.Bus { return a.eventBus }

// Registry returns the injected agent registry.
func (a *BaseAgent) Registry() *registry.Registry { return a.reg }

// Logger returns the agent's logger.
func (a *BaseAgent) Logger() logging.Logger { return a.logger }

// State returns the current lifecycle state.
func (a *BaseAgent) State() core.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agentCtx.State
}

// Context returns a snapshot of the agent's runtime record.
func (a *BaseAgent) Context() core.AgentContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := a.agentCtx
	snap.Metadata = make(map[string]any, len(a.agentCtx.Metadata))
	for k, v := range a.agentCtx.Metadata {
		snap.Metadata[k] = v
	}
	return snap
}

// SetMetadata stores a key in the agent's runtime metadata map.
func (a *BaseAgent) SetMetadata(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.agentCtx.Metadata[key] = value
}

// Start drives INITIALIZED/STOPPED → STARTING → RUNNING. Calling it from
// any other state logs a warning and is a no-op. The variant start hook
// runs between the STARTING and STARTED events; if it fails the agent lands
// in ERROR and the error is returned.
func (a *BaseAgent) Start(ctx context.Context) error {
	a.mu.Lock()
	if !a.agentCtx.State.CanStart() {
		state := a.agentCtx.State
		a.mu.Unlock()
		a.logger.Warn("start ignored in current state", "agent_id", a.id, "state", string(state))
		return nil
	}
	prev := a.agentCtx.State
	a.agentCtx.State = core.StateStarting
	now := time.Now().UTC()
	a.agentCtx.StartedAt = &now
	a.agentCtx.StoppedAt = nil
	a.agentCtx.LastErr = nil
	a.mu.Unlock()

	a.publishLifecycle(core.PhaseStarting, core.StateStarting, nil)

	if a.onStart != nil {
		if err := a.onStart(ctx); err != nil {
			a.fail(fmt.Errorf("start %s: %w", a.name, err))
			return err
		}
	}

	a.setState(core.StateRunning)
	a.publishLifecycle(core.PhaseStarted, core.StateRunning, nil)
	logging.LogLifecycleTransition(a.logger, a.id, string(prev), string(core.StateRunning), nil)
	return nil
}

// Stop drives RUNNING → STOPPING → STOPPED, mirroring Start. From any other
// state it logs a warning and is a no-op.
func (a *BaseAgent) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.agentCtx.State != core.StateRunning {
		state := a.agentCtx.State
		a.mu.Unlock()
		a.logger.Warn("stop ignored in current state", "agent_id", a.id, "state", string(state))
		return nil
	}
	a.agentCtx.State = core.StateStopping
	now := time.Now().UTC()
	a.agentCtx.StoppedAt = &now
	a.mu.Unlock()

	a.publishLifecycle(core.PhaseStopping, core.StateStopping, nil)

	if a.onStop != nil {
		if err := a.onStop(ctx); err != nil {
			a.fail(fmt.Errorf("stop %s: %w", a.name, err))
			return err
		}
	}

	a.setState(core.StateStopped)
	a.publishLifecycle(core.PhaseStopped, core.StateStopped, nil)
	logging.LogLifecycleTransition(a.logger, a.id, string(core.StateRunning), string(core.StateStopped), nil)
	return nil
}

// Pause moves RUNNING → PAUSED and emits one lifecycle event. From any
// other state it logs a warning and is a no-op.
func (a *BaseAgent) Pause() error {
	a.mu.Lock()
	if a.agentCtx.State != core.StateRunning {
		state := a.agentCtx.State
		a.mu.Unlock()
		a.logger.Warn("pause ignored in current state", "agent_id", a.id, "state", string(state))
		return nil
	}
	a.mu.Unlock()

	if a.onPause != nil {
		if err := a.onPause(); err != nil {
			a.fail(fmt.Errorf("pause %s: %w", a.name, err))
			return err
		}
	}

	a.setState(core.StatePaused)
	a.publishLifecycle(core.PhasePaused, core.StatePaused, nil)
	logging.LogLifecycleTransition(a.logger, a.id, string(core.StateRunning), string(core.StatePaused), nil)
	return nil
}

// Resume moves PAUSED → RUNNING and emits one lifecycle event.
func (a *BaseAgent) Resume() error {
	a.mu.Lock()
	if a.agentCtx.State != core.StatePaused {
		state := a.agentCtx.State
		a.mu.Unlock()
		a.logger.Warn("resume ignored in current state", "agent_id", a.id, "state", string(state))
		return nil
	}
	a.mu.Unlock()

	if a.onResume != nil {
		if err := a.onResume(); err != nil {
			a.fail(fmt.Errorf("resume %s: %w", a.name, err))
			return err
		}
	}

	a.setState(core.StateRunning)
	a.publishLifecycle(core.PhaseResumed, core.StateRunning, nil)
	logging.LogLifecycleTransition(a.logger, a.id, string(core.StatePaused), string(core.StateRunning), nil)
	return nil
}

// RegisterHandler appends a handler for the given exact event type.
// Multiple handlers per type are permitted and all are invoked.
func (a *BaseAgent) RegisterHandler(t core.EventType, h bus.Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[t] = append(a.handlers[t], h)
}

// ProcessEvent dispatches ev to every handler registered for its exact
// type. Handler errors and panics are logged and do not abort dispatch to
// the remaining handlers. The returned error is always nil; the signature
// matches bus.Handler so agents can subscribe themselves directly.
func (a *BaseAgent) ProcessEvent(ev core.Event) error {
	a.mu.Lock()
	registered := a.handlers[ev.Type]
	handlers := make([]bus.Handler, len(registered))
	copy(handlers, registered)
	a.mu.Unlock()

	for _, h := range handlers {
		a.invoke(h, ev)
	}
	return nil
}

func (a *BaseAgent) invoke(h bus.Handler, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("agent handler panicked", "agent_id", a.id, "event_type", string(ev.Type), "panic", fmt.Sprintf("%v", r))
		}
	}()
	if err := h(ev); err != nil {
		a.logger.Error("agent handler failed", "agent_id", a.id, "event_type", string(ev.Type), "error", err)
	}
}

func (a *BaseAgent) setState(s core.State) {
	a.mu.Lock()
	a.agentCtx.State = s
	a.mu.Unlock()
}

func (a *BaseAgent) fail(err error) {
	a.mu.Lock()
	from := a.agentCtx.State
	a.agentCtx.State = core.StateError
	a.agentCtx.LastErr = err
	a.mu.Unlock()
	logging.LogLifecycleTransition(a.logger, a.id, string(from), string(core.StateError), err)
	a.publishLifecycle(core.PhaseError, core.StateError, err)
}

func (a *BaseAgent) publishLifecycle(phase core.LifecyclePhase, state core.State, err error) {
	if pubErr := a.eventBus.Publish(core.NewLifecycleEvent(a.id, phase, state, err)); pubErr != nil {
		a.logger.Warn("publishing lifecycle event", "agent_id", a.id, "phase", string(phase), "error", pubErr)
	}
}
