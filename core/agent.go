package core

import (
	"context"
	"time"
)

// State is an agent lifecycle state. Transitions follow the fixed machine
//
//	INITIALIZED → STARTING → RUNNING ⇄ PAUSED
//	RUNNING → STOPPING → STOPPED (→ STARTING on restart)
//
// with ERROR reachable from any transition whose hook fails.
type State string

const (
	StateInitialized State = "initialized"
	StateStarting    State = "starting"
	StateRunning     State = "running"
	StatePaused      State = "paused"
	StateStopping    State = "stopping"
	StateStopped     State = "stopped"
	StateError       State = "error"
)

// CanStart reports whether an agent in this state may begin starting.
func (s State) CanStart() bool { return s == StateInitialized || s == StateStopped }

// AgentContext is the mutable runtime record owned by an agent. Exactly one
// exists per agent; it is mutated only by the agent's own lifecycle methods.
type AgentContext struct {
	State     State          `json:"state"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	StoppedAt *time.Time     `json:"stopped_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	LastErr   error          `json:"-"`
}

// Agent is the lifecycle contract every worker in the system implements.
// Concrete variants differ only in which task types they execute and which
// capabilities they advertise.
//
// Lifecycle methods are executed by the agent's owner and are never invoked
// concurrently with themselves for one agent. ProcessEvent is invoked by a
// bus and must isolate its own handler failures.
type Agent interface {
	ID() string
	Name() string
	Description() string
	// Type categorizes the concrete variant ("orchestrator", "knowledge",
	// "code_analysis", ...) and is one of the registry's three indices.
	Type() string
	// Capabilities returns the capability tags this agent advertises for
	// orchestrator discovery.
	Capabilities() []string
	State() State

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause() error
	Resume() error

	// ProcessEvent dispatches ev to the handlers registered for its exact
	// type. Handler failures are logged, never propagated.
	ProcessEvent(ev Event) error
}
