package core

import "time"

// EventType tags an event with its position in the closed event hierarchy.
// The hierarchy is flat with a single root:
//
//	event
//	├── event.lifecycle
//	├── event.communication
//	├── event.task.assignment
//	└── event.task.result
//
// Subtype relationships are encoded in an explicit lookup table rather than
// derived through reflection, so routing stays a couple of map lookups.
type EventType string

const (
	// TypeEvent is the root of the hierarchy. Subscribing to it observes
	// every event published on a bus.
	TypeEvent EventType = "event"
	// TypeLifecycle marks agent lifecycle transitions (created, starting,
	// started, stopping, stopped, paused, resumed, error).
	TypeLifecycle EventType = "event.lifecycle"
	// TypeCommunication marks generic agent-to-agent messages carrying a
	// message_type discriminator in Metadata.
	TypeCommunication EventType = "event.communication"
	// TypeTaskAssignment marks a task being handed to a receiving agent.
	TypeTaskAssignment EventType = "event.task.assignment"
	// TypeTaskResult marks a terminal task outcome reported to the sender.
	TypeTaskResult EventType = "event.task.result"
)

// supertypes is the explicit supertype chain for covariant subscriber
// matching. The root has no entry.
var supertypes = map[EventType]EventType{
	TypeLifecycle:      TypeEvent,
	TypeCommunication:  TypeEvent,
	TypeTaskAssignment: TypeEvent,
	TypeTaskResult:     TypeEvent,
}

// Supertype returns the immediate supertype of t and whether one exists.
func (t EventType) Supertype() (EventType, bool) {
	s, ok := supertypes[t]
	return s, ok
}

// Is reports whether t is the given type or one of its subtypes, walking the
// supertype chain. This is the covariance test used by bus implementations:
// a subscriber registered for TypeEvent matches every event type.
func (t EventType) Is(other EventType) bool {
	for cur := t; ; {
		if cur == other {
			return true
		}
		next, ok := cur.Supertype()
		if !ok {
			return false
		}
		cur = next
	}
}

// LifecyclePhase identifies which lifecycle transition an event records.
type LifecyclePhase string

const (
	PhaseCreated  LifecyclePhase = "created"
	PhaseStarting LifecyclePhase = "starting"
	PhaseStarted  LifecyclePhase = "started"
	PhaseStopping LifecyclePhase = "stopping"
	PhaseStopped  LifecyclePhase = "stopped"
	PhasePaused   LifecyclePhase = "paused"
	PhaseResumed  LifecyclePhase = "resumed"
	PhaseError    LifecyclePhase = "error"
)

// LifecycleDetail is the payload attached to event.lifecycle events.
type LifecycleDetail struct {
	Phase LifecyclePhase `json:"phase"`
	State State          `json:"state"`
	Error string         `json:"error,omitempty"`
}

// AssignmentDetail is the payload attached to event.task.assignment events.
// It carries everything the receiving agent needs to reconstruct its own
// copy of the task; the two parties never share mutable state.
type AssignmentDetail struct {
	TaskID      string         `json:"task_id"`
	TaskType    string         `json:"task_type"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    int            `json:"priority"`
}

// ResultDetail is the payload attached to event.task.result events.
type ResultDetail struct {
	TaskID string         `json:"task_id"`
	Status TaskStatus     `json:"status"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Event is the primary unit of communication between agents. After
// publication it must be treated as immutable: subscribers that need to
// retain one should copy it rather than mutate shared maps.
//
// Exactly one of the payload pointers is non-nil for subtype events; all are
// nil for a bare communication-free root event. The Type tag is
// authoritative for routing, the payload pointers for data access.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Sender    string         `json:"sender"`
	Target    string         `json:"target,omitempty"`
	Message   string         `json:"message,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	Lifecycle  *LifecycleDetail  `json:"lifecycle,omitempty"`
	Assignment *AssignmentDetail `json:"assignment,omitempty"`
	Result     *ResultDetail     `json:"result,omitempty"`
}

// NewEvent creates a bare event of the given type authored by sender.
// Prefer the semantic constructors below for the concrete subtypes.
func NewEvent(t EventType, sender string) Event {
	return Event{
		ID:        NewID(),
		Type:      t,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// NewLifecycleEvent records a lifecycle transition of the sending agent.
// err may be nil; it is only recorded for PhaseError events.
func NewLifecycleEvent(sender string, phase LifecyclePhase, state State, err error) Event {
	e := NewEvent(TypeLifecycle, sender)
	d := &LifecycleDetail{Phase: phase, State: state}
	if err != nil {
		d.Error = err.Error()
	}
	e.Lifecycle = d
	return e
}

// NewCommunicationEvent creates a generic agent-to-agent message. The
// messageType discriminator is stored under Metadata["message_type"] and is
// what communication handlers dispatch on.
func NewCommunicationEvent(sender, target, messageType, message string, metadata map[string]any) Event {
	e := NewEvent(TypeCommunication, sender)
	e.Target = target
	e.Message = message
	e.Metadata = map[string]any{"message_type": messageType}
	for k, v := range metadata {
		e.Metadata[k] = v
	}
	return e
}

// NewTaskAssignmentEvent announces a task addressed to the receiving agent.
// The task's parameter bag is referenced, not copied; callers must not
// mutate it after publishing.
func NewTaskAssignmentEvent(sender, target string, task *Task) Event {
	e := NewEvent(TypeTaskAssignment, sender)
	e.Target = target
	e.Assignment = &AssignmentDetail{
		TaskID:      task.ID,
		TaskType:    task.Type,
		Description: task.Description,
		Parameters:  task.Parameters,
		Priority:    task.Priority,
	}
	return e
}

// NewTaskResultEvent reports a terminal task outcome back to the assigning
// agent. status must be one of the terminal task statuses.
func NewTaskResultEvent(sender, target, taskID string, status TaskStatus, result map[string]any, errMsg string) Event {
	e := NewEvent(TypeTaskResult, sender)
	e.Target = target
	e.Result = &ResultDetail{
		TaskID: taskID,
		Status: status,
		Result: result,
		Error:  errMsg,
	}
	return e
}
