package core

import "time"

// TaskStatus is the task state machine: pending → processing →
// {completed, failed}.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the status is completed or failed.
func (s TaskStatus) IsTerminal() bool { return s == TaskCompleted || s == TaskFailed }

// Task is a unit of work assigned to an agent. The orchestrator that created
// it and the agent executing it each hold their own copy; the copies are
// reconciled only through assignment and result events, never through shared
// mutable state.
//
// Invariant: CompletedAt is non-nil if and only if Status is terminal.
type Task struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	// Priority is ordinal, higher = more urgent. It is a scheduling hint
	// only; the base design does not run a priority queue.
	Priority    int            `json:"priority"`
	SenderID    string         `json:"sender_id"`
	ReceiverID  string         `json:"receiver_id"`
	Status      TaskStatus     `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	AssignedAt  time.Time      `json:"assigned_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewTask creates a pending task with a fresh id.
func NewTask(taskType, description string, params map[string]any, priority int, senderID, receiverID string) *Task {
	return &Task{
		ID:          NewID(),
		Type:        taskType,
		Description: description,
		Parameters:  params,
		Priority:    priority,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Status:      TaskPending,
		AssignedAt:  time.Now().UTC(),
	}
}

// Complete marks the task terminal with the given outcome, maintaining the
// CompletedAt invariant. errMsg is empty for successful completions.
func (t *Task) Complete(status TaskStatus, result map[string]any, errMsg string) {
	t.Status = status
	t.Result = result
	t.Error = errMsg
	now := time.Now().UTC()
	t.CompletedAt = &now
}
