package core

import "time"

// WorkflowStatus is the workflow state machine: created → running →
// {completed, failed}.
type WorkflowStatus string

const (
	WorkflowCreated   WorkflowStatus = "created"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
)

// Workflow is a named, parameterized composition of tasks tracked to
// completion or failure. It is owned exclusively by the orchestrator that
// created it.
//
// Results is keyed by logical step name and keeps whatever succeeded before
// a failure; a failed workflow never discards partial results.
type Workflow struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Status     WorkflowStatus `json:"status"`
	TaskIDs    []string       `json:"task_ids,omitempty"`
	Results    map[string]any `json:"results,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewWorkflow creates a workflow record in the created state.
func NewWorkflow(workflowType string, params map[string]any) *Workflow {
	now := time.Now().UTC()
	return &Workflow{
		ID:         NewID(),
		Type:       workflowType,
		Parameters: params,
		Status:     WorkflowCreated,
		Results:    make(map[string]any),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch bumps UpdatedAt, preserving the UpdatedAt >= CreatedAt invariant.
func (w *Workflow) Touch() { w.UpdatedAt = time.Now().UTC() }
