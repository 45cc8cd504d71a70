package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout is wrapped by WaitForTask when a task produces no result within
// the configured interval. The assigned agent keeps running; the timeout is
// the waiter giving up, not a cancellation.
var ErrTimeout = errors.New("timed out waiting for task result")

// ErrUnknownTask is wrapped when waiting on a task id the orchestrator never
// assigned.
var ErrUnknownTask = errors.New("unknown task")

// NoAgentError reports that no registered agent advertises a required
// capability. It aborts the enclosing workflow step synchronously, before
// any task is assigned.
type NoAgentError struct {
	Capability string
}

// Error implements error.
func (e *NoAgentError) Error() string {
	return fmt.Sprintf("no %s agent available", strings.ReplaceAll(e.Capability, "_", " "))
}

// TaskFailedError reports a task that completed with a failed status. The
// failed result payload, if any, is carried along so callers can inspect
// whatever the executor reported.
type TaskFailedError struct {
	TaskID  string
	Message string
	Result  map[string]any
}

// Error implements error.
func (e *TaskFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task %s failed", e.TaskID)
	}
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}
