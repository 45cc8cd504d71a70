package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCompletedAtTracksTerminalStatus(t *testing.T) {
	task := NewTask(TaskAnalyzeCode, "", nil, 1, "orch", "worker")
	assert.Equal(t, TaskPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.False(t, task.Status.IsTerminal())

	task.Status = TaskProcessing
	assert.Nil(t, task.CompletedAt)

	task.Complete(TaskCompleted, map[string]any{"findings": 3}, "")
	require.NotNil(t, task.CompletedAt)
	assert.True(t, task.Status.IsTerminal())
	assert.Equal(t, 3, task.Result["findings"])
}

func TestTaskCompleteFailedKeepsError(t *testing.T) {
	task := NewTask("bogus", "", nil, 0, "orch", "worker")
	task.Complete(TaskFailed, nil, "unknown task type: bogus")
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, "unknown task type: bogus", task.Error)
}

func TestWorkflowTouchMonotonic(t *testing.T) {
	wf := NewWorkflow("vulnerability_assessment", map[string]any{"query": "xss"})
	assert.Equal(t, WorkflowCreated, wf.Status)
	assert.False(t, wf.UpdatedAt.Before(wf.CreatedAt))

	wf.Touch()
	assert.False(t, wf.UpdatedAt.Before(wf.CreatedAt))
}

func TestStateCanStart(t *testing.T) {
	assert.True(t, StateInitialized.CanStart())
	assert.True(t, StateStopped.CanStart())
	assert.False(t, StateRunning.CanStart())
	assert.False(t, StateError.CanStart())
}
