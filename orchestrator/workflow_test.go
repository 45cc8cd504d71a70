package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rysweet/skwaq-sub005/agent"
	"github.com/rysweet/skwaq-sub005/bus"
	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/executor"
	"github.com/rysweet/skwaq-sub005/registry"
)

func awaitWorkflow(t *testing.T, o *Orchestrator, workflowID string) core.Workflow {
	t.Helper()
	var wf core.Workflow
	require.Eventually(t, func() bool {
		var err error
		wf, err = o.WorkflowStatus(workflowID)
		if err != nil {
			return false
		}
		return wf.Status == core.WorkflowCompleted || wf.Status == core.WorkflowFailed
	}, 5*time.Second, 10*time.Millisecond, "workflow never reached a terminal status")
	return wf
}

func startWorker(t *testing.T, newFn func() (*agent.Worker, error)) *agent.Worker {
	t.Helper()
	w, err := newFn()
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	return w
}

func assessmentExecutors() (knowledge, analysis, critique *executor.Registry) {
	knowledge = executor.NewRegistry(map[string]executor.Func{
		core.TaskRetrieveKnowledge: func(_ context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"background": params["query"]}, nil
		},
	})
	analysis = executor.NewRegistry(map[string]executor.Func{
		core.TaskAnalyzeCode: func(_ context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"findings": []any{"buffer overflow in parse()"}}, nil
		},
	})
	critique = executor.NewRegistry(map[string]executor.Func{
		core.TaskCritiqueAnalysis: func(_ context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"verdict": "plausible", "reviewed": params["analysis"] != nil}, nil
		},
	})
	return knowledge, analysis, critique
}

func TestVulnerabilityAssessmentWorkflow(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()
	knowledgeExecs, analysisExecs, critiqueExecs := assessmentExecutors()

	startWorker(t, func() (*agent.Worker, error) { return agent.NewKnowledgeAgent("knowledge", b, reg, knowledgeExecs) })
	startWorker(t, func() (*agent.Worker, error) { return agent.NewCodeAnalysisAgent("analysis", b, reg, analysisExecs) })
	startWorker(t, func() (*agent.Worker, error) { return agent.NewCriticAgent("critic", b, reg, critiqueExecs) })

	o := startedOrchestrator(t, b, reg, WithTaskTimeout(2*time.Second))

	id := o.CreateWorkflow(WorkflowVulnerabilityAssessment, map[string]any{"query": "heap corruption", "repository": "git://example/repo"})
	wf := awaitWorkflow(t, o, id)

	assert.Equal(t, core.WorkflowCompleted, wf.Status)
	assert.Empty(t, wf.Error)
	assert.Len(t, wf.TaskIDs, 3)

	knowledge, ok := wf.Results["knowledge"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "heap corruption", knowledge["background"])

	analysis, ok := wf.Results["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"buffer overflow in parse()"}, analysis["findings"])

	critique, ok := wf.Results["critique"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "plausible", critique["verdict"])
	assert.Equal(t, true, critique["reviewed"])
}

func TestVulnerabilityAssessmentFailsFastWithoutAnalysisAgent(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()
	knowledgeExecs, _, _ := assessmentExecutors()

	startWorker(t, func() (*agent.Worker, error) { return agent.NewKnowledgeAgent("knowledge", b, reg, knowledgeExecs) })

	o := startedOrchestrator(t, b, reg)

	id := o.CreateWorkflow(WorkflowVulnerabilityAssessment, map[string]any{"query": "q"})
	wf := awaitWorkflow(t, o, id)

	assert.Equal(t, core.WorkflowFailed, wf.Status)
	assert.Equal(t, "no code analysis agent available", wf.Error)
	// Capability resolution precedes assignment, so nothing was dispatched.
	assert.Empty(t, wf.TaskIDs)
	assert.Empty(t, wf.Results)
}

func TestVulnerabilityAssessmentKeepsPartialResults(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()
	knowledgeExecs, _, _ := assessmentExecutors()

	brokenAnalysis := executor.NewRegistry(map[string]executor.Func{
		core.TaskAnalyzeCode: func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New("clone failed")
		},
	})

	startWorker(t, func() (*agent.Worker, error) { return agent.NewKnowledgeAgent("knowledge", b, reg, knowledgeExecs) })
	startWorker(t, func() (*agent.Worker, error) { return agent.NewCodeAnalysisAgent("analysis", b, reg, brokenAnalysis) })

	o := startedOrchestrator(t, b, reg, WithTaskTimeout(2*time.Second))

	id := o.CreateWorkflow(WorkflowVulnerabilityAssessment, map[string]any{"query": "q"})
	wf := awaitWorkflow(t, o, id)

	assert.Equal(t, core.WorkflowFailed, wf.Status)
	assert.Contains(t, wf.Error, "clone failed")
	// The sibling step's result survives the failure.
	assert.Contains(t, wf.Results, "knowledge")
	assert.NotContains(t, wf.Results, "critique")
}

func TestFactVerificationWorkflow(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()

	checkExecs := executor.NewRegistry(map[string]executor.Func{
		core.TaskCheckFacts: func(_ context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"confirmed": []any{"claim-1"}}, nil
		},
	})
	verifyExecs := executor.NewRegistry(map[string]executor.Func{
		core.TaskVerifyFindings: func(_ context.Context, params map[string]any) (map[string]any, error) {
			facts, _ := params["facts"].(map[string]any)
			return map[string]any{"verified": facts != nil}, nil
		},
	})

	startWorker(t, func() (*agent.Worker, error) { return agent.NewFactCheckerAgent("checker", b, reg, checkExecs) })
	startWorker(t, func() (*agent.Worker, error) { return agent.NewVerifierAgent("verifier", b, reg, verifyExecs) })

	o := startedOrchestrator(t, b, reg, WithTaskTimeout(2*time.Second))

	id := o.CreateWorkflow(WorkflowFactVerification, map[string]any{"claims": []any{"claim-1"}})
	wf := awaitWorkflow(t, o, id)

	assert.Equal(t, core.WorkflowCompleted, wf.Status)
	assert.Len(t, wf.TaskIDs, 2)

	verification, ok := wf.Results["verification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, verification["verified"])
}

func TestUnknownWorkflowTypeFails(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()
	o := startedOrchestrator(t, b, reg)

	id := o.CreateWorkflow("no_such_workflow", nil)
	wf := awaitWorkflow(t, o, id)

	assert.Equal(t, core.WorkflowFailed, wf.Status)
	assert.Contains(t, wf.Error, "unknown workflow type")
}

func TestRegisterCustomWorkflow(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()
	o := startedOrchestrator(t, b, reg)

	o.RegisterWorkflow("custom", func(_ context.Context, wf *core.Workflow) error {
		o.storeResult(wf, "custom", map[string]any{"ran": true})
		return nil
	})

	id := o.CreateWorkflow("custom", nil)
	wf := awaitWorkflow(t, o, id)

	assert.Equal(t, core.WorkflowCompleted, wf.Status)
	result, ok := wf.Results["custom"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["ran"])
}

func TestWorkflowPanicIsIsolated(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()
	o := startedOrchestrator(t, b, reg)

	o.RegisterWorkflow("panicky", func(context.Context, *core.Workflow) error {
		panic("step exploded")
	})

	id := o.CreateWorkflow("panicky", nil)
	wf := awaitWorkflow(t, o, id)

	assert.Equal(t, core.WorkflowFailed, wf.Status)
	assert.Contains(t, wf.Error, "step exploded")
	// The orchestrator itself is unharmed.
	assert.Equal(t, core.StateRunning, o.State())
}

func TestWorkflowStatusUnknownID(t *testing.T) {
	b := bus.NewInMemoryBus()
	reg := registry.New()
	o := startedOrchestrator(t, b, reg)

	_, err := o.WorkflowStatus("missing")
	assert.Error(t, err)
}
