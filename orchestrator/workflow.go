package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/logging"
)

// Built-in workflow type tags.
const (
	// WorkflowVulnerabilityAssessment fans out knowledge retrieval and code
	// analysis concurrently, awaits both, then runs a critique over the
	// combined results.
	WorkflowVulnerabilityAssessment = "vulnerability_assessment"
	// WorkflowFactVerification runs fact checking followed by verification
	// of the confirmed findings, sequentially.
	WorkflowFactVerification = "fact_verification"
)

// WorkflowFunc drives one workflow type. Any returned error (missing
// capability, task failure, timeout) marks the workflow failed; results
// stored before the error remain in the workflow's results map.
type WorkflowFunc func(ctx context.Context, wf *core.Workflow) error

// RegisterWorkflow binds a workflow type tag to its step sequence.
// Registering an existing type replaces it.
func (o *Orchestrator) RegisterWorkflow(workflowType string, fn WorkflowFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workflowDefs[workflowType] = fn
}

// CreateWorkflow stores a new workflow record and schedules its execution on
// a background goroutine without blocking the caller. The workflow id is
// returned immediately; progress is observed via WorkflowStatus.
func (o *Orchestrator) CreateWorkflow(workflowType string, params map[string]any) string {
	wf := core.NewWorkflow(workflowType, params)

	o.mu.Lock()
	o.workflows[wf.ID] = wf
	ctx := o.runCtx
	o.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	go o.executeWorkflow(ctx, wf.ID)
	return wf.ID
}

// WorkflowStatus returns a snapshot of a workflow's record.
func (o *Orchestrator) WorkflowStatus(workflowID string) (core.Workflow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		return core.Workflow{}, fmt.Errorf("unknown workflow %s", workflowID)
	}
	snap := *wf
	snap.TaskIDs = append([]string(nil), wf.TaskIDs...)
	snap.Results = make(map[string]any, len(wf.Results))
	for k, v := range wf.Results {
		snap.Results[k] = v
	}
	return snap, nil
}

// executeWorkflow transitions the workflow to running, dispatches to its
// registered step sequence and converts any error (or panic) into a failed
// status with the error recorded. Errors never escape this method; a
// workflow's failure is isolated from the registry, the bus and every other
// agent.
func (o *Orchestrator) executeWorkflow(ctx context.Context, workflowID string) {
	o.mu.Lock()
	wf, ok := o.workflows[workflowID]
	if !ok {
		o.mu.Unlock()
		return
	}
	wf.Status = core.WorkflowRunning
	wf.Touch()
	fn := o.workflowDefs[wf.Type]
	o.mu.Unlock()

	start := time.Now()
	err := o.runWorkflowFunc(ctx, fn, wf)

	o.mu.Lock()
	if err != nil {
		wf.Status = core.WorkflowFailed
		wf.Error = err.Error()
	} else {
		wf.Status = core.WorkflowCompleted
	}
	wf.Touch()
	steps := len(wf.TaskIDs)
	o.mu.Unlock()

	logging.LogWorkflowExecution(o.Logger(), workflowID, wf.Type, steps, time.Since(start), err)
}

func (o *Orchestrator) runWorkflowFunc(ctx context.Context, fn WorkflowFunc, wf *core.Workflow) (err error) {
	if fn == nil {
		return fmt.Errorf("unknown workflow type %q", wf.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workflow %s panicked: %v", wf.ID, r)
		}
	}()
	return fn(ctx, wf)
}

func (o *Orchestrator) attachTask(wf *core.Workflow, taskID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	wf.TaskIDs = append(wf.TaskIDs, taskID)
	wf.Touch()
}

func (o *Orchestrator) storeResult(wf *core.Workflow, step string, result map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	wf.Results[step] = result
	wf.Touch()
}

// runVulnerabilityAssessment implements the built-in assessment pipeline.
// Both required capabilities are resolved before any task is assigned so a
// missing analysis agent fails the workflow without side effects.
func (o *Orchestrator) runVulnerabilityAssessment(ctx context.Context, wf *core.Workflow) error {
	knowledgeID, err := o.FindAgentByCapability(core.CapabilityKnowledgeRetrieval)
	if err != nil {
		return err
	}
	analysisID, err := o.FindAgentByCapability(core.CapabilityCodeAnalysis)
	if err != nil {
		return err
	}

	query, _ := wf.Parameters["query"].(string)
	knowledgeTask := o.AssignTask(knowledgeID, core.TaskRetrieveKnowledge, "retrieve background knowledge", map[string]any{"query": query}, 2)
	o.attachTask(wf, knowledgeTask)
	analysisTask := o.AssignTask(analysisID, core.TaskAnalyzeCode, "analyze target code", wf.Parameters, 2)
	o.attachTask(wf, analysisTask)

	// Fan-out: await both tasks concurrently, keeping whichever results
	// arrive even if a sibling fails.
	steps := []struct {
		key    string
		taskID string
	}{
		{"knowledge", knowledgeTask},
		{"analysis", analysisTask},
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(steps))
	for _, step := range steps {
		wg.Add(1)
		go func(key, taskID string) {
			defer wg.Done()
			result, waitErr := o.WaitForTask(ctx, taskID, o.taskTimeout)
			if waitErr != nil {
				errCh <- fmt.Errorf("%s step: %w", key, waitErr)
				return
			}
			o.storeResult(wf, key, result)
		}(step.key, step.taskID)
	}
	wg.Wait()
	close(errCh)
	if len(errCh) > 0 {
		return <-errCh
	}

	criticID, err := o.FindAgentByCapability(core.CapabilityCritique)
	if err != nil {
		return err
	}

	status, _ := o.WorkflowStatus(wf.ID)
	critiqueTask := o.AssignTask(criticID, core.TaskCritiqueAnalysis, "critique combined findings", map[string]any{
		"query":     query,
		"knowledge": status.Results["knowledge"],
		"analysis":  status.Results["analysis"],
	}, 3)
	o.attachTask(wf, critiqueTask)

	critique, err := o.WaitForTask(ctx, critiqueTask, o.taskTimeout)
	if err != nil {
		return fmt.Errorf("critique step: %w", err)
	}
	o.storeResult(wf, "critique", critique)
	return nil
}

// runFactVerification implements the sequential fact checking pipeline.
func (o *Orchestrator) runFactVerification(ctx context.Context, wf *core.Workflow) error {
	checkerID, err := o.FindAgentByCapability(core.CapabilityFactChecking)
	if err != nil {
		return err
	}
	verifierID, err := o.FindAgentByCapability(core.CapabilityVerification)
	if err != nil {
		return err
	}

	checkTask := o.AssignTask(checkerID, core.TaskCheckFacts, "check claimed facts", wf.Parameters, 2)
	o.attachTask(wf, checkTask)
	checked, err := o.WaitForTask(ctx, checkTask, o.taskTimeout)
	if err != nil {
		return fmt.Errorf("fact check step: %w", err)
	}
	o.storeResult(wf, "facts", checked)

	verifyTask := o.AssignTask(verifierID, core.TaskVerifyFindings, "verify confirmed findings", map[string]any{"facts": checked}, 2)
	o.attachTask(wf, verifyTask)
	verified, err := o.WaitForTask(ctx, verifyTask, o.taskTimeout)
	if err != nil {
		return fmt.Errorf("verification step: %w", err)
	}
	o.storeResult(wf, "verification", verified)
	return nil
}
