package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rysweet/skwaq-sub005/agent"
	"github.com/rysweet/skwaq-sub005/bus"
	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/registry"
)

// Options configures an Orchestrator.
type Options struct {
	agent.Options
	// TaskTimeout bounds every WaitForTask call made by workflow steps.
	TaskTimeout time.Duration
}

// WithTaskTimeout overrides the default 30s per-task wait bound.
func WithTaskTimeout(d time.Duration) func(o *Options) {
	return func(o *Options) { o.TaskTimeout = d }
}

// WithAgentOptions applies base agent options to the orchestrator.
func WithAgentOptions(optFns ...func(o *agent.Options)) func(o *Options) {
	return func(o *Options) {
		for _, fn := range optFns {
			fn(&o.Options)
		}
	}
}

type trackedTask struct {
	task *core.Task
	done chan struct{}
}

// Orchestrator is the agent variant that assigns tasks and executes
// workflows. See the package documentation for the ownership model.
type Orchestrator struct {
	*agent.BaseAgent

	taskTimeout time.Duration

	mu           sync.Mutex
	tasks        map[string]*trackedTask
	workflows    map[string]*core.Workflow
	capabilities map[string]string // capability -> agent id, first discovered wins
	agentStatus  map[string]string
	workflowDefs map[string]WorkflowFunc
	subIDs       []string
	runCtx       context.Context
	cancelRun    context.CancelFunc
}

// New constructs an orchestrator, registers it with the registry and emits
// its CREATED lifecycle event. Discovery and bus subscriptions happen on
// Start, so worker agents should be constructed first.
func New(name string, b bus.Bus, reg *registry.Registry, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{TaskTimeout: 30 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	o := &Orchestrator{
		taskTimeout:  opts.TaskTimeout,
		tasks:        make(map[string]*trackedTask),
		workflows:    make(map[string]*core.Workflow),
		capabilities: make(map[string]string),
		agentStatus:  make(map[string]string),
		workflowDefs: make(map[string]WorkflowFunc),
	}

	baseOpts := opts.Options
	if len(baseOpts.Capabilities) == 0 {
		baseOpts.Capabilities = []string{core.CapabilityOrchestration}
	}
	userOnStart := baseOpts.OnStart
	userOnStop := baseOpts.OnStop
	baseOpts.OnStart = func(ctx context.Context) error {
		if userOnStart != nil {
			if err := userOnStart(ctx); err != nil {
				return err
			}
		}
		return o.startCoordination()
	}
	baseOpts.OnStop = func(ctx context.Context) error {
		o.stopCoordination()
		if userOnStop != nil {
			return userOnStop(ctx)
		}
		return nil
	}

	base, err := agent.New(name, agent.TypeOrchestrator, b, reg, func(ao *agent.Options) { *ao = baseOpts })
	if err != nil {
		return nil, err
	}
	o.BaseAgent = base
	o.RegisterHandler(core.TypeTaskResult, o.handleTaskResult)
	o.RegisterHandler(core.TypeCommunication, o.handleCommunication)
	o.RegisterWorkflow(WorkflowVulnerabilityAssessment, o.runVulnerabilityAssessment)
	o.RegisterWorkflow(WorkflowFactVerification, o.runFactVerification)
	return o, nil
}

func (o *Orchestrator) startCoordination() error {
	o.discover()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runCtx, o.cancelRun = context.WithCancel(context.Background())
	o.subIDs = []string{
		o.Bus().Subscribe(core.TypeTaskResult, o.ProcessEvent),
		o.Bus().Subscribe(core.TypeCommunication, o.ProcessEvent),
	}
	return nil
}

func (o *Orchestrator) stopCoordination() {
	o.mu.Lock()
	subIDs := o.subIDs
	cancel := o.cancelRun
	o.subIDs = nil
	o.cancelRun = nil
	o.mu.Unlock()

	for _, id := range subIDs {
		o.Bus().Unsubscribe(id)
	}
	if cancel != nil {
		cancel()
	}
}

// discover walks the registry in registration order and records each
// capability's first advertiser. Re-running discovery never displaces an
// earlier winner.
func (o *Orchestrator) discover() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range o.Registry().All() {
		if a.ID() == o.ID() {
			continue
		}
		for _, capability := range a.Capabilities() {
			if _, ok := o.capabilities[capability]; !ok {
				o.capabilities[capability] = a.ID()
			}
		}
	}
	o.Logger().Debug("capability discovery complete", "agent_id", o.ID(), "capabilities", len(o.capabilities))
}

// FindAgentByCapability returns the id of the first agent discovered with
// the given capability, or a *NoAgentError.
func (o *Orchestrator) FindAgentByCapability(capability string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, ok := o.capabilities[capability]
	if !ok {
		return "", &NoAgentError{Capability: capability}
	}
	return id, nil
}

// CapabilityMap returns a snapshot of the capability → agent id map.
func (o *Orchestrator) CapabilityMap() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.capabilities))
	for k, v := range o.capabilities {
		out[k] = v
	}
	return out
}

// AgentStatus returns the last status another agent reported via a
// status_update communication.
func (o *Orchestrator) AgentStatus(agentID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.agentStatus[agentID]
	return s, ok
}

// AssignTask creates a pending task, records it and announces it on the bus
// addressed to receiverID. It returns the new task id immediately; callers
// that need the outcome follow up with WaitForTask.
func (o *Orchestrator) AssignTask(receiverID, taskType, description string, params map[string]any, priority int) string {
	task := core.NewTask(taskType, description, params, priority, o.ID(), receiverID)

	o.mu.Lock()
	o.tasks[task.ID] = &trackedTask{task: task, done: make(chan struct{})}
	o.mu.Unlock()

	if err := o.Bus().Publish(core.NewTaskAssignmentEvent(o.ID(), receiverID, task)); err != nil {
		o.Logger().Error("publishing task assignment", "task_id", task.ID, "receiver_id", receiverID, "error", err)
	}
	o.Logger().Debug("task assigned", "task_id", task.ID, "task_type", taskType, "receiver_id", receiverID, "priority", priority)
	return task.ID
}

// Task returns a snapshot of the orchestrator's copy of a task.
func (o *Orchestrator) Task(taskID string) (core.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tasks[taskID]
	if !ok {
		return core.Task{}, false
	}
	return *t.task, true
}

// WaitForTask blocks until the task reaches a terminal status, the timeout
// elapses or ctx is cancelled. A completed task yields its result payload; a
// failed task yields a *TaskFailedError carrying the payload; a timeout
// yields an ErrTimeout-wrapped error. The design assumes a single waiter
// per task id.
func (o *Orchestrator) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (map[string]any, error) {
	o.mu.Lock()
	tracked, ok := o.tasks[taskID]
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-tracked.done:
	case <-timer.C:
		return nil, fmt.Errorf("task %s: %w after %s", taskID, ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for task %s: %w", taskID, ctx.Err())
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	task := tracked.task
	if task.Status == core.TaskFailed {
		return nil, &TaskFailedError{TaskID: taskID, Message: task.Error, Result: task.Result}
	}
	return task.Result, nil
}

// handleTaskResult reconciles an incoming result event with the
// orchestrator's copy of the task and resolves its completion channel.
// Results for unknown or already-terminal tasks are logged and ignored.
func (o *Orchestrator) handleTaskResult(ev core.Event) error {
	d := ev.Result
	if d == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	tracked, ok := o.tasks[d.TaskID]
	if !ok {
		o.Logger().Debug("result for unknown task ignored", "task_id", d.TaskID, "sender", ev.Sender)
		return nil
	}
	if tracked.task.Status.IsTerminal() {
		o.Logger().Debug("duplicate result ignored", "task_id", d.TaskID)
		return nil
	}

	tracked.task.Complete(d.Status, d.Result, d.Error)
	close(tracked.done)

	for _, wf := range o.workflows {
		for _, id := range wf.TaskIDs {
			if id == d.TaskID {
				wf.Touch()
				break
			}
		}
	}
	return nil
}

// handleCommunication dispatches on the message_type metadata field.
func (o *Orchestrator) handleCommunication(ev core.Event) error {
	messageType, _ := ev.Metadata["message_type"].(string)
	switch messageType {
	case "status_update":
		status, _ := ev.Metadata["status"].(string)
		o.mu.Lock()
		o.agentStatus[ev.Sender] = status
		o.mu.Unlock()

	case "capability_registration":
		o.mu.Lock()
		for _, capability := range toStringSlice(ev.Metadata["capabilities"]) {
			if _, ok := o.capabilities[capability]; !ok {
				o.capabilities[capability] = ev.Sender
			}
		}
		o.mu.Unlock()

	case "task_request":
		capability, _ := ev.Metadata["capability"].(string)
		taskType, _ := ev.Metadata["task_type"].(string)
		params, _ := ev.Metadata["parameters"].(map[string]any)
		receiverID, err := o.FindAgentByCapability(capability)
		if err != nil {
			o.Logger().Warn("task request has no capable agent", "sender", ev.Sender, "capability", capability)
			return nil
		}
		o.AssignTask(receiverID, taskType, ev.Message, params, 1)

	default:
		o.Logger().Debug("unhandled communication", "sender", ev.Sender, "message_type", messageType)
	}
	return nil
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
