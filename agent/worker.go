package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rysweet/skwaq-sub005/bus"
	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/executor"
	"github.com/rysweet/skwaq-sub005/logging"
	"github.com/rysweet/skwaq-sub005/registry"
)

// WorkerOptions configures a Worker beyond the embedded agent options.
type WorkerOptions struct {
	Options
	// RequiredTaskTypes are validated against the executor registry at
	// construction; a missing executor is a constructor error, not a
	// dispatch-time failure.
	RequiredTaskTypes []string
}

// WithRequiredTaskTypes declares the task types this worker must be able to
// execute.
func WithRequiredTaskTypes(taskTypes ...string) func(o *WorkerOptions) {
	return func(o *WorkerOptions) { o.RequiredTaskTypes = taskTypes }
}

// WithWorkerOptions applies base agent options to a worker.
func WithWorkerOptions(optFns ...func(o *Options)) func(o *WorkerOptions) {
	return func(o *WorkerOptions) {
		for _, fn := range optFns {
			fn(&o.Options)
		}
	}
}

// Worker is the task-executing agent variant. On start it subscribes to
// task-assignment events, filters those addressed to its own id, records the
// task in its own table and executes it on a background goroutine through
// the executor registry, publishing a task-result event back to the sender.
//
// Unknown task types produce a failed result carrying an "unknown task
// type" error rather than an execution error; the outcome always flows
// through the normal result channel.
type Worker struct {
	*BaseAgent

	executors *executor.Registry

	mu    sync.Mutex
	tasks map[string]*core.Task
	subID string

	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewWorker constructs a worker agent, validates its executors, registers it
// and emits the CREATED lifecycle event.
func NewWorker(name, agentType string, b bus.Bus, reg *registry.Registry, execs *executor.Registry, optFns ...func(o *WorkerOptions)) (*Worker, error) {
	opts := WorkerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := execs.Validate(opts.RequiredTaskTypes...); err != nil {
		return nil, fmt.Errorf("worker %s: %w", name, err)
	}

	w := &Worker{
		executors: execs,
		tasks:     make(map[string]*core.Task),
	}

	baseOpts := opts.Options
	userOnStart := baseOpts.OnStart
	userOnStop := baseOpts.OnStop
	baseOpts.OnStart = func(ctx context.Context) error {
		if userOnStart != nil {
			if err := userOnStart(ctx); err != nil {
				return err
			}
		}
		return w.startTaskHandling()
	}
	baseOpts.OnStop = func(ctx context.Context) error {
		w.stopTaskHandling()
		if userOnStop != nil {
			return userOnStop(ctx)
		}
		return nil
	}

	base, err := New(name, agentType, b, reg, func(o *Options) { *o = baseOpts })
	if err != nil {
		return nil, err
	}
	w.BaseAgent = base
	w.RegisterHandler(core.TypeTaskAssignment, w.handleAssignment)
	return w, nil
}

func (w *Worker) startTaskHandling() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runCtx, w.cancelRun = context.WithCancel(context.Background())
	w.subID = w.Bus().Subscribe(core.TypeTaskAssignment, w.ProcessEvent)
	return nil
}

func (w *Worker) stopTaskHandling() {
	w.mu.Lock()
	subID := w.subID
	cancel := w.cancelRun
	w.subID = ""
	w.cancelRun = nil
	w.mu.Unlock()

	if subID != "" {
		w.Bus().Unsubscribe(subID)
	}
	if cancel != nil {
		cancel()
	}
}

// Task returns the worker's own copy of a task by id, if it has seen it.
func (w *Worker) Task(taskID string) (*core.Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tasks[taskID]
	return t, ok
}

// TaskIDs returns the ids of every task the worker has recorded.
func (w *Worker) TaskIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.tasks))
	for id := range w.tasks {
		out = append(out, id)
	}
	return out
}

// handleAssignment records an assignment addressed to this worker and spawns
// its execution. Assignments addressed elsewhere are ignored.
func (w *Worker) handleAssignment(ev core.Event) error {
	if ev.Target != w.ID() || ev.Assignment == nil {
		return nil
	}
	d := ev.Assignment
	task := &core.Task{
		ID:          d.TaskID,
		Type:        d.TaskType,
		Description: d.Description,
		Parameters:  d.Parameters,
		Priority:    d.Priority,
		SenderID:    ev.Sender,
		ReceiverID:  w.ID(),
		Status:      core.TaskProcessing,
		AssignedAt:  ev.Timestamp,
	}

	w.mu.Lock()
	w.tasks[task.ID] = task
	ctx := w.runCtx
	w.mu.Unlock()

	if ctx == nil {
		// Assignment raced a stop; report failure rather than dropping it.
		ctx = context.Background()
	}
	go w.execute(ctx, task)
	return nil
}

func (w *Worker) execute(ctx context.Context, task *core.Task) {
	start := time.Now()

	fn, ok := w.executors.Lookup(task.Type)
	if !ok {
		w.finish(task, core.TaskFailed, nil, fmt.Sprintf("unknown task type: %s", task.Type))
		return
	}

	result, err := fn(ctx, task.Parameters)
	logging.LogTaskExecution(w.Logger(), w.ID(), task.ID, task.Type, time.Since(start), err)
	if err != nil {
		w.finish(task, core.TaskFailed, result, err.Error())
		return
	}
	w.finish(task, core.TaskCompleted, result, "")
}

func (w *Worker) finish(task *core.Task, status core.TaskStatus, result map[string]any, errMsg string) {
	w.mu.Lock()
	task.Complete(status, result, errMsg)
	w.mu.Unlock()

	ev := core.NewTaskResultEvent(w.ID(), task.SenderID, task.ID, status, result, errMsg)
	if err := w.Bus().Publish(ev); err != nil {
		w.Logger().Error("publishing task result", "agent_id", w.ID(), "task_id", task.ID, "error", err)
	}
}
