// Package skwaq provides a high-level façade over the agent runtime: the
// event bus, the agent registry, the built-in worker agents and the
// orchestrator that drives vulnerability-assessment workflows. Most
// applications interact with this package by:
//  1. Creating a System via New() (optionally overriding config, bus, model)
//  2. Starting it with Start(), which brings every agent to RUNNING
//  3. Running workflows via CreateWorkflow/WorkflowStatus or assigning tasks
//     directly through Orchestrator()
//
// All defaults are safe for local development: an in-memory bus, a mock
// model and a no-frills text logger. Production deployments point the
// configuration at Redis and a real model provider.
package skwaq

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rysweet/skwaq-sub005/agent"
	"github.com/rysweet/skwaq-sub005/bus"
	"github.com/rysweet/skwaq-sub005/config"
	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/logging"
	"github.com/rysweet/skwaq-sub005/model"
	modelanthropic "github.com/rysweet/skwaq-sub005/model/anthropic"
	modelopenai "github.com/rysweet/skwaq-sub005/model/openai"
	"github.com/rysweet/skwaq-sub005/orchestrator"
	"github.com/rysweet/skwaq-sub005/registry"
	"github.com/rysweet/skwaq-sub005/skill"
)

// Options configures the System.
type Options struct {
	// Config defaults to config.Default(). Load a file with config.Load
	// and pass the result here.
	Config *config.Config

	// Bus overrides the bus derived from Config (in-memory, or Redis when
	// redis.addr is set).
	Bus bus.Bus

	// Model overrides the model derived from Config.
	Model model.Model

	// Logger overrides the logger derived from Config.
	Logger logging.Logger
}

// WithConfig supplies a loaded configuration.
func WithConfig(cfg *config.Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithBus supplies a pre-built event bus.
func WithBus(b bus.Bus) func(o *Options) {
	return func(o *Options) { o.Bus = b }
}

// WithModel supplies a pre-built model.
func WithModel(m model.Model) func(o *Options) {
	return func(o *Options) { o.Model = m }
}

// WithLogger supplies a logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// System aggregates the bus, registry, worker agents and orchestrator.
type System struct {
	cfg  *config.Config
	b    bus.Bus
	reg  *registry.Registry
	orch *orchestrator.Orchestrator
	log  logging.Logger
}

// New wires a complete system: one worker agent per built-in skill plus the
// orchestrator, all registered and in the INITIALIZED state.
func New(optFns ...func(o *Options)) (*System, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewSlogLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, false)
	}
	// Scope entries per subsystem when the logger supports it; injected
	// custom loggers pass through unchanged.
	scoped := func(component string) logging.Logger {
		if cl, ok := log.(*logging.CoreLogger); ok {
			return cl.WithComponent(component)
		}
		return log
	}

	b := opts.Bus
	if b == nil {
		b = busFromConfig(cfg, scoped("bus"))
	}

	m := opts.Model
	if m == nil {
		var err error
		m, err = modelFromConfig(cfg)
		if err != nil {
			return nil, err
		}
	}

	reg := registry.New(registry.WithLogger(scoped("registry")))
	execs := skill.NewExecutorRegistry(m)

	agentOpts := func(name string) func(o *agent.Options) {
		return func(o *agent.Options) {
			o.Logger = scoped(name)
			o.ConfigKey = name
		}
	}
	if _, err := agent.NewKnowledgeAgent("knowledge", b, reg, execs, agentOpts("knowledge")); err != nil {
		return nil, err
	}
	if _, err := agent.NewCodeAnalysisAgent("analysis", b, reg, execs, agentOpts("analysis")); err != nil {
		return nil, err
	}
	if _, err := agent.NewCriticAgent("critic", b, reg, execs, agentOpts("critic")); err != nil {
		return nil, err
	}
	if _, err := agent.NewFactCheckerAgent("fact-checker", b, reg, execs, agentOpts("fact_checker")); err != nil {
		return nil, err
	}
	if _, err := agent.NewVerifierAgent("verifier", b, reg, execs, agentOpts("verifier")); err != nil {
		return nil, err
	}

	orch, err := orchestrator.New("orchestrator", b, reg,
		orchestrator.WithTaskTimeout(cfg.Orchestrator.TaskTimeout),
		orchestrator.WithAgentOptions(func(o *agent.Options) {
			o.Logger = scoped("orchestrator")
			o.ConfigKey = "orchestrator"
		}),
	)
	if err != nil {
		return nil, err
	}

	return &System{cfg: cfg, b: b, reg: reg, orch: orch, log: log}, nil
}

func busFromConfig(cfg *config.Config, log logging.Logger) bus.Bus {
	if cfg.Redis.Addr == "" {
		return bus.NewInMemoryBus(func(o *bus.InMemoryOptions) { o.Logger = log })
	}
	return bus.NewRedisBus(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, func(o *bus.RedisOptions) { o.Logger = log })
}

func modelFromConfig(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case "openai":
		return modelopenai.NewModel(func(o *modelopenai.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.Temperature = cfg.Model.Temperature
			if cfg.Model.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.Model.MaxTokens
			}
		}), nil
	case "anthropic":
		return modelanthropic.NewModel(func(o *modelanthropic.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropic.Model(cfg.Model.Name)
			}
			o.Temperature = cfg.Model.Temperature
			if cfg.Model.MaxTokens > 0 {
				o.MaxTokens = cfg.Model.MaxTokens
			}
			o.APIKey = cfg.Model.APIKey
		}), nil
	case "mock", "":
		return model.NewMockModel("mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

// Bus returns the system's event bus.
func (s *System) Bus() bus.Bus { return s.b }

// Registry returns the system's agent registry.
func (s *System) Registry() *registry.Registry { return s.reg }

// Orchestrator returns the coordinating agent.
func (s *System) Orchestrator() *orchestrator.Orchestrator { return s.orch }

// Config returns the effective configuration.
func (s *System) Config() *config.Config { return s.cfg }

// Start brings every registered agent to RUNNING. Workers start before the
// orchestrator so its capability discovery sees them subscribed.
func (s *System) Start(ctx context.Context) error {
	for _, a := range s.reg.All() {
		if a.ID() == s.orch.ID() {
			continue
		}
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("start agent %s: %w", a.Name(), err)
		}
	}
	return s.orch.Start(ctx)
}

// CreateWorkflow schedules a workflow and returns its id immediately.
func (s *System) CreateWorkflow(workflowType string, params map[string]any) string {
	return s.orch.CreateWorkflow(workflowType, params)
}

// WorkflowStatus returns a snapshot of a workflow's record.
func (s *System) WorkflowStatus(workflowID string) (core.Workflow, error) {
	return s.orch.WorkflowStatus(workflowID)
}

// Shutdown stops every running agent and clears the registry. The first stop
// error is returned after all agents have been driven down.
func (s *System) Shutdown(ctx context.Context) error {
	err := s.reg.StopAll(ctx)
	s.reg.Clear()
	return err
}
