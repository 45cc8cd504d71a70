package agent

import (
	"github.com/rysweet/skwaq-sub005/bus"
	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/executor"
	"github.com/rysweet/skwaq-sub005/registry"
)

// Concrete variant type tags. These are what the registry's by-type index
// and orchestrator discovery key on.
const (
	TypeOrchestrator = "orchestrator"
	TypeKnowledge    = "knowledge"
	TypeCodeAnalysis = "code_analysis"
	TypeCritic       = "critic"
	TypeFactChecker  = "fact_checker"
	TypeVerifier     = "verifier"
)

func newVariant(name, agentType, capability, taskType string, b bus.Bus, reg *registry.Registry, execs *executor.Registry, optFns []func(o *Options)) (*Worker, error) {
	return NewWorker(name, agentType, b, reg, execs,
		WithRequiredTaskTypes(taskType),
		WithWorkerOptions(append([]func(o *Options){WithCapabilities(capability)}, optFns...)...),
	)
}

// NewKnowledgeAgent creates a worker advertising knowledge retrieval. Its
// executor registry must serve the retrieve_knowledge task type.
func NewKnowledgeAgent(name string, b bus.Bus, reg *registry.Registry, execs *executor.Registry, optFns ...func(o *Options)) (*Worker, error) {
	return newVariant(name, TypeKnowledge, core.CapabilityKnowledgeRetrieval, core.TaskRetrieveKnowledge, b, reg, execs, optFns)
}

// NewCodeAnalysisAgent creates a worker advertising code analysis.
func NewCodeAnalysisAgent(name string, b bus.Bus, reg *registry.Registry, execs *executor.Registry, optFns ...func(o *Options)) (*Worker, error) {
	return newVariant(name, TypeCodeAnalysis, core.CapabilityCodeAnalysis, core.TaskAnalyzeCode, b, reg, execs, optFns)
}

// NewCriticAgent creates a worker advertising critique of prior analyses.
func NewCriticAgent(name string, b bus.Bus, reg *registry.Registry, execs *executor.Registry, optFns ...func(o *Options)) (*Worker, error) {
	return newVariant(name, TypeCritic, core.CapabilityCritique, core.TaskCritiqueAnalysis, b, reg, execs, optFns)
}

// NewFactCheckerAgent creates a worker advertising fact checking.
func NewFactCheckerAgent(name string, b bus.Bus, reg *registry.Registry, execs *executor.Registry, optFns ...func(o *Options)) (*Worker, error) {
	return newVariant(name, TypeFactChecker, core.CapabilityFactChecking, core.TaskCheckFacts, b, reg, execs, optFns)
}

// NewVerifierAgent creates a worker advertising verification of findings.
func NewVerifierAgent(name string, b bus.Bus, reg *registry.Registry, execs *executor.Registry, optFns ...func(o *Options)) (*Worker, error) {
	return newVariant(name, TypeVerifier, core.CapabilityVerification, core.TaskVerifyFindings, b, reg, execs, optFns)
}
