package core

// Capability tags advertised by agent variants and used by orchestrator
// discovery to build its capability → agent map.
const (
	CapabilityOrchestration      = "orchestration"
	CapabilityKnowledgeRetrieval = "knowledge_retrieval"
	CapabilityCodeAnalysis       = "code_analysis"
	CapabilityCritique           = "critique"
	CapabilityFactChecking       = "fact_checking"
	CapabilityVerification       = "verification"
)

// Task type tags dispatched through executor registries. An agent's
// capability describes what it can do; the task type names one concrete
// operation within that capability.
const (
	TaskRetrieveKnowledge = "retrieve_knowledge"
	TaskAnalyzeCode       = "analyze_code"
	TaskCritiqueAnalysis  = "critique_analysis"
	TaskCheckFacts        = "check_facts"
	TaskVerifyFindings    = "verify_findings"
)
