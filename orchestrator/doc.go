// Package orchestrator implements the coordinating agent variant that
// decomposes work into tasks, assigns them to capable agents over the event
// bus, waits for their results and drives multi-step workflows.
//
// The orchestrator owns two tables: the tasks it has assigned (each with a
// one-shot completion channel resolved by the task-result handler) and the
// workflows it is tracking. Both are only ever mutated by the orchestrator's
// own handlers and workflow goroutines under a single mutex; other agents
// learn about tasks exclusively through events.
//
// Capability discovery runs once on start: every registered agent except the
// orchestrator itself contributes its advertised capabilities to a
// capability → agent id map. When several agents advertise the same
// capability the first one encountered in registration order wins; this is a
// deliberate simplification (no load balancing) kept from the original
// design.
package orchestrator
