// Package core provides the foundational domain types shared by the agent
// coordination system. It defines:
//
//   - Events (immutable notification records with a closed, tagged type
//     hierarchy and an explicit supertype chain for covariant routing)
//   - The Agent interface and its lifecycle state machine vocabulary
//   - Tasks (units of work with a terminal status and opaque result bag)
//   - Workflows (named, ordered compositions of tasks)
//   - Capability and task-type tags used for discovery and dispatch
//
// The package intentionally keeps implementation concerns (bus routing,
// registry indexing, orchestration) out of scope so that higher packages can
// depend on it without cycles. All state mutation of Tasks and Workflows is
// owned by exactly one component; core only describes the shapes.
package core
