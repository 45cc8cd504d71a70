// Package agent contains the base agent lifecycle implementation and the
// concrete worker variants built on it. The package focuses on three
// concerns:
//
//  1. Lifecycle plumbing (BaseAgent): the INITIALIZED → STARTING → RUNNING
//     ⇄ PAUSED → STOPPING → STOPPED state machine, lifecycle event emission,
//     and per-type event handler dispatch.
//  2. Task execution (Worker): subscribing to task assignments addressed to
//     the agent, dispatching through an executor registry, and reporting
//     results back over the bus.
//  3. Variant constructors (knowledge, code analysis, critic, fact checker,
//     verifier) that differ only in advertised capabilities and the task
//     types they require executors for.
//
// Design principles:
//   - No hidden global state: the bus and registry are injected at
//     construction and an agent registers itself before its constructor
//     returns.
//   - Single-owner lifecycle: Start/Stop/Pause/Resume are driven by the
//     agent's owner and never invoked concurrently with themselves for one
//     agent.
//   - Observability: every successful transition emits exactly one
//     lifecycle event (two for start/stop, covering the transitional and
//     final states).
package agent
