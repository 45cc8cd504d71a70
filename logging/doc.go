// Package logging provides a minimal logging interface and adapters for the
// agent coordination core.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the bus, registry, agents and orchestrator use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - CoreLogger with level gating and component scoping
//   - Domain helpers recording lifecycle transitions, task executions and
//     workflow runs through any Logger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	reg := registry.New(registry.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
