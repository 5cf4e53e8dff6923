// Package control
//
// Hot-reload, runtime metrics, configuration control, and debug introspection layer.
// Backs the observability surface of a bridge.Context: queue depth, drop
// counters, and registration-table size are exposed here.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload
//   - Metrics telemetry contracts
//   - State export, debug hooks, and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
