// Package publisher defines how markers reach the map display.
//
// The map is a downstream mirror: the refresh engine calls Update for new or changed
// markers and Remove for vanished ones, and never reads anything back. Publishers
// must not fail the caller; delivery problems are logged.
//
// Three implementations are provided:
//
//   - DryRun writes one JSON line per operation, for inspecting a run
//   - Mirror keeps the resulting map in memory and records every operation
//   - HTTP forwards operations to a map service's REST API with retries
package publisher
