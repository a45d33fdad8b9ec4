// Package orchestrator runs the marker refresh engine.
//
// One background goroutine owns the four marker categories. On start it loads the
// static files, brings the receiver cache up to date, loads transmitters and
// repeaters and publishes everything. It then wakes at the top of every hour,
// reloads transmitters and repeaters, rescrapes the receiver directories when the
// cache is stale, and sends the map only what changed.
//
// Categories are published in the order static, receivers, transmitters,
// repeaters. When two categories share an id the map shows the later one.
package orchestrator
