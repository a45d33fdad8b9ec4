// Package cli implements the command-line interface for owrx-markers.
//
// The cli package provides the Cobra-based CLI and is the composition root of the
// application: it loads the configuration, builds the receiver sources, the cache,
// the schedule and repeater providers and the map publisher, and hands them to the
// orchestrator. Besides running the engine it can rebuild the receiver cache once
// and print the markers that would be published (text/JSON).
package cli
