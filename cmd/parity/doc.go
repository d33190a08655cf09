// Package main hosts the parity CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, applies flag overrides and
// hands the run to the batch orchestrator. History and configuration commands
// read the same state directory a run writes to.
//
// Keep this package lean: behaviour belongs in the internal packages, and the
// commands here only translate flags and render results.
package main
