// Package logging assembles structured slog loggers and formatting helpers used
// across the parity engine.
//
// It owns the console/JSON handlers, level and output plumbing, and a tee that
// mirrors console output into the state directory log file. Context-aware
// helpers tag lines with run IDs, item IDs and source tags so a single item can
// be followed through both source fetches.
package logging
