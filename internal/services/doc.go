// Package services defines shared utilities consumed by the snapshot source
// adapters and the reconciliation pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, source tags, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the extraction/download/timeout/setup taxonomy.
//
// Only setup and configuration failures are allowed to stop a run; everything
// else degrades a single item.
package services
