// Package services defines shared utilities consumed by the build pipeline
// and the external-tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job IDs, and biome keys for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent exit codes and run-history statuses.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the tool.
package services
