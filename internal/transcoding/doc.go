// Package transcoding fans conversion jobs out over a bounded worker pool
// and aggregates per-job outcomes for reporting.
package transcoding
