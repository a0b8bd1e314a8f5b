// Package filterchain renders ffmpeg audio filter graphs from per-file
// processing options.
//
// Build is pure and deterministic: the same options and duration always
// produce the same string, and a fully-disabled option set produces an empty
// string so callers can skip the -af flag entirely. Stage order is fixed;
// options only control which stages appear.
package filterchain
