// Package config loads, normalizes, and validates StarSound configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STARSOUND_NTFY_TOPIC. The Config type centralizes every knob the CLI and
// pipeline need, so staging/mod/backup directories and ffmpeg settings are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
