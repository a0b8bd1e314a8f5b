// Package history records finished builds in a local SQLite database so
// `starsound history` can show what was generated, when, and how each file
// fared.
package history
