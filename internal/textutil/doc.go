// Package textutil provides filename and token sanitization helpers.
//
// Mod names, track titles, and biome identifiers flow into filesystem
// paths and patch entries; these helpers make them safe for both.
package textutil
