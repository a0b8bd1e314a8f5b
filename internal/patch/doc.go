// Package patch turns per-biome track selections into the JSON Patch
// operations Starbound applies to biome music manifests, together with the
// file copies each operation depends on. Synthesis is pure; the assembler
// executes the copy plan and writes the encoded patches.
package patch
