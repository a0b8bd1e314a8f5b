// Package vanilla knows which music the unmodified game assigns to each
// biome. A table bundled with the binary covers the stock assets; Scan can
// rebuild it from an unpacked assets tree after a game update.
package vanilla
