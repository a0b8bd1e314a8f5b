// Package assembler writes the final Starbound mod tree: copied music
// files, biome patch files, the _metadata document, and the optional loose
// install into the game's mods directory.
package assembler
