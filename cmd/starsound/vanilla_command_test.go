package main

import (
	"os"
	"path/filepath"
	"testing"

	"starsound/internal/vanilla"
)

func TestCLIVanillaScan(t *testing.T) {
	env := setupCLITestEnv(t)

	biomeDir := filepath.Join(env.baseDir, "assets", "biomes", "surface")
	if err := os.MkdirAll(biomeDir, 0o755); err != nil {
		t.Fatalf("mkdir biomes: %v", err)
	}
	doc := `{"name":"lush","musicTrack":{"day":{"tracks":["/music/lush-day.ogg"]},"night":{"tracks":["/music/lush-night.ogg"]}}}`
	if err := os.WriteFile(filepath.Join(biomeDir, "lush.biome"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write biome: %v", err)
	}

	outFile := filepath.Join(env.baseDir, "table.json")
	out, _, err := runCLI(t, []string{"vanilla", "scan", filepath.Join(env.baseDir, "assets"), "-o", outFile}, env.configPath)
	if err != nil {
		t.Fatalf("vanilla scan: %v", err)
	}
	requireContains(t, out, "Wrote 1 biomes")

	idx, err := vanilla.LoadIndex(outFile)
	if err != nil {
		t.Fatalf("load written table: %v", err)
	}
	tracks, ok := idx.Lookup(vanilla.BiomeKey{Category: "surface", Biome: "lush"})
	if !ok {
		t.Fatal("scanned biome missing from written table")
	}
	if len(tracks.Day) != 1 || tracks.Day[0] != "/music/lush-day.ogg" {
		t.Fatalf("unexpected day tracks %v", tracks.Day)
	}
}

func TestCLIVanillaScanRequiresOutputPath(t *testing.T) {
	env := setupCLITestEnv(t)

	biomeDir := filepath.Join(env.baseDir, "assets", "biomes", "surface")
	if err := os.MkdirAll(biomeDir, 0o755); err != nil {
		t.Fatalf("mkdir biomes: %v", err)
	}

	if _, _, err := runCLI(t, []string{"vanilla", "scan", filepath.Join(env.baseDir, "assets")}, env.configPath); err == nil {
		t.Fatal("expected scan without an output path to fail")
	}
}
