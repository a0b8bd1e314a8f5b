package assembler

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"starsound/internal/patch"
	"starsound/internal/services"
	"starsound/internal/vanilla"
)

var forest = vanilla.BiomeKey{Category: "surface", Biome: "forest"}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestAssembleWritesCopiesAndPatch(t *testing.T) {
	work := t.TempDir()
	modRoot := filepath.Join(work, "CosmicBeats")
	src1 := writeSource(t, work, "sunrise.ogg", "ogg-one")
	src2 := writeSource(t, work, "dawn.ogg", "ogg-two")

	ops := []patch.Op{
		{Op: "replace", Path: "/musicTrack/day/tracks/0", Value: "/music_replacers/forest-loop.ogg"},
		{Op: "add", Path: "/musicTrack/night/tracks/-", Value: "/music/sunrise.ogg"},
	}
	copies := []patch.FileCopy{
		{Src: src2, Dest: "music_replacers/forest-loop.ogg"},
		{Src: src1, Dest: "music/sunrise.ogg"},
	}

	a := New(nil)
	if err := a.Assemble(modRoot, forest, ops, copies); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	replaced, err := os.ReadFile(filepath.Join(modRoot, "music_replacers", "forest-loop.ogg"))
	if err != nil || string(replaced) != "ogg-two" {
		t.Fatalf("replacer copy wrong: %q err=%v", replaced, err)
	}
	added, err := os.ReadFile(filepath.Join(modRoot, "music", "sunrise.ogg"))
	if err != nil || string(added) != "ogg-one" {
		t.Fatalf("music copy wrong: %q err=%v", added, err)
	}

	patchPath := filepath.Join(modRoot, "biomes", "surface", "forest.biome.patch")
	data, err := os.ReadFile(patchPath)
	if err != nil {
		t.Fatalf("patch file missing: %v", err)
	}
	want, err := patch.Encode(ops)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(data) != string(want) {
		t.Fatalf("patch content mismatch:\ngot:\n%s\nwant:\n%s", data, want)
	}
}

func TestAssembleSkipsIdenticalDestination(t *testing.T) {
	work := t.TempDir()
	modRoot := filepath.Join(work, "Mod")
	src := writeSource(t, work, "loop.ogg", "same-bytes")

	ops := []patch.Op{{Op: "add", Path: "/musicTrack/day/tracks/-", Value: "/music/loop.ogg"}}
	copies := []patch.FileCopy{{Src: src, Dest: "music/loop.ogg"}}

	a := New(nil)
	if err := a.Assemble(modRoot, forest, ops, copies); err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	dest := filepath.Join(modRoot, "music", "loop.ogg")
	before, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if err := a.Assemble(modRoot, forest, ops, copies); err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
	after, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Fatal("identical destination was rewritten")
	}
}

func TestAssembleMissingSourceFailsBiome(t *testing.T) {
	modRoot := filepath.Join(t.TempDir(), "Mod")
	copies := []patch.FileCopy{{Src: "/definitely/not/here.ogg", Dest: "music/here.ogg"}}

	err := New(nil).Assemble(modRoot, forest, nil, copies)
	if err == nil {
		t.Fatal("want error for missing source")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("unexpected classification: %v", err)
	}
}

func TestResetPatchesRemovesOnlyBiomes(t *testing.T) {
	modRoot := t.TempDir()
	for _, dir := range []string{"biomes/surface", "biomes/underground", "music"} {
		if err := os.MkdirAll(filepath.Join(modRoot, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	writeSource(t, filepath.Join(modRoot, "biomes", "surface"), "forest.biome.patch", "[]")
	writeSource(t, filepath.Join(modRoot, "music"), "keep.ogg", "audio")
	writeSource(t, modRoot, "_metadata", "{}")

	if err := New(nil).ResetPatches(modRoot); err != nil {
		t.Fatalf("ResetPatches: %v", err)
	}

	if _, err := os.Stat(filepath.Join(modRoot, "biomes")); !os.IsNotExist(err) {
		t.Fatalf("biomes tree still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(modRoot, "music", "keep.ogg")); err != nil {
		t.Fatalf("music file removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(modRoot, "_metadata")); err != nil {
		t.Fatalf("_metadata removed: %v", err)
	}
}

func TestWriteMetadataFillsDefaults(t *testing.T) {
	modRoot := filepath.Join(t.TempDir(), "CosmicBeats")

	if err := New(nil).WriteMetadata(modRoot, Metadata{FriendlyName: "Cosmic Beats"}); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(modRoot, "_metadata"))
	if err != nil {
		t.Fatalf("read _metadata: %v", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if meta.Name != "Cosmic_Beats" {
		t.Fatalf("internal name = %q", meta.Name)
	}
	if meta.Priority != 9999 || meta.Version != "1.0.0" || meta.Author == "" {
		t.Fatalf("defaults not applied: %+v", meta)
	}
	// The game reads "name" as the mod identifier; keep it first.
	if !strings.HasPrefix(string(data), "{\n  \"name\":") {
		t.Fatalf("unexpected field order:\n%s", data)
	}
}

func TestInstallReplacesFolderAndStalePak(t *testing.T) {
	work := t.TempDir()
	modRoot := filepath.Join(work, "CosmicBeats")
	if err := os.MkdirAll(filepath.Join(modRoot, "music"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeSource(t, filepath.Join(modRoot, "music"), "track.ogg", "audio")
	writeSource(t, modRoot, "_metadata", "{}")

	mods := filepath.Join(work, "Starbound", "mods")
	stale := filepath.Join(mods, "CosmicBeats")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeSource(t, stale, "leftover.txt", "old")
	writeSource(t, mods, "CosmicBeats.pak", "pak-bytes")

	installed, err := New(nil).Install(modRoot, mods)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if installed != stale {
		t.Fatalf("installed path = %q, want %q", installed, stale)
	}

	if _, err := os.Stat(filepath.Join(mods, "CosmicBeats.pak")); !os.IsNotExist(err) {
		t.Fatal("stale pak survived install")
	}
	if _, err := os.Stat(filepath.Join(stale, "leftover.txt")); !os.IsNotExist(err) {
		t.Fatal("old folder contents survived install")
	}
	if _, err := os.Stat(filepath.Join(stale, "music", "track.ogg")); err != nil {
		t.Fatalf("installed tree incomplete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stale, "_metadata")); err != nil {
		t.Fatalf("metadata not installed: %v", err)
	}
}

func TestInstallMissingModRoot(t *testing.T) {
	_, err := New(nil).Install(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if err == nil {
		t.Fatal("want error for missing mod root")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unexpected classification: %v", err)
	}
}
