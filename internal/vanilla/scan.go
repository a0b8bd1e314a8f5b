package vanilla

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Categories lists the biome directories scanned under an unpacked assets
// tree, in the order the game ships them.
var Categories = []string{
	"core",
	"space",
	"surface",
	"surface_detached",
	"underground",
	"underground_detached",
	"atmosphere",
}

type biomeDoc struct {
	Name       string `json:"name"`
	MusicTrack struct {
		Day struct {
			Tracks []string `json:"tracks"`
		} `json:"day"`
		Night struct {
			Tracks []string `json:"tracks"`
		} `json:"night"`
	} `json:"musicTrack"`
}

// Scan walks the biomes directory of an unpacked vanilla assets tree and
// builds a fresh index from the .biome documents found there. Files that
// cannot be parsed are skipped and reported in the warnings slice; the key
// for each biome comes from the document's name field, not its filename.
func Scan(assetsDir string) (*Index, []string, error) {
	biomesDir := filepath.Join(assetsDir, "biomes")
	if info, err := os.Stat(biomesDir); err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("no biomes directory under %s; expected an unpacked assets tree", assetsDir)
	}

	biomes := make(map[BiomeKey]Tracks)
	var warnings []string
	for _, category := range Categories {
		categoryDir := filepath.Join(biomesDir, category)
		entries, err := os.ReadDir(categoryDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, nil, fmt.Errorf("read %s: %w", categoryDir, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".biome") {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			path := filepath.Join(categoryDir, name)
			key, tracks, err := readBiomeFile(path, category)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s/%s: %v", category, name, err))
				continue
			}
			biomes[key] = tracks
		}
	}
	return &Index{biomes: biomes}, warnings, nil
}

func readBiomeFile(path, category string) (BiomeKey, Tracks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BiomeKey{}, Tracks{}, err
	}
	var doc biomeDoc
	if err := json.Unmarshal(stripComments(data), &doc); err != nil {
		return BiomeKey{}, Tracks{}, fmt.Errorf("parse: %w", err)
	}
	if doc.Name == "" {
		return BiomeKey{}, Tracks{}, fmt.Errorf("missing name field")
	}
	tracks := Tracks{Day: doc.MusicTrack.Day.Tracks, Night: doc.MusicTrack.Night.Tracks}
	if tracks.Day == nil {
		tracks.Day = []string{}
	}
	if tracks.Night == nil {
		tracks.Night = []string{}
	}
	return BiomeKey{Category: category, Biome: doc.Name}, tracks, nil
}

// stripComments removes // line comments from a .biome document. The game's
// asset JSON allows them; comment markers inside string literals are left
// alone, including behind backslash escapes.
func stripComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		if c == '/' && i+1 < len(data) && data[i+1] == '/' {
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out = append(out, '\n')
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// WriteTable saves the index as indented JSON with biome keys sorted, the
// format LoadIndex reads back.
func WriteTable(path string, idx *Index) error {
	table := make(map[string]Tracks, idx.Len())
	for _, key := range idx.Keys() {
		tracks, _ := idx.Lookup(key)
		if tracks.Day == nil {
			tracks.Day = []string{}
		}
		if tracks.Night == nil {
			tracks.Night = []string{}
		}
		table[key.String()] = tracks
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encode biome table: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write biome table: %w", err)
	}
	return nil
}
