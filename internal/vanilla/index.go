package vanilla

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

//go:embed biome_tracks.json
var embeddedTable []byte

// Tracks holds the vanilla playlist for one biome, split by day part. Entries
// are asset paths as they appear in the game's .biome files, e.g.
// "/music/forest-loop.ogg". Either slice may be empty for biomes that ship
// without music.
type Tracks struct {
	Day   []string `json:"day"`
	Night []string `json:"night"`
}

// Index is a read-only catalogue mapping biome keys to their vanilla track
// lists. The zero value is empty; construct one with Default, LoadIndex,
// Scan, or NewIndex.
type Index struct {
	biomes map[BiomeKey]Tracks
}

// NewIndex builds an index from an explicit table. The map is copied.
func NewIndex(biomes map[BiomeKey]Tracks) *Index {
	copied := make(map[BiomeKey]Tracks, len(biomes))
	for key, tracks := range biomes {
		copied[key] = tracks
	}
	return &Index{biomes: copied}
}

var (
	defaultOnce  sync.Once
	defaultIndex *Index
	defaultErr   error
)

// Default returns the index bundled with the binary. The embedded table is
// parsed once and shared by all callers.
func Default() (*Index, error) {
	defaultOnce.Do(func() {
		defaultIndex, defaultErr = parseTable(embeddedTable)
		if defaultErr != nil {
			defaultErr = fmt.Errorf("embedded biome table: %w", defaultErr)
		}
	})
	return defaultIndex, defaultErr
}

// LoadIndex reads a biome table from disk in the same JSON format WriteTable
// produces.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read biome table: %w", err)
	}
	idx, err := parseTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse biome table %s: %w", path, err)
	}
	return idx, nil
}

// Resolve returns the index at tablePath when the path is non-empty,
// otherwise the embedded default.
func Resolve(tablePath string) (*Index, error) {
	if tablePath == "" {
		return Default()
	}
	return LoadIndex(tablePath)
}

func parseTable(data []byte) (*Index, error) {
	var raw map[string]Tracks
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	biomes := make(map[BiomeKey]Tracks, len(raw))
	for keyStr, tracks := range raw {
		key, err := ParseBiomeKey(keyStr)
		if err != nil {
			return nil, err
		}
		biomes[key] = tracks
	}
	return &Index{biomes: biomes}, nil
}

// Lookup returns the vanilla tracks for key. The second result is false when
// the biome is not in the table.
func (i *Index) Lookup(key BiomeKey) (Tracks, bool) {
	if i == nil || i.biomes == nil {
		return Tracks{}, false
	}
	tracks, ok := i.biomes[key]
	return tracks, ok
}

// Keys returns every biome key in the index, sorted by their string form.
func (i *Index) Keys() []BiomeKey {
	if i == nil {
		return nil
	}
	keys := make([]BiomeKey, 0, len(i.biomes))
	for key := range i.biomes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].String() < keys[b].String() })
	return keys
}

// Len returns the number of biomes in the index.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.biomes)
}
