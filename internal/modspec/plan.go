package modspec

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"starsound/internal/filterchain"
	"starsound/internal/patch"
	"starsound/internal/services"
	"starsound/internal/vanilla"
)

// Selection modes a biome entry may declare.
const (
	ModeAdd     = "add"
	ModeReplace = "replace"
	ModeBoth    = "both"
)

// TrackRef names one source audio file plus optional per-file processing
// overrides. Relative paths are resolved against the plan file's directory
// by the caller.
type TrackRef struct {
	File       string      `json:"file"`
	Processing *Processing `json:"processing,omitempty"`
}

// Processing controls how files are converted. Zero fields inherit from the
// plan defaults, which in turn inherit from the app config.
type Processing struct {
	Preset         string               `json:"preset,omitempty"`
	BitrateKbps    int                  `json:"bitrateKbps,omitempty"`
	SegmentMinutes int                  `json:"segmentMinutes,omitempty"`
	Options        *filterchain.Options `json:"options,omitempty"`
}

// Merged returns the processing for one file: the receiver's values with any
// non-zero override fields applied on top.
func (pr Processing) Merged(override *Processing) Processing {
	if override == nil {
		return pr
	}
	merged := pr
	if override.Preset != "" {
		merged.Preset = override.Preset
	}
	if override.BitrateKbps != 0 {
		merged.BitrateKbps = override.BitrateKbps
	}
	if override.SegmentMinutes != 0 {
		merged.SegmentMinutes = override.SegmentMinutes
	}
	if override.Options != nil {
		merged.Options = override.Options
	}
	return merged
}

// EffectiveOptions returns the filter stages this processing selects. An
// explicit Options block wins over the preset wholesale; otherwise the named
// preset expands, and with neither set all stages stay off.
func (pr Processing) EffectiveOptions() filterchain.Options {
	if pr.Options != nil {
		return *pr.Options
	}
	if opts, ok := filterchain.Preset(strings.ToLower(strings.TrimSpace(pr.Preset))); ok {
		return opts
	}
	return filterchain.Options{}
}

// BiomeEntry is the track selection for one biome. Mode picks the fields
// that apply: "add" reads Day/Night and RemoveVanillaFirst, "replace" reads
// ReplaceDay/ReplaceNight keyed by stringified vanilla playlist index, and
// "both" reads the lists and the maps together.
type BiomeEntry struct {
	Mode               string              `json:"mode"`
	RemoveVanillaFirst bool                `json:"removeVanillaFirst,omitempty"`
	Day                []TrackRef          `json:"day,omitempty"`
	Night              []TrackRef          `json:"night,omitempty"`
	ReplaceDay         map[string]TrackRef `json:"replaceDay,omitempty"`
	ReplaceNight       map[string]TrackRef `json:"replaceNight,omitempty"`
}

// Plan is one buildable mod: identity, processing defaults, and per-biome
// track selections keyed by "category/biome".
type Plan struct {
	ModName            string                `json:"modName"`
	Author             string                `json:"author,omitempty"`
	Description        string                `json:"description,omitempty"`
	Version            string                `json:"version,omitempty"`
	InstallDir         string                `json:"installDir,omitempty"`
	Install            bool                  `json:"install,omitempty"`
	AllowUnknownBiomes bool                  `json:"allowUnknownBiomes,omitempty"`
	Defaults           Processing            `json:"defaults"`
	Biomes             map[string]BiomeEntry `json:"biomes"`
}

// Entries parses the biome map into canonical keys. Two raw keys that
// normalize to the same biome are rejected.
func (p Plan) Entries() (map[vanilla.BiomeKey]BiomeEntry, error) {
	out := make(map[vanilla.BiomeKey]BiomeEntry, len(p.Biomes))
	for raw, entry := range p.Biomes {
		key, err := vanilla.ParseBiomeKey(raw)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "modspec", "entries", "", err)
		}
		if _, dup := out[key]; dup {
			return nil, services.Wrap(services.ErrValidation, "modspec", "entries", fmt.Sprintf("duplicate biome %s", key), nil)
		}
		out[key] = entry
	}
	return out, nil
}

// BiomeKeys returns the plan's biome keys in sorted order.
func (p Plan) BiomeKeys() ([]vanilla.BiomeKey, error) {
	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}
	keys := make([]vanilla.BiomeKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// SourceFiles lists every file referenced by the plan, deduplicated and
// sorted. A file used by several biomes is converted once.
func (p Plan) SourceFiles() []string {
	seen := make(map[string]struct{})
	for _, entry := range p.Biomes {
		for _, ref := range entry.Tracks() {
			if strings.TrimSpace(ref.File) == "" {
				continue
			}
			seen[ref.File] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for file := range seen {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// FileProcessing returns the merged processing for every source file. A file
// referenced more than once takes its override from its first reference in
// biome-key order; later overrides for the same file are ignored, since one
// file converts once.
func (p Plan) FileProcessing() (map[string]Processing, error) {
	keys, err := p.BiomeKeys()
	if err != nil {
		return nil, err
	}
	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Processing)
	for _, key := range keys {
		for _, ref := range entries[key].Tracks() {
			if strings.TrimSpace(ref.File) == "" {
				continue
			}
			if _, ok := out[ref.File]; ok {
				continue
			}
			out[ref.File] = p.Defaults.Merged(ref.Processing)
		}
	}
	return out, nil
}

// Rebase returns a copy of the plan with every relative track path resolved
// against dir, so a plan can reference files next to its own JSON document.
// Absolute paths pass through untouched.
func (p Plan) Rebase(dir string) Plan {
	if strings.TrimSpace(dir) == "" {
		return p
	}
	rebased := p
	rebased.Biomes = make(map[string]BiomeEntry, len(p.Biomes))
	for raw, entry := range p.Biomes {
		entry.Day = rebaseRefs(entry.Day, dir)
		entry.Night = rebaseRefs(entry.Night, dir)
		entry.ReplaceDay = rebaseMap(entry.ReplaceDay, dir)
		entry.ReplaceNight = rebaseMap(entry.ReplaceNight, dir)
		rebased.Biomes[raw] = entry
	}
	return rebased
}

func rebaseRef(ref TrackRef, dir string) TrackRef {
	file := strings.TrimSpace(ref.File)
	if file == "" || filepath.IsAbs(file) {
		return ref
	}
	ref.File = filepath.Join(dir, file)
	return ref
}

func rebaseRefs(refs []TrackRef, dir string) []TrackRef {
	if len(refs) == 0 {
		return refs
	}
	out := make([]TrackRef, len(refs))
	for i, ref := range refs {
		out[i] = rebaseRef(ref, dir)
	}
	return out
}

func rebaseMap(refs map[string]TrackRef, dir string) map[string]TrackRef {
	if len(refs) == 0 {
		return refs
	}
	out := make(map[string]TrackRef, len(refs))
	for key, ref := range refs {
		out[key] = rebaseRef(ref, dir)
	}
	return out
}

// Tracks flattens every track reference in the entry: day list, night list,
// then the replace maps in index order.
func (e BiomeEntry) Tracks() []TrackRef {
	refs := make([]TrackRef, 0, len(e.Day)+len(e.Night)+len(e.ReplaceDay)+len(e.ReplaceNight))
	refs = append(refs, e.Day...)
	refs = append(refs, e.Night...)
	refs = append(refs, sortedReplaceRefs(e.ReplaceDay)...)
	refs = append(refs, sortedReplaceRefs(e.ReplaceNight)...)
	return refs
}

// Selection converts the entry into the typed selection the patch
// synthesizer consumes. resolve maps each reference to its converted tracks;
// a file that was segmented resolves to one track per segment, in order. A
// replace slot holds exactly one track, so segmented files are rejected
// there.
func (e BiomeEntry) Selection(resolve func(TrackRef) ([]patch.SourceTrack, error)) (patch.TrackSelection, error) {
	switch normalizeMode(e.Mode) {
	case ModeAdd:
		return e.addSelection(resolve)
	case ModeReplace:
		return e.replaceSelection(resolve)
	case ModeBoth:
		rep, err := e.replaceSelection(resolve)
		if err != nil {
			return nil, err
		}
		add, err := e.addSelection(resolve)
		if err != nil {
			return nil, err
		}
		return patch.BothSelection{Replace: rep, Add: add}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "modspec", "selection", fmt.Sprintf("unknown mode %q", e.Mode), nil)
	}
}

func (e BiomeEntry) addSelection(resolve func(TrackRef) ([]patch.SourceTrack, error)) (patch.AddSelection, error) {
	day, err := resolveRefs(e.Day, resolve)
	if err != nil {
		return patch.AddSelection{}, err
	}
	night, err := resolveRefs(e.Night, resolve)
	if err != nil {
		return patch.AddSelection{}, err
	}
	return patch.AddSelection{Day: day, Night: night, RemoveVanillaFirst: e.RemoveVanillaFirst}, nil
}

func (e BiomeEntry) replaceSelection(resolve func(TrackRef) ([]patch.SourceTrack, error)) (patch.ReplaceSelection, error) {
	day, err := resolveReplaceMap(e.ReplaceDay, resolve)
	if err != nil {
		return patch.ReplaceSelection{}, err
	}
	night, err := resolveReplaceMap(e.ReplaceNight, resolve)
	if err != nil {
		return patch.ReplaceSelection{}, err
	}
	return patch.ReplaceSelection{Day: day, Night: night}, nil
}

func resolveRefs(refs []TrackRef, resolve func(TrackRef) ([]patch.SourceTrack, error)) ([]patch.SourceTrack, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	tracks := make([]patch.SourceTrack, 0, len(refs))
	for _, ref := range refs {
		resolved, err := resolve(ref)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, resolved...)
	}
	return tracks, nil
}

func resolveReplaceMap(refs map[string]TrackRef, resolve func(TrackRef) ([]patch.SourceTrack, error)) (map[int]patch.SourceTrack, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make(map[int]patch.SourceTrack, len(refs))
	for raw, ref := range refs {
		idx, err := parseReplaceIndex(raw)
		if err != nil {
			return nil, err
		}
		resolved, err := resolve(ref)
		if err != nil {
			return nil, err
		}
		if len(resolved) != 1 {
			return nil, services.Wrap(services.ErrValidation, "modspec", "selection", fmt.Sprintf("replace slot %s takes exactly one file; %q resolved to %d tracks", raw, ref.File, len(resolved)), nil)
		}
		out[idx] = resolved[0]
	}
	return out, nil
}

func parseReplaceIndex(raw string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 {
		return 0, services.Wrap(services.ErrValidation, "modspec", "selection", fmt.Sprintf("replace index %q is not a non-negative integer", raw), nil)
	}
	return idx, nil
}

func normalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}

func sortedReplaceRefs(refs map[string]TrackRef) []TrackRef {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(refs))
	for key := range refs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(strings.TrimSpace(keys[i]))
		b, errB := strconv.Atoi(strings.TrimSpace(keys[j]))
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]TrackRef, 0, len(keys))
	for _, key := range keys {
		out = append(out, refs[key])
	}
	return out
}
