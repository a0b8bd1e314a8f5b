package patch

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"starsound/internal/services"
	"starsound/internal/vanilla"
)

// StaleRef identifies one replace index that does not exist in the current
// vanilla playlist. Count is how many tracks the playlist actually has.
type StaleRef struct {
	Part  string
	Index int
	Count int
}

// StaleIndexError reports replace selections that point past the end of a
// vanilla playlist, typically a saved plan from before a game update changed
// the track lists. Synthesize still returns ops and copies for the indices
// that remain valid.
type StaleIndexError struct {
	Biome vanilla.BiomeKey
	Refs  []StaleRef
}

func (e *StaleIndexError) Error() string {
	descs := make([]string, len(e.Refs))
	for i, ref := range e.Refs {
		descs[i] = fmt.Sprintf("%s index %d (vanilla has %d)", ref.Part, ref.Index, ref.Count)
	}
	return fmt.Sprintf("stale replace selection for %s: %s", e.Biome, strings.Join(descs, ", "))
}

func (e *StaleIndexError) Unwrap() error { return services.ErrConfiguration }

// Synthesize turns one biome's track selection into ordered patch operations
// plus the file copies that must land in the mod before the patch is valid.
// It performs no I/O. Day ops precede night ops within each phase, and
// repeated destinations collapse to a single copy.
func Synthesize(biome vanilla.BiomeKey, selection TrackSelection, index *vanilla.Index) ([]Op, []FileCopy, error) {
	s := &synthesis{}
	switch sel := selection.(type) {
	case AddSelection:
		s.add(biome, sel, index)
	case ReplaceSelection:
		s.replace(biome, sel, index)
	case BothSelection:
		s.replace(biome, sel.Replace, index)
		s.appendTracks(sel.Add)
	case nil:
		return nil, nil, services.Wrap(services.ErrValidation, "patch", "synthesize", "no selection for "+biome.String(), nil)
	default:
		return nil, nil, services.Wrap(services.ErrValidation, "patch", "synthesize", fmt.Sprintf("unsupported selection %T", selection), nil)
	}
	if len(s.stale) > 0 {
		return s.ops, s.copies, &StaleIndexError{Biome: biome, Refs: s.stale}
	}
	return s.ops, s.copies, nil
}

type synthesis struct {
	ops    []Op
	copies []FileCopy
	seen   map[string]bool
	stale  []StaleRef
}

func (s *synthesis) add(biome vanilla.BiomeKey, sel AddSelection, index *vanilla.Index) {
	if !sel.RemoveVanillaFirst {
		s.appendTracks(sel)
		return
	}
	tracks, _ := index.Lookup(biome)
	// Highest index first; removing low indices first would shift the rest.
	for i := len(tracks.Day) - 1; i >= 0; i-- {
		s.ops = append(s.ops, Op{Op: "remove", Path: trackPath(partDay, i)})
	}
	for i := len(tracks.Night) - 1; i >= 0; i-- {
		s.ops = append(s.ops, Op{Op: "remove", Path: trackPath(partNight, i)})
	}
	s.addIndexed(partDay, sel.Day)
	s.addIndexed(partNight, sel.Night)
}

// addIndexed emits adds with explicit indices, used after the vanilla
// entries have been removed and the arrays start empty.
func (s *synthesis) addIndexed(part string, tracks []SourceTrack) {
	for i, track := range tracks {
		name := filepath.Base(track.Path)
		s.ops = append(s.ops, Op{Op: "add", Path: trackPath(part, i), Value: "/" + musicDir + "/" + name})
		s.copyFile(track.Path, musicDir+"/"+name)
	}
}

func (s *synthesis) appendTracks(sel AddSelection) {
	s.appendPart(partDay, sel.Day)
	s.appendPart(partNight, sel.Night)
}

func (s *synthesis) appendPart(part string, tracks []SourceTrack) {
	for _, track := range tracks {
		name := filepath.Base(track.Path)
		s.ops = append(s.ops, Op{Op: "add", Path: appendPath(part), Value: "/" + musicDir + "/" + name})
		s.copyFile(track.Path, musicDir+"/"+name)
	}
}

func (s *synthesis) replace(biome vanilla.BiomeKey, sel ReplaceSelection, index *vanilla.Index) {
	tracks, _ := index.Lookup(biome)
	s.replacePart(partDay, sel.Day, tracks.Day)
	s.replacePart(partNight, sel.Night, tracks.Night)
}

// replacePart names the replacement file after the vanilla track it
// displaces, so the mod asset overrides the stock one, and flags indices
// the vanilla playlist no longer covers.
func (s *synthesis) replacePart(part string, selections map[int]SourceTrack, vanillaTracks []string) {
	indices := make([]int, 0, len(selections))
	for idx := range selections {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		if idx < 0 || idx >= len(vanillaTracks) {
			s.stale = append(s.stale, StaleRef{Part: part, Index: idx, Count: len(vanillaTracks)})
			continue
		}
		vanillaName := path.Base(vanillaTracks[idx])
		s.ops = append(s.ops, Op{Op: "replace", Path: trackPath(part, idx), Value: "/" + replacersDir + "/" + vanillaName})
		s.copyFile(selections[idx].Path, replacersDir+"/"+vanillaName)
	}
}

func (s *synthesis) copyFile(src, dest string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[dest] {
		return
	}
	s.seen[dest] = true
	s.copies = append(s.copies, FileCopy{Src: src, Dest: dest})
}
