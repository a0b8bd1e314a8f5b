package patch

// SourceTrack is one converted audio file destined for the mod. Path points
// at the finished .ogg; OriginalName preserves the name the user picked the
// file by, for collision reporting.
type SourceTrack struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName,omitempty"`
}

// TrackSelection describes what a biome's playlists should become. Exactly
// one variant applies per biome in a run: AddSelection, ReplaceSelection, or
// BothSelection.
type TrackSelection interface {
	isSelection()
}

// AddSelection appends tracks to the vanilla playlists. With
// RemoveVanillaFirst set the vanilla entries are removed before the new
// tracks go in, so the biome plays only the user's music.
type AddSelection struct {
	Day                []SourceTrack
	Night              []SourceTrack
	RemoveVanillaFirst bool
}

func (AddSelection) isSelection() {}

// ReplaceSelection swaps individual vanilla slots, keyed by the vanilla
// track index being replaced. The maps are sparse; untouched indices keep
// their vanilla track.
type ReplaceSelection struct {
	Day   map[int]SourceTrack
	Night map[int]SourceTrack
}

func (ReplaceSelection) isSelection() {}

// BothSelection replaces named slots and then appends new tracks. The add
// half always tail-appends; its RemoveVanillaFirst flag is ignored here.
type BothSelection struct {
	Replace ReplaceSelection
	Add     AddSelection
}

func (BothSelection) isSelection() {}
