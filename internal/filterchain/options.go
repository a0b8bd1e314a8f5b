package filterchain

import "sort"

// CompressionPreset selects one of the fixed dynamic-range compression curves.
type CompressionPreset string

const (
	CompressionNone       CompressionPreset = ""
	CompressionGentle     CompressionPreset = "gentle"
	CompressionModerate   CompressionPreset = "moderate"
	CompressionAggressive CompressionPreset = "aggressive"
)

// EQPreset selects one of the fixed three-band EQ voicings.
type EQPreset string

const (
	EQNone   EQPreset = ""
	EQWarm   EQPreset = "warm"
	EQBright EQPreset = "bright"
	EQDark   EQPreset = "dark"
)

// silenceThresholds are the accepted silence detection levels in dBFS.
var silenceThresholds = map[int]bool{-80: true, -70: true, -60: true, -50: true, -40: true}

// DefaultSilenceThresholdDB is used when a configured threshold is not one of
// the accepted steps.
const DefaultSilenceThresholdDB = -60

// DefaultSilenceMinDuration is the minimum run of silence (seconds) removed
// when none is configured.
const DefaultSilenceMinDuration = 0.1

// Trim cuts the input to a timestamp window before any other processing.
// Start and End accept composite time specs ("1hr2m30s", "90s", bare seconds).
// The stage is active when either bound parses above zero.
type Trim struct {
	Start string `json:"start,omitempty" toml:"start"`
	End   string `json:"end,omitempty" toml:"end"`
}

// SilenceTrim removes leading and/or trailing silence.
type SilenceTrim struct {
	Head        bool    `json:"head,omitempty" toml:"head"`
	Tail        bool    `json:"tail,omitempty" toml:"tail"`
	ThresholdDB int     `json:"threshold_db,omitempty" toml:"threshold_db"`
	MinDuration float64 `json:"min_duration,omitempty" toml:"min_duration"`
}

// Options describes every configurable processing stage for one file. The
// zero value disables all processing and yields an empty chain.
type Options struct {
	Trim           Trim              `json:"trim,omitempty" toml:"trim"`
	Silence        SilenceTrim       `json:"silence,omitempty" toml:"silence"`
	NoiseScrub     bool              `json:"noise_scrub,omitempty" toml:"noise_scrub"`
	Compression    CompressionPreset `json:"compression,omitempty" toml:"compression"`
	SoftClip       bool              `json:"soft_clip,omitempty" toml:"soft_clip"`
	EQ             EQPreset          `json:"eq,omitempty" toml:"eq"`
	DeEss          bool              `json:"de_ess,omitempty" toml:"de_ess"`
	Normalize      bool              `json:"normalize,omitempty" toml:"normalize"`
	DownmixMono    bool              `json:"downmix_mono,omitempty" toml:"downmix_mono"`
	FadeInSeconds  float64           `json:"fade_in_seconds,omitempty" toml:"fade_in_seconds"`
	FadeOutSeconds float64           `json:"fade_out_seconds,omitempty" toml:"fade_out_seconds"`
}

// presets maps genre names to ready-made option sets. Fades and trims are
// per-file decisions and stay out of presets.
var presets = map[string]Options{
	"lofi": {
		NoiseScrub:  true,
		Compression: CompressionGentle,
		SoftClip:    true,
		EQ:          EQDark,
		Normalize:   true,
	},
	"orchestral": {
		Silence:     SilenceTrim{Head: true, Tail: true},
		Compression: CompressionGentle,
		EQ:          EQWarm,
		Normalize:   true,
	},
	"electronic": {
		Compression: CompressionModerate,
		SoftClip:    true,
		EQ:          EQBright,
		Normalize:   true,
	},
	"ambient": {
		Silence:     SilenceTrim{Head: true, Tail: true},
		Compression: CompressionGentle,
		EQ:          EQDark,
		Normalize:   true,
	},
	"metal": {
		Compression: CompressionAggressive,
		SoftClip:    true,
		EQ:          EQBright,
		DeEss:       true,
		Normalize:   true,
	},
	"acoustic": {
		NoiseScrub:  true,
		Compression: CompressionGentle,
		EQ:          EQWarm,
		DeEss:       true,
		Normalize:   true,
	},
	"pop": {
		Compression: CompressionModerate,
		SoftClip:    true,
		EQ:          EQBright,
		DeEss:       true,
		Normalize:   true,
	},
}

// Preset returns the options for a named genre preset.
func Preset(name string) (Options, bool) {
	opts, ok := presets[name]
	return opts, ok
}

// PresetNames lists the available genre presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
