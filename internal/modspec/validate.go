package modspec

import (
	"fmt"
	"sort"
	"strings"

	"starsound/internal/config"
	"starsound/internal/filterchain"
	"starsound/internal/services"
	"starsound/internal/vanilla"
)

// Validate checks the plan against the vanilla index before any work
// starts. The first problem found is returned, tagged as a validation error
// so the CLI reports a usage-style exit code. A nil index skips the
// known-biome check.
func (p Plan) Validate(index *vanilla.Index) error {
	if strings.TrimSpace(p.ModName) == "" {
		return invalid("plan has no mod name")
	}
	if len(p.Biomes) == 0 {
		return invalid("plan %q selects no biomes", p.ModName)
	}
	if err := p.Defaults.validate("defaults"); err != nil {
		return err
	}
	entries, err := p.Entries()
	if err != nil {
		return err
	}
	keys := make([]vanilla.BiomeKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		if index != nil && !p.AllowUnknownBiomes {
			if _, known := index.Lookup(key); !known {
				return invalid("unknown biome %s (set allowUnknownBiomes to keep it)", key)
			}
		}
		if err := entries[key].validate(key); err != nil {
			return err
		}
	}
	return nil
}

func (e BiomeEntry) validate(key vanilla.BiomeKey) error {
	switch normalizeMode(e.Mode) {
	case ModeAdd:
		if len(e.ReplaceDay)+len(e.ReplaceNight) > 0 {
			return invalid("%s: add mode does not take replace maps", key)
		}
		if len(e.Day)+len(e.Night) == 0 {
			return invalid("%s: add mode needs at least one day or night track", key)
		}
	case ModeReplace:
		if len(e.Day)+len(e.Night) > 0 {
			return invalid("%s: replace mode does not take day/night lists", key)
		}
		if e.RemoveVanillaFirst {
			return invalid("%s: removeVanillaFirst only applies to add mode", key)
		}
		if len(e.ReplaceDay)+len(e.ReplaceNight) == 0 {
			return invalid("%s: replace mode needs at least one slot", key)
		}
	case ModeBoth:
		if e.RemoveVanillaFirst {
			return invalid("%s: removeVanillaFirst only applies to add mode", key)
		}
		if len(e.ReplaceDay)+len(e.ReplaceNight) == 0 || len(e.Day)+len(e.Night) == 0 {
			return invalid("%s: both mode needs replace slots and add tracks", key)
		}
	default:
		return invalid("%s: unknown mode %q (want add, replace, or both)", key, e.Mode)
	}
	for _, part := range []struct {
		name string
		refs map[string]TrackRef
	}{{"day", e.ReplaceDay}, {"night", e.ReplaceNight}} {
		for raw := range part.refs {
			if _, err := parseReplaceIndex(raw); err != nil {
				return invalid("%s: %s replace index %q is not a non-negative integer", key, part.name, raw)
			}
		}
	}
	for _, ref := range e.Tracks() {
		if strings.TrimSpace(ref.File) == "" {
			return invalid("%s: track reference with an empty file", key)
		}
		if ref.Processing != nil {
			if err := ref.Processing.validate(fmt.Sprintf("%s: %s", key, ref.File)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (pr Processing) validate(where string) error {
	if pr.Preset != "" {
		if _, ok := filterchain.Preset(pr.Preset); !ok {
			return invalid("%s: unknown preset %q (have %s)", where, pr.Preset, strings.Join(filterchain.PresetNames(), ", "))
		}
	}
	if pr.BitrateKbps != 0 && !config.SupportedBitrate(pr.BitrateKbps) {
		return invalid("%s: bitrate %d kbps is not supported", where, pr.BitrateKbps)
	}
	if pr.SegmentMinutes < 0 {
		return invalid("%s: segment minutes cannot be negative", where)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrValidation, "modspec", "validate", fmt.Sprintf(format, args...), nil)
}
