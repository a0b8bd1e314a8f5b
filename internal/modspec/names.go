package modspec

import "math/rand"

// Word pools for generated mod names, trimmed down from the desktop app's
// much larger tables. Alliteration reads better than random pairing, so
// RandomModName keeps both words on the same letter.
var (
	nameAdjectives = []string{
		"Astral", "Ambient", "Blazing", "Boundless", "Celestial", "Cosmic",
		"Drifting", "Dusky", "Ethereal", "Echoing", "Floran", "Frozen",
		"Galactic", "Glitched", "Harmonic", "Haunting", "Interstellar",
		"Iridescent", "Jovian", "Jaunty", "Kinetic", "Luminous", "Lunar",
		"Melodic", "Midnight", "Nebulous", "Nocturnal", "Orbital",
		"Otherworldly", "Prismatic", "Pulsing", "Quantum", "Quiet",
		"Radiant", "Resonant", "Stellar", "Spectral", "Tranquil",
		"Twinkling", "Umbral", "Undulating", "Velvet", "Volcanic",
		"Wandering", "Windswept",
	}
	nameNouns = []string{
		"Aria", "Anthem", "Ballad", "Beacon", "Cadence", "Chorus", "Drift",
		"Dynamo", "Echo", "Ensemble", "Fanfare", "Fugue", "Galaxy",
		"Groove", "Harmony", "Horizon", "Interlude", "Impulse", "Jubilee",
		"Jungle", "Keystone", "Kingdom", "Lullaby", "Lagoon", "Melody",
		"Medley", "Nebula", "Nocturne", "Overture", "Orbit", "Prelude",
		"Pulsar", "Quartet", "Quasar", "Rhapsody", "Reverie", "Serenade",
		"Sonata", "Tempo", "Toccata", "Undertow", "Unison", "Verse",
		"Vortex", "Waltz", "Wavelength",
	}
)

// RandomModName produces a two-word alliterative mod name for plan
// scaffolds.
func RandomModName() string {
	adj := nameAdjectives[rand.Intn(len(nameAdjectives))]
	var candidates []string
	for _, noun := range nameNouns {
		if noun[0] == adj[0] && noun != adj {
			candidates = append(candidates, noun)
		}
	}
	if len(candidates) == 0 {
		candidates = nameNouns
	}
	return adj + " " + candidates[rand.Intn(len(candidates))]
}

// Scaffold returns a starter plan for `plan init`: one add-mode biome with
// placeholder files for the user to replace. A blank modName gets a random
// one.
func Scaffold(modName string) Plan {
	if modName == "" {
		modName = RandomModName()
	}
	return Plan{
		ModName:  modName,
		Author:   "StarSound User",
		Version:  "1.0.0",
		Defaults: Processing{Preset: "orchestral"},
		Biomes: map[string]BiomeEntry{
			"surface/forest": {
				Mode:  ModeAdd,
				Day:   []TrackRef{{File: "music/day-theme.flac"}},
				Night: []TrackRef{{File: "music/night-theme.flac"}},
			},
		},
	}
}
