package pipeline

import (
	"fmt"
	"strings"
	"time"

	"starsound/internal/history"
	"starsound/internal/transcoding"
	"starsound/internal/vanilla"
)

// BiomeReport records how one biome's patch generation ended. Ops and Copies
// count what was written even when Err is set, since a stale selection still
// produces its valid subset.
type BiomeReport struct {
	Biome  vanilla.BiomeKey
	Ops    int
	Copies int
	Err    error
}

// Report aggregates one build run. Every unit of work is attempted; outcomes
// are collected per file and per biome instead of aborting on the first
// failure.
type Report struct {
	RunID    string
	ModName  string
	ModRoot  string
	Started  time.Time
	Finished time.Time

	// Skipped lists sources dropped before conversion, with reasons.
	Skipped []string
	// Converted aggregates the transcode batch.
	Converted transcoding.Summary
	// Warnings carry non-fatal findings, e.g. suspiciously short outputs.
	Warnings []string
	Biomes   []BiomeReport

	// Installed is the path the mod was exported to, when installation ran.
	Installed  string
	InstallErr error
}

// Elapsed is the wall-clock length of the run.
func (r *Report) Elapsed() time.Duration {
	if r.Finished.IsZero() || r.Started.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// PatchedBiomes counts the biomes whose patch was generated cleanly.
func (r *Report) PatchedBiomes() int {
	count := 0
	for _, biome := range r.Biomes {
		if biome.Err == nil {
			count++
		}
	}
	return count
}

func (r *Report) failures() int {
	failed := r.Converted.Failed + len(r.Skipped) + (len(r.Biomes) - r.PatchedBiomes())
	if r.InstallErr != nil {
		failed++
	}
	return failed
}

// Status maps the run onto the history ledger's completed/partial/failed.
func (r *Report) Status() string {
	successes := r.Converted.Succeeded + r.PatchedBiomes()
	switch {
	case r.failures() == 0:
		return history.StatusCompleted
	case successes > 0:
		return history.StatusPartial
	default:
		return history.StatusFailed
	}
}

// Headline is the one-line summary used for logs, notifications, and the
// history row message.
func (r *Report) Headline() string {
	parts := []string{fmt.Sprintf("%d converted", r.Converted.Succeeded)}
	if r.Converted.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Converted.Failed))
	}
	if len(r.Skipped) > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", len(r.Skipped)))
	}
	parts = append(parts, fmt.Sprintf("%d/%d biomes patched", r.PatchedBiomes(), len(r.Biomes)))
	if r.Installed != "" {
		parts = append(parts, "installed")
	}
	return strings.Join(parts, ", ")
}
