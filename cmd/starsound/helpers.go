package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatSeconds renders a duration in seconds as "4m32s" (or "1h12m05s" for
// long tracks). Sub-second noise from ffprobe is dropped.
func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

// displayName turns a biome token like "arcticoceanfloor" into something a
// table can show. Underscores become spaces; title casing follows the same
// rules everywhere regardless of locale.
func displayName(token string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(token)
	return cases.Title(language.Und).String(cleaned)
}
