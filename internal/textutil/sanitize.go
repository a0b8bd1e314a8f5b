// Package textutil sanitizes user-supplied names before they become mod
// folders, track files, or state file names.
package textutil

import "strings"

// Mod and track names come straight from plan files, so they can carry any
// character a tag editor allows. Path separators and drive syntax turn into
// dashes to keep the name readable; the rest of the reserved set is dropped.
var unsafeNameChars = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a plan-supplied name safe to use as a mod folder or
// track file name. Separators and drive colons become dashes, other reserved
// characters are dropped, and surrounding whitespace plus trailing dots are
// trimmed (folders ending in a dot are invalid on Windows game installs).
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimRight(unsafeNameChars.Replace(name), " .")
}

// SanitizeToken reduces a mod name to a lowercase token for lock and plan
// file names. ASCII letters are lowercased, digits and existing separators
// survive, and each run of anything else collapses to a single underscore.
// Returns "unknown" when nothing usable remains.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	pendingGap := false
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
			fallthrough
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			if pendingGap && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingGap = false
			b.WriteRune(r)
		default:
			pendingGap = true
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
