package patch

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	partDay   = "day"
	partNight = "night"

	musicDir     = "music"
	replacersDir = "music_replacers"
)

// Op is one JSON Patch operation against a biome's music-track manifest.
// Value stays nil for remove ops and is omitted from the encoded form.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// FileCopy pairs a source file on disk with its mod-root-relative
// destination, always slash-separated. The synthesizer returns these instead
// of touching the filesystem itself.
type FileCopy struct {
	Src  string
	Dest string
}

func trackPath(part string, index int) string {
	return fmt.Sprintf("/musicTrack/%s/tracks/%d", part, index)
}

func appendPath(part string) string {
	return "/musicTrack/" + part + "/tracks/-"
}

// Encode renders ops in the patch wire format the game loader reads: a JSON
// array with one operation object per line and a single blank line
// separating the day block from the night block. Remove ops carry no value
// field.
func Encode(ops []Op) ([]byte, error) {
	hasDay := false
	hasNight := false
	for _, op := range ops {
		if strings.Contains(op.Path, "/day/tracks") {
			hasDay = true
		}
		if strings.Contains(op.Path, "/night/tracks") {
			hasNight = true
		}
	}

	var b strings.Builder
	b.WriteString("[\n")
	nightStarted := false
	for i, op := range ops {
		if hasDay && hasNight && !nightStarted && strings.Contains(op.Path, "/night/tracks") {
			b.WriteString("\n")
			nightStarted = true
		}
		line, err := encodeOp(op)
		if err != nil {
			return nil, err
		}
		b.WriteString(line)
		if i < len(ops)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("]")
	return []byte(b.String()), nil
}

func encodeOp(op Op) (string, error) {
	if op.Op == "remove" && op.Value == nil {
		return fmt.Sprintf("{\"op\":%q, \"path\": %q}", op.Op, op.Path), nil
	}
	value, err := encodeValue(op.Value)
	if err != nil {
		return "", fmt.Errorf("encode op %s %s: %w", op.Op, op.Path, err)
	}
	return fmt.Sprintf("{\"op\":%q, \"path\": %q, \"value\":%s}", op.Op, op.Path, value), nil
}

// encodeValue keeps the legacy whole-array replace shape readable by joining
// list entries with ", " the way earlier tooling emitted them.
func encodeValue(v any) (string, error) {
	if list, ok := v.([]string); ok {
		parts := make([]string, len(list))
		for i, entry := range list {
			encoded, err := json.Marshal(entry)
			if err != nil {
				return "", err
			}
			parts[i] = string(encoded)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
