package vanilla

import (
	"fmt"
	"strings"
)

// BiomeKey identifies one biome document as category plus biome name, e.g.
// surface/forest. It is comparable and used as a map key throughout.
type BiomeKey struct {
	Category string
	Biome    string
}

// ParseBiomeKey parses the "category/biome" form.
func ParseBiomeKey(s string) (BiomeKey, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return BiomeKey{}, fmt.Errorf("invalid biome key %q: want category/biome", s)
	}
	return BiomeKey{Category: strings.TrimSpace(parts[0]), Biome: strings.TrimSpace(parts[1])}, nil
}

func (k BiomeKey) String() string {
	return k.Category + "/" + k.Biome
}

// IsZero reports whether the key has no category and no biome set.
func (k BiomeKey) IsZero() bool {
	return k.Category == "" && k.Biome == ""
}

// MarshalText serializes the key in its "category/biome" form, which also
// makes BiomeKey usable as a JSON object key.
func (k BiomeKey) MarshalText() ([]byte, error) {
	if k.Category == "" || k.Biome == "" {
		return nil, fmt.Errorf("incomplete biome key %q", k.String())
	}
	return []byte(k.String()), nil
}

func (k *BiomeKey) UnmarshalText(text []byte) error {
	parsed, err := ParseBiomeKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
