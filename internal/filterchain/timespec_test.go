package filterchain

import "testing"

func TestParseTimeSpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want float64
	}{
		{"empty", "", 0},
		{"bare seconds", "90", 90},
		{"bare fractional seconds", "12.5", 12.5},
		{"hours only", "1hr", 3600},
		{"hours and minutes", "1hr30m", 5400},
		{"minutes and seconds", "2m30s", 150},
		{"seconds suffix", "45s", 45},
		{"minutes only", "25m", 1500},
		{"full composite", "1hr2m3s", 3723},
		{"fractional minutes", "1.5m", 90},
		{"whitespace and case", "  2M30S ", 150},
		{"malformed", "abc", 0},
		{"wrong unit order rejected", "30s1hr", 0},
		{"negative clamps to zero", "-5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTimeSpec(tt.spec); got != tt.want {
				t.Errorf("ParseTimeSpec(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}
