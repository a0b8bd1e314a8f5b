package filterchain

import (
	"regexp"
	"strconv"
	"strings"
)

var timeSpecRe = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)hr)?(?:(\d+(?:\.\d+)?)m)?(?:(\d+(?:\.\d+)?)s)?$`)

// ParseTimeSpec converts a composite time string to seconds. Accepted forms
// are "{h}hr{m}m{s}s" with any subset of units ("1hr30m", "2m30s", "45s") and
// bare numbers, which parse as seconds. Malformed input falls back to 0.
func ParseTimeSpec(spec string) float64 {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" {
		return 0
	}

	if seconds, err := strconv.ParseFloat(spec, 64); err == nil {
		if seconds < 0 {
			return 0
		}
		return seconds
	}

	match := timeSpecRe.FindStringSubmatch(spec)
	if match == nil {
		return 0
	}
	if match[1] == "" && match[2] == "" && match[3] == "" {
		return 0
	}

	total := 0.0
	if match[1] != "" {
		hours, _ := strconv.ParseFloat(match[1], 64)
		total += hours * 3600
	}
	if match[2] != "" {
		minutes, _ := strconv.ParseFloat(match[2], 64)
		total += minutes * 60
	}
	if match[3] != "" {
		seconds, _ := strconv.ParseFloat(match[3], 64)
		total += seconds
	}
	return total
}
