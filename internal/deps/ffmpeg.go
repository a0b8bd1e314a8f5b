package deps

import (
	"os/exec"
	"strings"

	"starsound/internal/config"
)

// runVersion executes a binary with -version and returns its combined output.
// Overridable in tests.
var runVersion = func(binary string) (string, error) {
	out, err := exec.Command(binary, "-version").CombinedOutput()
	return string(out), err
}

// Check reports the status of the external tools a build needs.
func Check(cfg *config.Config) []Status {
	requirements := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Converts and splits audio tracks",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Inspects source audio files",
		},
	}
	statuses := CheckBinaries(requirements)
	for i := range statuses {
		if !statuses[i].Available {
			continue
		}
		if version := toolVersion(statuses[i].Command); version != "" {
			statuses[i].Version = version
		}
	}
	return statuses
}

// Satisfied reports whether every required dependency is available.
func Satisfied(statuses []Status) bool {
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			return false
		}
	}
	return true
}

// toolVersion extracts the version token from `<binary> -version` output,
// e.g. "ffmpeg version 6.1.1 Copyright ..." yields "6.1.1".
func toolVersion(binary string) string {
	out, err := runVersion(binary)
	if err != nil {
		return ""
	}
	line := out
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			return strings.TrimPrefix(fields[i+1], "n")
		}
	}
	return strings.TrimSpace(line)
}
