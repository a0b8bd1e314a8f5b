package filterchain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	preLimiterFilter = "alimiter=limit=0.95:attack=2:release=10"
	softClipFilter   = "alimiter=limit=0.92:attack=3:release=15"
	deEssFilter      = "equalizer=f=4500:t=h:w=2:g=-4"
	loudnormFilter   = "loudnorm=I=-23:TP=-1.5:LRA=7"
	downmixFilter    = "aformat=channel_layouts=mono"
	highpassFilter   = "highpass=f=20"
	lowpassFilter    = "lowpass=f=15000"
)

var compressionFilters = map[CompressionPreset]string{
	CompressionGentle:     "acompressor=threshold=0.1:ratio=4:attack=0.05:release=0.05",
	CompressionModerate:   "acompressor=threshold=0.178:ratio=6:attack=0.02:release=0.03",
	CompressionAggressive: "acompressor=threshold=0.316:ratio=8:attack=0.01:release=0.01",
}

var eqFilters = map[EQPreset][]string{
	EQWarm: {
		"lowshelf=f=200:g=2",
		"equalizer=f=1000:g=0:w=0.7",
		"highshelf=f=8000:g=-1.5",
	},
	EQBright: {
		"equalizer=f=1000:g=0.5:w=0.7",
		"highshelf=f=5000:g=2",
	},
	EQDark: {
		"lowshelf=f=200:g=1.5",
		"equalizer=f=1000:g=0.5:w=0.7",
		"highshelf=f=8000:g=-2",
	},
}

// Build renders the ffmpeg filter graph for one file. Stages are emitted in a
// fixed mastering order; the safety pre-limiter sits between the cutting
// stages and the gain stages whenever at least one configured stage is
// active. An empty string means the file needs no -af flag at all.
//
// fileDurationMinutes must be the probed duration of the exact input file;
// the fade-out start position is computed from it.
func Build(opts Options, fileDurationMinutes float64) string {
	var head, tail []string

	if filter, ok := trimFilter(opts.Trim); ok {
		head = append(head, filter)
	}
	if filter, ok := silenceFilter(opts.Silence); ok {
		head = append(head, filter)
	}
	if opts.NoiseScrub {
		head = append(head, highpassFilter, lowpassFilter)
	}

	if filter, ok := compressionFilters[opts.Compression]; ok {
		tail = append(tail, filter)
	}
	if opts.SoftClip {
		tail = append(tail, softClipFilter)
	}
	if filters, ok := eqFilters[opts.EQ]; ok {
		tail = append(tail, filters...)
	}
	if opts.DeEss {
		tail = append(tail, deEssFilter)
	}
	if opts.Normalize {
		tail = append(tail, loudnormFilter)
	}
	if opts.DownmixMono {
		tail = append(tail, downmixFilter)
	}
	if opts.FadeInSeconds > 0 {
		tail = append(tail, fmt.Sprintf("afade=t=in:st=0:d=%s", formatSeconds(opts.FadeInSeconds)))
	}
	if opts.FadeOutSeconds > 0 {
		start := fileDurationMinutes*60 - opts.FadeOutSeconds
		if start >= 0 {
			tail = append(tail, fmt.Sprintf("afade=t=out:st=%s:d=%s",
				formatSeconds(start), formatSeconds(opts.FadeOutSeconds)))
		}
	}

	if len(head) == 0 && len(tail) == 0 {
		return ""
	}

	chain := make([]string, 0, len(head)+1+len(tail))
	chain = append(chain, head...)
	chain = append(chain, preLimiterFilter)
	chain = append(chain, tail...)
	return strings.Join(chain, ",")
}

func trimFilter(trim Trim) (string, bool) {
	start := ParseTimeSpec(trim.Start)
	end := ParseTimeSpec(trim.End)
	if start <= 0 && end <= 0 {
		return "", false
	}
	if end > 0 {
		return fmt.Sprintf("atrim=start=%s:end=%s", formatSeconds(start), formatSeconds(end)), true
	}
	return fmt.Sprintf("atrim=start=%s", formatSeconds(start)), true
}

func silenceFilter(silence SilenceTrim) (string, bool) {
	if !silence.Head && !silence.Tail {
		return "", false
	}

	threshold := silence.ThresholdDB
	if !silenceThresholds[threshold] {
		threshold = DefaultSilenceThresholdDB
	}
	duration := silence.MinDuration
	if duration == 0 {
		duration = DefaultSilenceMinDuration
	}
	if duration < 0.05 {
		duration = 0.05
	}
	if duration > 5.0 {
		duration = 5.0
	}

	var parts []string
	if silence.Head {
		parts = append(parts,
			"start_periods=1",
			"start_duration="+formatSeconds(duration),
			fmt.Sprintf("start_threshold=%ddB", threshold))
	}
	if silence.Tail {
		parts = append(parts,
			"stop_periods=1",
			"stop_duration="+formatSeconds(duration),
			fmt.Sprintf("stop_threshold=%ddB", threshold))
	}
	return "silenceremove=" + strings.Join(parts, ":"), true
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
