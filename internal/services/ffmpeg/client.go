package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// SampleRate is the output sample rate in Hz for every conversion. Starbound
// decodes music at this rate; other rates cause in-game pitch shifts.
const SampleRate = 44100

// SegmentPattern is the printf-style name ffmpeg uses for split output files.
const SegmentPattern = "segment_%03d.wav"

// Progress captures a parsed ffmpeg progress line.
type Progress struct {
	Seconds float64
	Percent float64
	Phase   string
	Message string
}

// ConvertRequest describes a single transcode to Ogg Vorbis.
type ConvertRequest struct {
	InputPath   string
	OutputPath  string
	BitrateKbps int
	Channels    int
	FilterChain string
	// DurationSeconds is the known input duration used to derive percent
	// values; zero leaves Percent negative.
	DurationSeconds float64
	OnProgress      func(Progress)
}

// ConvertResult reports what the encoder emitted while converting.
type ConvertResult struct {
	OutputPath       string
	ClippingWarnings int
}

// SplitRequest describes segmenting an input into fixed-length WAV parts.
type SplitRequest struct {
	InputPath       string
	OutputDir       string
	SegmentSeconds  int
	DurationSeconds float64
	OnProgress      func(Progress)
}

// Client defines ffmpeg invocation behaviour.
type Client interface {
	Convert(ctx context.Context, req ConvertRequest) (ConvertResult, error)
	Split(ctx context.Context, req SplitRequest) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ffmpeg command line.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

var timeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

// Convert transcodes one input file to Ogg Vorbis. ffmpeg's stderr is streamed
// line by line: progress lines are parsed and forwarded to OnProgress, and
// clipping warnings are counted instead of forwarded so a noisy limiter cannot
// flood the log.
func (c *CLI) Convert(ctx context.Context, req ConvertRequest) (ConvertResult, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return ConvertResult{}, errors.New("input path required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return ConvertResult{}, errors.New("output path required")
	}
	if req.BitrateKbps <= 0 {
		return ConvertResult{}, errors.New("bitrate required")
	}

	channels := req.Channels
	if channels <= 0 {
		channels = 2
	}

	args := []string{
		"-y", "-nostdin", "-hide_banner",
		"-i", req.InputPath,
		"-vn",
		"-acodec", "libvorbis",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(channels),
		"-b:a", fmt.Sprintf("%dk", req.BitrateKbps),
	}
	if chain := strings.TrimSpace(req.FilterChain); chain != "" {
		args = append(args, "-af", chain)
	}
	args = append(args, req.OutputPath)

	result := ConvertResult{OutputPath: req.OutputPath}
	tail, err := c.run(ctx, args, "convert", req.DurationSeconds, req.OnProgress, &result.ClippingWarnings)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("ffmpeg convert failed: %w%s", err, tail)
	}
	return result, nil
}

// Split segments an input into fixed-length signed 16-bit WAV parts named
// segment_000.wav, segment_001.wav, and so on under OutputDir.
func (c *CLI) Split(ctx context.Context, req SplitRequest) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return errors.New("output directory required")
	}
	if req.SegmentSeconds <= 0 {
		return errors.New("segment length required")
	}

	args := []string{
		"-y", "-nostdin", "-hide_banner",
		"-i", req.InputPath,
		"-vn",
		"-f", "segment",
		"-segment_time", strconv.Itoa(req.SegmentSeconds),
		"-segment_format", "wav",
		"-reset_timestamps", "1",
		"-c:a", "pcm_s16le",
		filepath.Join(req.OutputDir, SegmentPattern),
	}

	tail, err := c.run(ctx, args, "split", req.DurationSeconds, req.OnProgress, nil)
	if err != nil {
		return fmt.Errorf("ffmpeg split failed: %w%s", err, tail)
	}
	return nil
}

// run starts ffmpeg and consumes its combined output. It returns a formatted
// tail of recent lines for error messages.
func (c *CLI) run(ctx context.Context, args []string, phase string, duration float64, onProgress func(Progress), clipping *int) (string, error) {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start ffmpeg: %w", err)
	}

	const tailSize = 20
	var tail []string

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	// ffmpeg separates in-place progress updates with carriage returns.
	scanner.Split(scanFFmpegLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if clipping != nil && strings.Contains(strings.ToLower(line), "clipping") {
			*clipping++
			continue
		}

		tail = append(tail, line)
		if len(tail) > tailSize {
			tail = tail[1:]
		}

		if onProgress == nil {
			continue
		}
		if update, ok := parseProgress(line, phase, duration); ok {
			onProgress(update)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read ffmpeg output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return formatTail(tail), err
	}
	return "", nil
}

func scanFFmpegLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func parseProgress(line, phase string, duration float64) (Progress, bool) {
	match := timeRe.FindStringSubmatch(line)
	if match == nil {
		return Progress{}, false
	}
	hours, _ := strconv.ParseFloat(match[1], 64)
	minutes, _ := strconv.ParseFloat(match[2], 64)
	seconds, _ := strconv.ParseFloat(match[3], 64)
	position := hours*3600 + minutes*60 + seconds

	percent := -1.0
	if duration > 0 {
		percent = position / duration * 100
		if percent > 100 {
			percent = 100
		}
	}
	return Progress{Seconds: position, Percent: percent, Phase: phase, Message: line}, true
}

func formatTail(tail []string) string {
	if len(tail) == 0 {
		return ""
	}
	const show = 5
	if len(tail) > show {
		tail = tail[len(tail)-show:]
	}
	return ": " + strings.Join(tail, " | ")
}

var _ Client = (*CLI)(nil)
