package splitting

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"starsound/internal/logging"
	"starsound/internal/media/ffprobe"
	"starsound/internal/services"
	"starsound/internal/services/ffmpeg"
)

// SplitResult describes the segments cut from one oversized file. OriginMap
// points each segment back at its source so later stages can inherit the
// original's processing options; it stays valid for the whole run.
type SplitResult struct {
	Segments         []string
	SegmentDurations []float64
	OriginMap        map[string]string
}

// Splitter cuts files that exceed the track length cap into fixed-length
// lossless segments. Each file gets its own temp directory under the
// segments dir, so concurrent runs over different files never collide.
type Splitter struct {
	client     ffmpeg.Client
	ffprobeBin string
	outputDir  string
	logger     *slog.Logger

	// OnProgress, when set, receives ffmpeg progress while a file is cut.
	OnProgress func(ffmpeg.Progress)

	probe func(ctx context.Context, path string) (ffprobe.Result, error)
}

// New returns a Splitter writing renamed segments into outputDir.
func New(client ffmpeg.Client, ffprobeBinary, outputDir string, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Splitter{
		client:     client,
		ffprobeBin: ffprobeBinary,
		outputDir:  outputDir,
		logger:     logging.NewComponentLogger(logger, "splitting"),
	}
	s.probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, s.ffprobeBin, path)
	}
	return s
}

// NeedsSplit reports whether a track of the given length exceeds the
// compatibility cap and must be segmented before conversion.
func NeedsSplit(durationMinutes float64, capMinutes int) bool {
	if capMinutes <= 0 {
		return false
	}
	return durationMinutes > float64(capMinutes)
}

// SegmentCount is the number of segments a split will produce, by ceiling
// division. A short leftover still counts as its own segment.
func SegmentCount(durationSeconds float64, segmentMinutes int) int {
	if segmentMinutes <= 0 || durationSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(durationSeconds / float64(segmentMinutes*60)))
}

// Split cuts path into segments of at most segmentMinutes each and renames
// them to {basename}_part{N}.wav under the splitter's output directory,
// numbering from 1. On any failure the temp directory and any partially
// renamed outputs are removed; no half-finished split survives.
func (s *Splitter) Split(ctx context.Context, path string, segmentMinutes int) (SplitResult, error) {
	if segmentMinutes <= 0 {
		return SplitResult{}, services.Wrap(services.ErrValidation, "splitting", "split", fmt.Sprintf("segment length %d minutes", segmentMinutes), nil)
	}
	info, err := s.probe(ctx, path)
	if err != nil {
		return SplitResult{}, services.Wrap(services.ErrExternalTool, "splitting", "probe", path, err)
	}
	duration := info.DurationSeconds()
	if duration <= 0 {
		return SplitResult{}, services.Wrap(services.ErrValidation, "splitting", "split", "cannot determine duration of "+path, nil)
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return SplitResult{}, fmt.Errorf("create segments dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tempDir, err := os.MkdirTemp(s.outputDir, base+"_segments_")
	if err != nil {
		return SplitResult{}, fmt.Errorf("create temp dir: %w", err)
	}

	expected := SegmentCount(duration, segmentMinutes)
	s.logger.Info("splitting file",
		slog.String("input", path),
		slog.Int("segment_minutes", segmentMinutes),
		slog.Int("expected_segments", expected))

	err = s.client.Split(ctx, ffmpeg.SplitRequest{
		InputPath:       path,
		OutputDir:       tempDir,
		SegmentSeconds:  segmentMinutes * 60,
		DurationSeconds: duration,
		OnProgress:      s.OnProgress,
	})
	if err != nil {
		os.RemoveAll(tempDir)
		return SplitResult{}, services.Wrap(services.ErrExternalTool, "splitting", "split", path, err)
	}

	result, err := s.promoteSegments(ctx, tempDir, path, base, duration, segmentMinutes)
	if err != nil {
		for _, segment := range result.Segments {
			os.Remove(segment)
		}
		os.RemoveAll(tempDir)
		return SplitResult{}, err
	}
	if err := os.RemoveAll(tempDir); err != nil {
		s.logger.Warn("could not remove temp dir", slog.String("dir", tempDir), logging.Error(err))
	}

	s.logger.Info("split finished",
		slog.String("input", path),
		slog.Int("segments", len(result.Segments)))
	return result, nil
}

// promoteSegments renames ffmpeg's numbered outputs into their final names
// and probes each one for its real duration. Partial renames are reported
// through the returned result so the caller can undo them.
func (s *Splitter) promoteSegments(ctx context.Context, tempDir, original, base string, duration float64, segmentMinutes int) (SplitResult, error) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return SplitResult{}, fmt.Errorf("read temp dir: %w", err)
	}
	raw := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "segment_") && strings.HasSuffix(name, ".wav") {
			raw = append(raw, name)
		}
	}
	if len(raw) == 0 {
		return SplitResult{}, services.Wrap(services.ErrExternalTool, "splitting", "split", "ffmpeg produced no segments for "+original, nil)
	}
	sort.Strings(raw)

	result := SplitResult{OriginMap: make(map[string]string, len(raw))}
	segmentSeconds := float64(segmentMinutes * 60)
	for i, name := range raw {
		dest := filepath.Join(s.outputDir, fmt.Sprintf("%s_part%d.wav", base, i+1))
		if err := os.Rename(filepath.Join(tempDir, name), dest); err != nil {
			return result, fmt.Errorf("rename segment %s: %w", name, err)
		}
		result.Segments = append(result.Segments, dest)
		result.OriginMap[dest] = original

		segDuration := segmentSeconds
		if remaining := duration - float64(i)*segmentSeconds; remaining < segDuration {
			segDuration = remaining
		}
		if probed, err := s.probe(ctx, dest); err == nil {
			if d := probed.DurationSeconds(); d > 0 {
				segDuration = d
			}
		} else {
			s.logger.Warn("could not probe segment; using estimated duration",
				slog.String("segment", dest), logging.Error(err))
		}
		result.SegmentDurations = append(result.SegmentDurations, segDuration)
	}
	return result, nil
}
