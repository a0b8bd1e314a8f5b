package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"starsound/internal/config"
	"starsound/internal/history"
	"starsound/internal/media/ffprobe"
	"starsound/internal/modspec"
	"starsound/internal/services"
	"starsound/internal/services/ffmpeg"
	"starsound/internal/splitting"
	"starsound/internal/vanilla"
)

type fakeClient struct {
	mu       sync.Mutex
	fail     map[string]bool
	converts []string
}

func (c *fakeClient) Convert(_ context.Context, req ffmpeg.ConvertRequest) (ffmpeg.ConvertResult, error) {
	c.mu.Lock()
	c.converts = append(c.converts, req.InputPath)
	c.mu.Unlock()
	if c.fail[req.InputPath] {
		return ffmpeg.ConvertResult{}, errors.New("ffmpeg convert failed: exit status 1")
	}
	if err := os.WriteFile(req.OutputPath, []byte("OggS "+filepath.Base(req.InputPath)), 0o644); err != nil {
		return ffmpeg.ConvertResult{}, err
	}
	return ffmpeg.ConvertResult{OutputPath: req.OutputPath}, nil
}

func (c *fakeClient) Split(context.Context, ffmpeg.SplitRequest) error {
	return errors.New("pipeline must go through the splitter, not the raw client")
}

type fakeNotifier struct {
	started      int
	startedFiles int
	completed    int
	installed    int
	errored      int
}

func (f *fakeNotifier) NotifyBuildStarted(_ context.Context, _ string, fileCount int) error {
	f.started++
	f.startedFiles = fileCount
	return nil
}

func (f *fakeNotifier) NotifyBuildCompleted(context.Context, string, int, int, time.Duration) error {
	f.completed++
	return nil
}

func (f *fakeNotifier) NotifyModInstalled(context.Context, string, string) error {
	f.installed++
	return nil
}

func (f *fakeNotifier) NotifyError(context.Context, error, string) error {
	f.errored++
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(root, "staging")
	cfg.Paths.ModsDir = filepath.Join(root, "mods")
	cfg.Paths.BackupDir = filepath.Join(root, "backup")
	cfg.Paths.PlansDir = filepath.Join(root, "plans")
	cfg.Paths.StateDir = filepath.Join(root, "state")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.InstallDir = ""
	cfg.Notifications.NtfyTopic = ""
	return &cfg
}

func testIndex() *vanilla.Index {
	return vanilla.NewIndex(map[vanilla.BiomeKey]vanilla.Tracks{
		{Category: "surface", Biome: "forest"}: {
			Day:   []string{"/music/forest-loop.ogg", "/music/atlas.ogg", "/music/jupiter.ogg"},
			Night: []string{"/music/haiku.ogg", "/music/mira.ogg"},
		},
		{Category: "surface", Biome: "desert"}: {
			Day:   []string{"/music/desert-exploration.ogg"},
			Night: []string{"/music/nomads.ogg"},
		},
	})
}

func audioResult(seconds float64) ffprobe.Result {
	return ffprobe.Result{
		Format:  ffprobe.Format{Duration: strconv.FormatFloat(seconds, 'f', -1, 64), Size: "4096"},
		Streams: []ffprobe.Stream{{CodecType: "audio", Channels: 2, SampleRate: "44100", CodecName: "flac"}},
	}
}

// newTestRunner wires a Runner with a real history store, the fake client,
// and a probe that answers from durations (default 60s for anything else,
// i.e. converted outputs).
func newTestRunner(t *testing.T, cfg *config.Config, client ffmpeg.Client, notifier *fakeNotifier, durations map[string]float64) (*Runner, *history.Store) {
	t.Helper()
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	r := NewRunnerWithNotifier(cfg, testIndex(), client, store, notifier, nil)
	r.probe = func(_ context.Context, path string) (ffprobe.Result, error) {
		if d, ok := durations[path]; ok {
			return audioResult(d), nil
		}
		return audioResult(60), nil
	}
	return r, store
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fLaC"+name), 0o644); err != nil {
		t.Fatalf("write source %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunBuildsCompleteMod(t *testing.T) {
	cfg := testConfig(t)
	srcDir := t.TempDir()
	sunrise := writeSource(t, srcDir, "sunrise.flac")
	moonlight := writeSource(t, srcDir, "moonlight.flac")
	swap := writeSource(t, srcDir, "swap.flac")

	plan := modspec.Plan{
		ModName:  "Cosmic Beats",
		Author:   "Jess",
		Version:  "2.0.0",
		Defaults: modspec.Processing{Preset: "electronic", BitrateKbps: 192},
		Biomes: map[string]modspec.BiomeEntry{
			"surface/forest": {
				Mode:  modspec.ModeAdd,
				Day:   []modspec.TrackRef{{File: sunrise}},
				Night: []modspec.TrackRef{{File: moonlight}},
			},
			"surface/desert": {
				Mode:       modspec.ModeReplace,
				ReplaceDay: map[string]modspec.TrackRef{"0": {File: swap}},
			},
		},
	}

	notifier := &fakeNotifier{}
	runner, store := newTestRunner(t, cfg, &fakeClient{}, notifier, map[string]float64{
		sunrise: 120, moonlight: 120, swap: 120,
	})

	report, err := runner.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status() != history.StatusCompleted {
		t.Fatalf("status = %s, report = %+v", report.Status(), report)
	}
	if report.Converted.Succeeded != 3 || report.Converted.Failed != 0 {
		t.Fatalf("converted = %+v", report.Converted)
	}
	if len(report.Biomes) != 2 || report.PatchedBiomes() != 2 {
		t.Fatalf("biomes = %+v", report.Biomes)
	}

	modRoot := filepath.Join(cfg.Paths.ModsDir, "Cosmic Beats")
	if report.ModRoot != modRoot {
		t.Fatalf("mod root = %q", report.ModRoot)
	}
	for _, rel := range []string{
		"music/sunrise.ogg",
		"music/moonlight.ogg",
		"music_replacers/desert-exploration.ogg",
	} {
		if _, err := os.Stat(filepath.Join(modRoot, rel)); err != nil {
			t.Fatalf("expected mod file %s: %v", rel, err)
		}
	}

	forestPatch := readFile(t, filepath.Join(modRoot, "biomes", "surface", "forest.biome.patch"))
	if !strings.Contains(forestPatch, `"path": "/musicTrack/day/tracks/-"`) ||
		!strings.Contains(forestPatch, `"value":"/music/sunrise.ogg"`) {
		t.Fatalf("forest patch:\n%s", forestPatch)
	}
	desertPatch := readFile(t, filepath.Join(modRoot, "biomes", "surface", "desert.biome.patch"))
	if !strings.Contains(desertPatch, `"op":"replace"`) ||
		!strings.Contains(desertPatch, `"value":"/music_replacers/desert-exploration.ogg"`) {
		t.Fatalf("desert patch:\n%s", desertPatch)
	}

	meta := readFile(t, filepath.Join(modRoot, "_metadata"))
	if !strings.Contains(meta, `"friendlyName": "Cosmic Beats"`) || !strings.Contains(meta, `"author": "Jess"`) {
		t.Fatalf("metadata:\n%s", meta)
	}

	backup := filepath.Join(cfg.Paths.BackupDir, "Cosmic Beats", "originals", "sunrise.flac")
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("expected backup of original: %v", err)
	}

	runs, err := store.ListRuns(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v, err = %v", runs, err)
	}
	if runs[0].ID != report.RunID || runs[0].Status != history.StatusCompleted || runs[0].Succeeded != 3 {
		t.Fatalf("run row = %+v", runs[0])
	}
	jobs, err := store.RunJobs(context.Background(), report.RunID)
	if err != nil || len(jobs) != 3 {
		t.Fatalf("jobs = %v, err = %v", jobs, err)
	}

	if notifier.started != 1 || notifier.startedFiles != 3 || notifier.completed != 1 {
		t.Fatalf("notifier = %+v", notifier)
	}
}

func TestRunSkipsMissingSourcesAndContinues(t *testing.T) {
	cfg := testConfig(t)
	srcDir := t.TempDir()
	real := writeSource(t, srcDir, "real.flac")
	ghost := filepath.Join(srcDir, "ghost.flac")

	plan := modspec.Plan{
		ModName:  "Half There",
		Defaults: modspec.Processing{BitrateKbps: 192},
		Biomes: map[string]modspec.BiomeEntry{
			"surface/forest": {Mode: modspec.ModeAdd, Day: []modspec.TrackRef{{File: real}}},
			"surface/desert": {Mode: modspec.ModeAdd, Day: []modspec.TrackRef{{File: ghost}}},
		},
	}

	runner, _ := newTestRunner(t, cfg, &fakeClient{}, &fakeNotifier{}, map[string]float64{real: 90})
	report, err := runner.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Skipped) != 1 || !strings.Contains(report.Skipped[0], "not found") {
		t.Fatalf("skipped = %v", report.Skipped)
	}
	if report.Converted.Succeeded != 1 {
		t.Fatalf("converted = %+v", report.Converted)
	}
	if report.Status() != history.StatusPartial {
		t.Fatalf("status = %s", report.Status())
	}

	var desert, forest *BiomeReport
	for i := range report.Biomes {
		switch report.Biomes[i].Biome.Biome {
		case "desert":
			desert = &report.Biomes[i]
		case "forest":
			forest = &report.Biomes[i]
		}
	}
	if forest == nil || forest.Err != nil {
		t.Fatalf("forest biome = %+v", forest)
	}
	if desert == nil || desert.Err == nil || !errors.Is(desert.Err, services.ErrNotFound) {
		t.Fatalf("desert biome = %+v", desert)
	}

	modRoot := filepath.Join(cfg.Paths.ModsDir, "Half There")
	if _, err := os.Stat(filepath.Join(modRoot, "biomes", "surface", "forest.biome.patch")); err != nil {
		t.Fatalf("forest patch missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(modRoot, "biomes", "surface", "desert.biome.patch")); !os.IsNotExist(err) {
		t.Fatalf("desert patch should not exist, stat err = %v", err)
	}
}

func TestRunSplitsOversizedSources(t *testing.T) {
	cfg := testConfig(t)
	srcDir := t.TempDir()
	long := writeSource(t, srcDir, "long voyage.flac")

	plan := modspec.Plan{
		ModName:  "Long Haul",
		Defaults: modspec.Processing{BitrateKbps: 192},
		Biomes: map[string]modspec.BiomeEntry{
			"surface/forest": {
				Mode: modspec.ModeAdd,
				Day:  []modspec.TrackRef{{File: long, Processing: &modspec.Processing{SegmentMinutes: 10}}},
			},
		},
	}

	convertedDir := filepath.Join(cfg.Paths.BackupDir, "Long Haul", "converted")
	durations := map[string]float64{
		long: 2400, // 40 minutes, over the 30 minute cap
		filepath.Join(convertedDir, "long voyage_part1.ogg"): 590,
		filepath.Join(convertedDir, "long voyage_part2.ogg"): 560,
	}
	client := &fakeClient{}
	runner, _ := newTestRunner(t, cfg, client, &fakeNotifier{}, durations)

	var gotSegMinutes int
	runner.split = func(_ context.Context, outputDir, path string, segmentMinutes int) (splitting.SplitResult, error) {
		gotSegMinutes = segmentMinutes
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return splitting.SplitResult{}, err
		}
		seg1 := filepath.Join(outputDir, "long voyage_part1.wav")
		seg2 := filepath.Join(outputDir, "long voyage_part2.wav")
		for _, seg := range []string{seg1, seg2} {
			if err := os.WriteFile(seg, []byte("RIFF"), 0o644); err != nil {
				return splitting.SplitResult{}, err
			}
		}
		return splitting.SplitResult{
			Segments:         []string{seg1, seg2},
			SegmentDurations: []float64{600, 572},
			OriginMap:        map[string]string{seg1: path, seg2: path},
		}, nil
	}

	report, err := runner.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotSegMinutes != 10 {
		t.Fatalf("segment minutes = %d, want the per-file override", gotSegMinutes)
	}
	if report.Converted.Succeeded != 2 {
		t.Fatalf("converted = %+v", report.Converted)
	}
	if report.Status() != history.StatusCompleted {
		t.Fatalf("status = %s, warnings = %v, biomes = %+v", report.Status(), report.Warnings, report.Biomes)
	}
	for _, input := range client.converts {
		if filepath.Ext(input) != ".wav" {
			t.Fatalf("converted the unsplit original: %v", client.converts)
		}
	}

	patch := readFile(t, filepath.Join(report.ModRoot, "biomes", "surface", "forest.biome.patch"))
	if !strings.Contains(patch, "/music/long voyage_part1.ogg") || !strings.Contains(patch, "/music/long voyage_part2.ogg") {
		t.Fatalf("patch does not add both segments:\n%s", patch)
	}

	segRunDir := filepath.Join(cfg.Paths.StagingDir, "segments", report.RunID)
	if _, err := os.Stat(segRunDir); !os.IsNotExist(err) {
		t.Fatalf("segment intermediates not cleaned up, stat err = %v", err)
	}
}

func TestRunRejectsConcurrentBuildOfSameMod(t *testing.T) {
	cfg := testConfig(t)
	srcDir := t.TempDir()
	track := writeSource(t, srcDir, "track.flac")

	plan := modspec.Plan{
		ModName:  "Cosmic Beats",
		Defaults: modspec.Processing{BitrateKbps: 192},
		Biomes: map[string]modspec.BiomeEntry{
			"surface/forest": {Mode: modspec.ModeAdd, Day: []modspec.TrackRef{{File: track}}},
		},
	}

	if err := os.MkdirAll(cfg.LockDir(), 0o755); err != nil {
		t.Fatalf("mkdir lock dir: %v", err)
	}
	held := flock.New(filepath.Join(cfg.LockDir(), "cosmic_beats.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("could not pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	runner, _ := newTestRunner(t, cfg, &fakeClient{}, &fakeNotifier{}, map[string]float64{track: 60})
	_, err = runner.Run(context.Background(), plan)
	if err == nil || !errors.Is(err, services.ErrConflict) {
		t.Fatalf("want conflict error, got %v", err)
	}
}

func TestRunChecksOutputDurations(t *testing.T) {
	cfg := testConfig(t)
	srcDir := t.TempDir()
	vanished := writeSource(t, srcDir, "vanished.flac")
	shrunk := writeSource(t, srcDir, "shrunk.flac")

	plan := modspec.Plan{
		ModName:  "Trim Check",
		Defaults: modspec.Processing{Preset: "orchestral", BitrateKbps: 192},
		Biomes: map[string]modspec.BiomeEntry{
			"surface/forest": {Mode: modspec.ModeAdd, Day: []modspec.TrackRef{{File: vanished}}},
			"surface/desert": {Mode: modspec.ModeAdd, Day: []modspec.TrackRef{{File: shrunk}}},
		},
	}

	convertedDir := filepath.Join(cfg.Paths.BackupDir, "Trim Check", "converted")
	durations := map[string]float64{
		vanished: 120,
		shrunk:   120,
		filepath.Join(convertedDir, "vanished.ogg"): 3,  // silence trim ate it
		filepath.Join(convertedDir, "shrunk.ogg"):   40, // under half, still usable
	}
	runner, store := newTestRunner(t, cfg, &fakeClient{}, &fakeNotifier{}, durations)

	report, err := runner.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Converted.Succeeded != 1 || report.Converted.Failed != 1 {
		t.Fatalf("converted = %+v", report.Converted)
	}
	if len(report.Converted.Errors) != 1 || !strings.Contains(report.Converted.Errors[0], "silence trimming") {
		t.Fatalf("errors = %v", report.Converted.Errors)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "under half") {
		t.Fatalf("warnings = %v", report.Warnings)
	}
	if report.Status() != history.StatusPartial {
		t.Fatalf("status = %s", report.Status())
	}

	jobs, err := store.RunJobs(context.Background(), report.RunID)
	if err != nil || len(jobs) != 2 {
		t.Fatalf("jobs = %v, err = %v", jobs, err)
	}
	failed := 0
	for _, job := range jobs {
		if job.Status == history.JobFailed {
			failed++
			if !strings.Contains(job.Error, "silence trimming") {
				t.Fatalf("failed job error = %q", job.Error)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("failed jobs = %d", failed)
	}
}

func TestRunInstallsWhenRequested(t *testing.T) {
	cfg := testConfig(t)
	srcDir := t.TempDir()
	track := writeSource(t, srcDir, "anthem.flac")
	gameMods := filepath.Join(t.TempDir(), "starbound", "mods")

	plan := modspec.Plan{
		ModName:    "Install Me",
		Install:    true,
		InstallDir: gameMods,
		Defaults:   modspec.Processing{BitrateKbps: 192},
		Biomes: map[string]modspec.BiomeEntry{
			"surface/forest": {Mode: modspec.ModeAdd, Day: []modspec.TrackRef{{File: track}}},
		},
	}

	notifier := &fakeNotifier{}
	runner, _ := newTestRunner(t, cfg, &fakeClient{}, notifier, map[string]float64{track: 60})
	report, err := runner.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := filepath.Join(gameMods, "Install Me")
	if report.Installed != want {
		t.Fatalf("installed = %q, want %q", report.Installed, want)
	}
	if _, err := os.Stat(filepath.Join(want, "_metadata")); err != nil {
		t.Fatalf("installed tree incomplete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(want, "music", "anthem.ogg")); err != nil {
		t.Fatalf("installed tree missing music: %v", err)
	}
	if notifier.installed != 1 {
		t.Fatalf("notifier = %+v", notifier)
	}
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg, &fakeClient{}, &fakeNotifier{}, nil)

	_, err := runner.Run(context.Background(), modspec.Plan{ModName: "No Biomes"})
	if err == nil || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestReportStatusAndHeadline(t *testing.T) {
	report := &Report{}
	report.Converted.Succeeded = 3
	report.Biomes = []BiomeReport{{}, {}}
	if report.Status() != history.StatusCompleted {
		t.Fatalf("status = %s", report.Status())
	}
	if got := report.Headline(); got != "3 converted, 2/2 biomes patched" {
		t.Fatalf("headline = %q", got)
	}

	report.Converted.Failed = 1
	report.Skipped = []string{"gone.flac: not found"}
	report.Biomes[1].Err = errors.New("no converted output")
	if report.Status() != history.StatusPartial {
		t.Fatalf("status = %s", report.Status())
	}
	if got := report.Headline(); got != "3 converted, 1 failed, 1 skipped, 1/2 biomes patched" {
		t.Fatalf("headline = %q", got)
	}

	report = &Report{}
	report.Skipped = []string{"gone.flac: not found"}
	if report.Status() != history.StatusFailed {
		t.Fatalf("status = %s", report.Status())
	}
}
