package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"starsound/internal/assembler"
	"starsound/internal/config"
	"starsound/internal/fileutil"
	"starsound/internal/filterchain"
	"starsound/internal/history"
	"starsound/internal/logging"
	"starsound/internal/media/ffprobe"
	"starsound/internal/modspec"
	"starsound/internal/notifications"
	"starsound/internal/patch"
	"starsound/internal/services"
	"starsound/internal/services/ffmpeg"
	"starsound/internal/splitting"
	"starsound/internal/textutil"
	"starsound/internal/transcoding"
	"starsound/internal/vanilla"
)

// minOutputSeconds is the shortest output accepted as a real track. Anything
// under this almost always means silence trimming consumed the whole file.
const minOutputSeconds = 6.0

// Runner executes a build plan end to end: validate sources, back up and
// split, convert over the worker pool, synthesize and assemble patches,
// optionally install, then persist the run.
type Runner struct {
	cfg      *config.Config
	index    *vanilla.Index
	client   ffmpeg.Client
	store    *history.Store
	notifier notifications.Service
	logger   *slog.Logger

	// OnConversionEvent receives pool events for progress rendering.
	OnConversionEvent func(transcoding.Event)
	// OnSplitProgress receives ffmpeg progress while oversized files are cut.
	OnSplitProgress func(ffmpeg.Progress)

	probe func(ctx context.Context, path string) (ffprobe.Result, error)
	split func(ctx context.Context, outputDir, path string, segmentMinutes int) (splitting.SplitResult, error)
}

// NewRunner constructs a Runner with the notifier derived from config. store
// may be nil when history is disabled.
func NewRunner(cfg *config.Config, index *vanilla.Index, client ffmpeg.Client, store *history.Store, logger *slog.Logger) *Runner {
	return NewRunnerWithNotifier(cfg, index, client, store, notifications.NewService(cfg), logger)
}

// NewRunnerWithNotifier constructs a Runner with a custom notifier (used in
// tests).
func NewRunnerWithNotifier(cfg *config.Config, index *vanilla.Index, client ffmpeg.Client, store *history.Store, notifier notifications.Service, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	r := &Runner{
		cfg:      cfg,
		index:    index,
		client:   client,
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
	r.probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, cfg.FFprobeBinary(), path)
	}
	r.split = func(ctx context.Context, outputDir, path string, segmentMinutes int) (splitting.SplitResult, error) {
		splitter := splitting.New(r.client, cfg.FFprobeBinary(), outputDir, r.logger)
		sampler := logging.NewProgressSampler(10)
		splitter.OnProgress = func(p ffmpeg.Progress) {
			if sampler.ShouldLog(p.Percent, p.Phase, p.Message) {
				r.logger.Debug("split progress",
					slog.String("input", filepath.Base(path)),
					slog.Float64("percent", p.Percent))
			}
			if r.OnSplitProgress != nil {
				r.OnSplitProgress(p)
			}
		}
		return splitter.Split(ctx, path, segmentMinutes)
	}
	return r
}

// workItem is one file headed for conversion: either an original source or a
// segment cut from one. origin always names the source the user selected.
type workItem struct {
	path     string
	origin   string
	duration float64
}

// Run executes the plan. The returned Report carries per-file and per-biome
// outcomes; the error return is reserved for run-level failures such as an
// invalid plan, a held build lock, or an unwritable mod tree.
func (r *Runner) Run(ctx context.Context, plan modspec.Plan) (*Report, error) {
	if err := plan.Validate(r.index); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.NewString(),
		ModName: plan.ModName,
		Started: time.Now().UTC(),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	unlock, err := r.acquireLock(plan.ModName, logger)
	if err != nil {
		return nil, err
	}
	defer unlock()

	modFolder := textutil.SanitizeFileName(plan.ModName)
	modRoot := filepath.Join(r.cfg.Paths.ModsDir, modFolder)
	backupRoot := filepath.Join(r.cfg.Paths.BackupDir, modFolder)
	originalsDir := filepath.Join(backupRoot, "originals")
	convertedDir := filepath.Join(backupRoot, "converted")
	segmentsDir := filepath.Join(r.cfg.Paths.StagingDir, "segments", report.RunID)
	report.ModRoot = modRoot
	for _, dir := range []string{modRoot, originalsDir, convertedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return r.fatal(ctx, logger, report, services.Wrap(services.ErrTransient, "pipeline", "prepare", dir, err))
		}
	}

	segmentsCleaned := false
	cleanupSegments := func() {
		if segmentsCleaned {
			return
		}
		segmentsCleaned = true
		if err := os.RemoveAll(segmentsDir); err != nil {
			logger.Warn("could not remove segment intermediates", slog.String("dir", segmentsDir), logging.Error(err))
		}
	}
	defer cleanupSegments()

	procs, err := plan.FileProcessing()
	if err != nil {
		return r.fatal(ctx, logger, report, err)
	}

	logger.Info("build started",
		slog.String("mod", plan.ModName),
		slog.Int("sources", len(plan.SourceFiles())),
		slog.Int("biomes", len(plan.Biomes)))

	working := r.prepareSources(ctx, logger, plan, procs, report, originalsDir, segmentsDir)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	jobs := r.buildJobs(working, procs, convertedDir)
	if err := r.notifier.NotifyBuildStarted(ctx, plan.ModName, len(jobs)); err != nil {
		logger.Warn("could not send start notification", logging.Error(err))
	}

	pool := transcoding.NewPool(r.client, r.cfg.Conversion.MaxWorkers, r.logger)
	if t := r.cfg.FFmpeg.ConvertTimeout; t > 0 {
		pool.JobTimeout = time.Duration(t) * time.Second
	}
	summary := pool.RunAll(ctx, jobs, r.conversionEventLogger(logger))
	cleanupSegments()

	r.checkOutputs(ctx, logger, &summary, report)
	report.Converted = summary

	if err := ctx.Err(); err != nil {
		report.Finished = time.Now().UTC()
		r.persistRun(ctx, logger, report)
		return report, err
	}

	if err := r.assemble(ctx, plan, working, report, modRoot); err != nil {
		return r.fatal(ctx, logger, report, err)
	}

	if plan.Install {
		r.install(ctx, logger, plan, report, modRoot)
	}

	report.Finished = time.Now().UTC()
	r.persistRun(ctx, logger, report)
	if err := r.notifier.NotifyBuildCompleted(context.WithoutCancel(ctx), report.ModName, summary.Succeeded, summary.Failed, report.Elapsed()); err != nil {
		logger.Warn("could not send completion notification", logging.Error(err))
	}

	logger.Info("build finished",
		slog.String("mod", report.ModName),
		slog.String("status", report.Status()),
		slog.String("summary", report.Headline()),
		slog.Duration("elapsed", report.Elapsed()))
	return report, nil
}

// conversionEventLogger forwards pool events to the caller's renderer and
// writes sampled progress into the log, one sampler per in-flight job. Pool
// events arrive on a single consumer goroutine, so the map needs no lock.
func (r *Runner) conversionEventLogger(logger *slog.Logger) func(transcoding.Event) {
	samplers := make(map[int]*logging.ProgressSampler)
	return func(ev transcoding.Event) {
		switch ev.Kind {
		case transcoding.EventStarted:
			samplers[ev.Index] = logging.NewProgressSampler(25)
		case transcoding.EventProgress:
			if samplers[ev.Index].ShouldLog(ev.Progress.Percent, ev.Progress.Phase, ev.Progress.Message) {
				logger.Debug("conversion progress",
					slog.String("input", filepath.Base(ev.Job.InputPath)),
					slog.Float64("percent", ev.Progress.Percent))
			}
		case transcoding.EventFinished:
			delete(samplers, ev.Index)
		}
		if r.OnConversionEvent != nil {
			r.OnConversionEvent(ev)
		}
	}
}

// acquireLock takes the per-mod build lock. A held lock means another build
// for the same mod is running; that is a conflict, not a wait.
func (r *Runner) acquireLock(modName string, logger *slog.Logger) (func(), error) {
	lockDir := r.cfg.LockDir()
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock", lockDir, err)
	}
	lockPath := filepath.Join(lockDir, textutil.SanitizeToken(modName)+".lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock", lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConflict, "pipeline", "lock", "another build is already running for "+modName, nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("could not release build lock", slog.String("path", lockPath), logging.Error(err))
		}
	}, nil
}

// prepareSources validates each selected file, backs it up, and splits it
// when it exceeds the track length cap. Files that cannot be converted are
// recorded in the report and dropped from the working set.
func (r *Runner) prepareSources(ctx context.Context, logger *slog.Logger, plan modspec.Plan, procs map[string]modspec.Processing, report *Report, originalsDir, segmentsDir string) []workItem {
	var working []workItem
	maxBytes := int64(r.cfg.Conversion.MaxFileMB) * 1024 * 1024

	for _, source := range plan.SourceFiles() {
		if ctx.Err() != nil {
			return working
		}

		info, err := os.Stat(source)
		if err != nil {
			report.Skipped = append(report.Skipped, source+": not found")
			logger.Warn("source missing; skipping", slog.String("file", source))
			continue
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %s exceeds the %d MB cap", source, humanize.Bytes(uint64(info.Size())), r.cfg.Conversion.MaxFileMB))
			logger.Warn("source too large; skipping",
				slog.String("file", source),
				slog.Int64("size_bytes", info.Size()))
			continue
		}

		probeCtx, cancel := r.probeContext(ctx)
		media, err := r.probe(probeCtx, source)
		cancel()
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", source, err))
			logger.Warn("could not inspect source; skipping", slog.String("file", source), logging.Error(err))
			continue
		}
		if media.AudioStreamCount() == 0 {
			report.Skipped = append(report.Skipped, source+": no audio stream")
			logger.Warn("source has no audio stream; skipping", slog.String("file", source))
			continue
		}
		duration := media.DurationSeconds()

		if err := r.backupOriginal(source, originalsDir); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: backup failed: %v", source, err))
			logger.Warn("could not back up original", slog.String("file", source), logging.Error(err))
		}

		if !splitting.NeedsSplit(duration/60, r.cfg.Conversion.MaxTrackMinutes) {
			working = append(working, workItem{path: source, origin: source, duration: duration})
			continue
		}

		segMinutes := procs[source].SegmentMinutes
		if segMinutes <= 0 {
			segMinutes = r.cfg.Conversion.DefaultSegmentMinutes
		}
		if limit := r.cfg.Conversion.MaxTrackMinutes; limit > 0 && segMinutes > limit {
			segMinutes = limit
		}
		splitCtx, cancel := r.splitContext(ctx)
		res, err := r.split(splitCtx, segmentsDir, source, segMinutes)
		cancel()
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", source, err))
			logger.Warn("split failed; skipping source", slog.String("file", source), logging.Error(err))
			continue
		}
		for i, segment := range res.Segments {
			working = append(working, workItem{path: segment, origin: source, duration: res.SegmentDurations[i]})
		}
		logger.Info("split oversized source",
			slog.String("file", source),
			slog.Int("segments", len(res.Segments)))
	}
	return working
}

// backupOriginal copies the source into the mod's originals dir, skipping
// files already backed up with identical content.
func (r *Runner) backupOriginal(source, originalsDir string) error {
	dest := filepath.Join(originalsDir, filepath.Base(source))
	if _, err := os.Stat(dest); err == nil {
		same, err := fileutil.SameContent(source, dest)
		if err == nil && same {
			return nil
		}
	}
	return fileutil.CopyFileVerified(source, dest)
}

// buildJobs turns the working set into conversion jobs, one per input path.
// A segment inherits its origin's processing; output names are sanitized and
// deduplicated so two inputs never write the same .ogg.
func (r *Runner) buildJobs(working []workItem, procs map[string]modspec.Processing, convertedDir string) []transcoding.ConversionJob {
	jobs := make([]transcoding.ConversionJob, 0, len(working))
	seenInput := make(map[string]bool, len(working))
	usedName := make(map[string]bool, len(working))

	for _, item := range working {
		if seenInput[item.path] {
			continue
		}
		seenInput[item.path] = true

		proc := procs[item.origin]
		opts := proc.EffectiveOptions()
		bitrate := proc.BitrateKbps
		if bitrate <= 0 {
			bitrate = r.cfg.Conversion.BitrateKbps
		}
		channels := 2
		if opts.DownmixMono {
			channels = 1
		}

		base := textutil.SanitizeFileName(strings.TrimSuffix(filepath.Base(item.path), filepath.Ext(item.path)))
		if base == "" {
			base = "track"
		}
		name := base
		for n := 2; usedName[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		usedName[name] = true

		jobs = append(jobs, transcoding.ConversionJob{
			InputPath:       item.path,
			OutputPath:      filepath.Join(convertedDir, name+".ogg"),
			BitrateKbps:     bitrate,
			Channels:        channels,
			FilterChain:     filterchain.Build(opts, item.duration/60),
			DurationSeconds: item.duration,
		})
	}
	return jobs
}

// checkOutputs probes each successful conversion. Outputs shorter than
// minOutputSeconds fail the job after the fact; outputs under half the
// source length pass with a warning.
func (r *Runner) checkOutputs(ctx context.Context, logger *slog.Logger, summary *transcoding.Summary, report *Report) {
	for i := range summary.Results {
		result := summary.Results[i]
		if result.Err != nil {
			continue
		}
		probeCtx, cancel := r.probeContext(ctx)
		media, err := r.probe(probeCtx, result.Job.OutputPath)
		cancel()
		if err != nil {
			logger.Warn("could not inspect converted output", slog.String("file", result.Job.OutputPath), logging.Error(err))
			continue
		}
		duration := media.DurationSeconds()
		if duration <= 0 {
			continue
		}
		name := filepath.Base(result.Job.OutputPath)
		if duration < minOutputSeconds {
			summary.Fail(i, services.Wrap(services.ErrValidation, "pipeline", "check output",
				fmt.Sprintf("%s runs %.1fs; silence trimming may have removed the whole track", name, duration), nil))
			continue
		}
		if input := result.Job.DurationSeconds; input > 0 && duration < input/2 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: converted length %.1fs is under half the %.1fs source", name, duration, input))
			logger.Warn("output much shorter than source",
				slog.String("file", name),
				slog.Float64("output_seconds", duration),
				slog.Float64("input_seconds", input))
		}
	}
}

// assemble resolves each biome's selection against the conversion results,
// synthesizes its patch, and lays out the mod tree. Biome failures are
// collected in the report; only mod-level writes abort.
func (r *Runner) assemble(ctx context.Context, plan modspec.Plan, working []workItem, report *Report, modRoot string) error {
	successOutput := make(map[string]string, len(report.Converted.Results))
	for _, result := range report.Converted.Results {
		if result.Err == nil {
			successOutput[result.Job.InputPath] = result.Job.OutputPath
		}
	}
	outputs := make(map[string][]patch.SourceTrack)
	for _, item := range working {
		if out, ok := successOutput[item.path]; ok {
			outputs[item.origin] = append(outputs[item.origin], patch.SourceTrack{
				Path:         out,
				OriginalName: filepath.Base(item.origin),
			})
		}
	}
	resolve := func(ref modspec.TrackRef) ([]patch.SourceTrack, error) {
		tracks := outputs[ref.File]
		if len(tracks) == 0 {
			return nil, services.Wrap(services.ErrNotFound, "pipeline", "resolve", "no converted output for "+ref.File, nil)
		}
		return tracks, nil
	}

	asm := assembler.New(r.logger)
	if err := asm.ResetPatches(modRoot); err != nil {
		return err
	}

	keys, err := plan.BiomeKeys()
	if err != nil {
		return err
	}
	entries, err := plan.Entries()
	if err != nil {
		return err
	}
	for _, key := range keys {
		biome := BiomeReport{Biome: key}
		blog := logging.WithContext(services.WithBiome(ctx, key.String()), r.logger)
		selection, err := entries[key].Selection(resolve)
		if err != nil {
			biome.Err = err
			blog.Warn("biome patch failed", logging.Error(err))
			report.Biomes = append(report.Biomes, biome)
			continue
		}
		ops, copies, err := patch.Synthesize(key, selection, r.index)
		var stale *patch.StaleIndexError
		if err != nil && !errors.As(err, &stale) {
			biome.Err = err
			blog.Warn("biome patch failed", logging.Error(err))
			report.Biomes = append(report.Biomes, biome)
			continue
		}
		// A stale-index error still yields the valid subset; assemble it and
		// keep the error visible in the report.
		biome.Err = err
		biome.Ops = len(ops)
		biome.Copies = len(copies)
		if aerr := asm.Assemble(modRoot, key, ops, copies); aerr != nil {
			biome.Err = aerr
		}
		if biome.Err != nil {
			blog.Warn("biome patch failed", logging.Error(biome.Err))
		} else {
			blog.Info("biome patched", slog.Int("ops", biome.Ops), slog.Int("copies", biome.Copies))
		}
		report.Biomes = append(report.Biomes, biome)
	}

	meta := assembler.Metadata{
		FriendlyName: plan.ModName,
		Author:       plan.Author,
		Description:  plan.Description,
		Version:      plan.Version,
	}
	return asm.WriteMetadata(modRoot, meta)
}

// install exports the finished mod tree. Install failures never fail the
// run; the mod is still fully built under the mods dir.
func (r *Runner) install(ctx context.Context, logger *slog.Logger, plan modspec.Plan, report *Report, modRoot string) {
	dest := strings.TrimSpace(plan.InstallDir)
	if dest == "" {
		dest = r.cfg.Paths.InstallDir
	}
	if dest == "" {
		report.Warnings = append(report.Warnings, "install requested but no install directory is configured")
		return
	}
	asm := assembler.New(r.logger)
	installed, err := asm.Install(modRoot, dest)
	if err != nil {
		report.InstallErr = err
		logger.Warn("install failed", logging.Error(err))
		return
	}
	report.Installed = installed
	if err := r.notifier.NotifyModInstalled(ctx, plan.ModName, installed); err != nil {
		logger.Warn("could not send install notification", logging.Error(err))
	}
}

// persistRun writes the run and its jobs to the history ledger and prunes
// old rows. Bookkeeping failures are logged, never fatal.
func (r *Runner) persistRun(ctx context.Context, logger *slog.Logger, report *Report) {
	if r.store == nil {
		return
	}
	run := history.Run{
		ID:         report.RunID,
		ModName:    report.ModName,
		StartedAt:  report.Started,
		FinishedAt: report.Finished,
		Status:     report.Status(),
		Succeeded:  report.Converted.Succeeded,
		Failed:     report.Converted.Failed,
		Message:    report.Headline(),
	}
	jobs := make([]history.Job, 0, len(report.Converted.Results))
	for _, result := range report.Converted.Results {
		job := history.Job{
			RunID:    report.RunID,
			Input:    result.Job.InputPath,
			Output:   result.Job.OutputPath,
			Status:   history.JobSucceeded,
			Duration: result.Elapsed,
		}
		if result.Err != nil {
			job.Status = history.JobFailed
			job.Error = result.Err.Error()
		}
		jobs = append(jobs, job)
	}

	recordCtx := context.WithoutCancel(ctx)
	if err := r.store.RecordRun(recordCtx, run, jobs); err != nil {
		logger.Warn("could not record run history", logging.Error(err))
		return
	}
	if keep := r.cfg.History.KeepRuns; keep > 0 {
		if _, err := r.store.Prune(recordCtx, keep); err != nil {
			logger.Warn("could not prune run history", logging.Error(err))
		}
	}
}

// fatal finalizes the report for a run-level failure and pushes an error
// notification before returning.
func (r *Runner) fatal(ctx context.Context, logger *slog.Logger, report *Report, err error) (*Report, error) {
	report.Finished = time.Now().UTC()
	if nerr := r.notifier.NotifyError(context.WithoutCancel(ctx), err, "building "+report.ModName); nerr != nil {
		logger.Warn("could not send error notification", logging.Error(nerr))
	}
	return report, err
}

func (r *Runner) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := r.cfg.FFmpeg.ProbeTimeout; t > 0 {
		return context.WithTimeout(ctx, time.Duration(t)*time.Second)
	}
	return context.WithCancel(ctx)
}

func (r *Runner) splitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := r.cfg.FFmpeg.SplitTimeout; t > 0 {
		return context.WithTimeout(ctx, time.Duration(t)*time.Second)
	}
	return context.WithCancel(ctx)
}
