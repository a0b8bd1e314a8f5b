package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"starsound/internal/config"
	"starsound/internal/filterchain"
	"starsound/internal/media/ffprobe"
	"starsound/internal/services"
	"starsound/internal/textutil"
	"starsound/internal/transcoding"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var preset string
	var bitrate int
	var workers int
	var mono bool
	var normalize bool
	var fadeIn float64
	var fadeOut float64
	var trimStart string
	var trimEnd string

	cmd := &cobra.Command{
		Use:   "convert <files...>",
		Short: "Convert audio files to game-ready Ogg Vorbis",
		Long: "Convert transcodes files without touching any mod folder. Useful for\n" +
			"previewing how a preset sounds before committing it to a plan.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := convertOptions(preset, mono, normalize, fadeIn, fadeOut, trimStart, trimEnd)
			if err != nil {
				return err
			}
			kbps := bitrate
			if kbps == 0 {
				kbps = cfg.Conversion.BitrateKbps
			}
			if !config.SupportedBitrate(kbps) {
				return services.Wrap(services.ErrValidation, "cli", "convert", fmt.Sprintf("bitrate %d kbps is not supported", kbps), nil)
			}

			destDir, err := filepath.Abs(outputDir)
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "convert", outputDir, err)
			}
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return services.Wrap(services.ErrTransient, "cli", "convert", destDir, err)
			}

			jobs, skipped := convertJobs(cmd.Context(), cfg, args, opts, kbps, destDir)
			for _, reason := range skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "skipping %s\n", reason)
			}
			if len(jobs) == 0 {
				return services.Wrap(services.ErrValidation, "cli", "convert", "no readable audio files given", nil)
			}

			logger, err := ctx.fileLogger()
			if err != nil {
				return err
			}
			client, err := ctx.ffmpegClient()
			if err != nil {
				return err
			}
			poolWorkers := workers
			if poolWorkers == 0 {
				poolWorkers = cfg.Conversion.MaxWorkers
			}
			pool := transcoding.NewPool(client, poolWorkers, logger)
			if t := cfg.FFmpeg.ConvertTimeout; t > 0 {
				pool.JobTimeout = time.Duration(t) * time.Second
			}

			progress := newBuildProgress(cmd.OutOrStdout())
			summary := pool.RunAll(cmd.Context(), jobs, progress.ConversionEvent)
			progress.Finish()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%d of %d converted to %s\n", summary.Succeeded, summary.Total, destDir)
			for _, msg := range summary.Errors {
				fmt.Fprintf(out, "  - %s\n", statusErrorText(msg))
			}
			if summary.ErrorOverflow > 0 {
				fmt.Fprintf(out, "  ... and %d more\n", summary.ErrorOverflow)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d conversions failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory for converted files")
	cmd.Flags().StringVar(&preset, "preset", "", "Processing preset (see `starsound presets`)")
	cmd.Flags().IntVar(&bitrate, "bitrate", 0, "Output bitrate in kbps (128, 192, 256, or 320)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent conversions (defaults to config)")
	cmd.Flags().BoolVar(&mono, "mono", false, "Downmix to mono")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Apply loudness normalization")
	cmd.Flags().Float64Var(&fadeIn, "fade-in", 0, "Fade-in length in seconds")
	cmd.Flags().Float64Var(&fadeOut, "fade-out", 0, "Fade-out length in seconds")
	cmd.Flags().StringVar(&trimStart, "trim-start", "", "Trim start time (e.g. 1m30s)")
	cmd.Flags().StringVar(&trimEnd, "trim-end", "", "Trim end time")
	return cmd
}

// convertOptions expands the preset, then applies the explicit flags on top
// of it.
func convertOptions(preset string, mono, normalize bool, fadeIn, fadeOut float64, trimStart, trimEnd string) (filterchain.Options, error) {
	var opts filterchain.Options
	if name := strings.ToLower(strings.TrimSpace(preset)); name != "" {
		found, ok := filterchain.Preset(name)
		if !ok {
			return filterchain.Options{}, services.Wrap(services.ErrValidation, "cli", "convert",
				fmt.Sprintf("unknown preset %q (have %s)", preset, strings.Join(filterchain.PresetNames(), ", ")), nil)
		}
		opts = found
	}
	if mono {
		opts.DownmixMono = true
	}
	if normalize {
		opts.Normalize = true
	}
	if fadeIn > 0 {
		opts.FadeInSeconds = fadeIn
	}
	if fadeOut > 0 {
		opts.FadeOutSeconds = fadeOut
	}
	if strings.TrimSpace(trimStart) != "" {
		opts.Trim.Start = strings.TrimSpace(trimStart)
	}
	if strings.TrimSpace(trimEnd) != "" {
		opts.Trim.End = strings.TrimSpace(trimEnd)
	}
	return opts, nil
}

func convertJobs(ctx context.Context, cfg *config.Config, files []string, opts filterchain.Options, kbps int, destDir string) ([]transcoding.ConversionJob, []string) {
	var jobs []transcoding.ConversionJob
	var skipped []string
	usedName := make(map[string]bool, len(files))
	channels := 2
	if opts.DownmixMono {
		channels = 1
	}

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			skipped = append(skipped, file+": not found")
			continue
		}
		probeCtx := ctx
		var cancel context.CancelFunc = func() {}
		if t := cfg.FFmpeg.ProbeTimeout; t > 0 {
			probeCtx, cancel = context.WithTimeout(ctx, time.Duration(t)*time.Second)
		}
		media, err := ffprobe.Inspect(probeCtx, cfg.FFprobeBinary(), file)
		cancel()
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		if media.AudioStreamCount() == 0 {
			skipped = append(skipped, file+": no audio stream")
			continue
		}
		duration := media.DurationSeconds()

		base := textutil.SanitizeFileName(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
		if base == "" {
			base = "track"
		}
		name := base
		for n := 2; usedName[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		usedName[name] = true

		jobs = append(jobs, transcoding.ConversionJob{
			InputPath:       file,
			OutputPath:      filepath.Join(destDir, name+".ogg"),
			BitrateKbps:     kbps,
			Channels:        channels,
			FilterChain:     filterchain.Build(opts, duration/60),
			DurationSeconds: duration,
		})
	}
	return jobs, skipped
}
