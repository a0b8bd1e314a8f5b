package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"starsound/internal/media/ffprobe"
	"starsound/internal/splitting"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "probe <files...>",
		Short: "Inspect audio files and flag anything a build would reject",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			type probeRow struct {
				File      string  `json:"file"`
				Duration  float64 `json:"durationSeconds"`
				Codec     string  `json:"codec,omitempty"`
				Channels  int     `json:"channels,omitempty"`
				SampleHz  int     `json:"sampleRate,omitempty"`
				SizeBytes int64   `json:"sizeBytes,omitempty"`
				NeedsCut  bool    `json:"needsSplit"`
				Error     string  `json:"error,omitempty"`
			}

			results := make([]probeRow, 0, len(args))
			failures := 0
			for _, file := range args {
				probeCtx := cmd.Context()
				var cancel context.CancelFunc = func() {}
				if t := cfg.FFmpeg.ProbeTimeout; t > 0 {
					probeCtx, cancel = context.WithTimeout(probeCtx, time.Duration(t)*time.Second)
				}
				media, err := ffprobe.Inspect(probeCtx, cfg.FFprobeBinary(), file)
				cancel()

				row := probeRow{File: file}
				switch {
				case err != nil:
					row.Error = err.Error()
					failures++
				case media.AudioStreamCount() == 0:
					row.Error = "no audio stream"
					failures++
				default:
					row.Duration = media.DurationSeconds()
					row.Channels = media.Channels()
					row.SampleHz = media.SampleRate()
					row.SizeBytes = media.SizeBytes()
					row.NeedsCut = splitting.NeedsSplit(row.Duration/60, cfg.Conversion.MaxTrackMinutes)
					if stream, ok := media.FirstAudioStream(); ok {
						row.Codec = stream.CodecName
					}
				}
				results = append(results, row)
			}

			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, row := range results {
					if row.Error != "" {
						rows = append(rows, []string{row.File, "-", "-", "-", "-", "-", statusErrorText(shorten(row.Error, 50))})
						continue
					}
					rows = append(rows, []string{
						row.File,
						formatSeconds(row.Duration),
						row.Codec,
						fmt.Sprintf("%d", row.Channels),
						fmt.Sprintf("%d Hz", row.SampleHz),
						humanize.Bytes(uint64(row.SizeBytes)),
						yesNo(row.NeedsCut),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"File", "Length", "Codec", "Ch", "Rate", "Size", "Needs Split"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
			}

			if failures > 0 {
				return fmt.Errorf("%d of %d files cannot be used", failures, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit probe results as JSON")
	return cmd
}
