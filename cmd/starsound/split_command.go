package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"starsound/internal/services"
	"starsound/internal/splitting"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var segmentMinutes int

	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Cut a long track into loop-sized WAV segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input := args[0]
			if _, err := os.Stat(input); err != nil {
				return services.Wrap(services.ErrNotFound, "cli", "split", input, err)
			}
			minutes := segmentMinutes
			if minutes <= 0 {
				minutes = cfg.Conversion.DefaultSegmentMinutes
			}
			destDir, err := filepath.Abs(outputDir)
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "split", outputDir, err)
			}
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return services.Wrap(services.ErrTransient, "cli", "split", destDir, err)
			}

			logger, err := ctx.fileLogger()
			if err != nil {
				return err
			}
			client, err := ctx.ffmpegClient()
			if err != nil {
				return err
			}

			progress := newBuildProgress(cmd.OutOrStdout())
			splitter := splitting.New(client, cfg.FFprobeBinary(), destDir, logger)
			splitter.OnProgress = progress.SplitProgress
			result, err := splitter.Split(cmd.Context(), input, minutes)
			progress.Finish()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(result.Segments))
			for i, segment := range result.Segments {
				duration := "-"
				if i < len(result.SegmentDurations) {
					duration = formatSeconds(result.SegmentDurations[i])
				}
				rows = append(rows, []string{filepath.Base(segment), duration})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d segments written to %s\n", len(result.Segments), destDir)
			fmt.Fprintln(out, renderTable(
				[]string{"Segment", "Length"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory for the segments")
	cmd.Flags().IntVar(&segmentMinutes, "segment-minutes", 0, "Segment length in minutes (defaults to config)")
	return cmd
}
