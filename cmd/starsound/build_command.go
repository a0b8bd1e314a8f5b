package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"starsound/internal/config"
	"starsound/internal/history"
	"starsound/internal/modspec"
	"starsound/internal/pipeline"
	"starsound/internal/services"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var install bool
	var installDir string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "build <plan>",
		Short: "Build a music mod from a plan",
		Long: "Build runs the full pipeline for a plan: validate and back up the\n" +
			"selected tracks, split anything over the length cap, convert to Ogg\n" +
			"Vorbis, write the biome patches, and assemble the mod folder.\n\n" +
			"The plan argument is either the name of a saved plan or a path to a\n" +
			"plan JSON file. Relative track paths in a plan file resolve against\n" +
			"the file's directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			plan, err := loadPlanArg(cfg, args[0])
			if err != nil {
				return err
			}
			if install {
				plan.Install = true
			}
			if dir := strings.TrimSpace(installDir); dir != "" {
				plan.Install = true
				plan.InstallDir = dir
			}

			index, err := ctx.vanillaIndex()
			if err != nil {
				return err
			}
			logger, err := ctx.fileLogger()
			if err != nil {
				return err
			}
			store, err := ctx.historyStore()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			client, err := ctx.ffmpegClient()
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(cfg, index, client, store, logger)
			var progress *buildProgress
			if !jsonOut {
				progress = newBuildProgress(cmd.OutOrStdout())
				runner.OnConversionEvent = progress.ConversionEvent
				runner.OnSplitProgress = progress.SplitProgress
			}

			report, err := runner.Run(cmd.Context(), plan)
			if progress != nil {
				progress.Finish()
			}
			if err != nil {
				return err
			}

			if jsonOut {
				if err := writeJSON(cmd, buildReportPayload(report)); err != nil {
					return err
				}
			} else {
				renderReport(cmd.OutOrStdout(), report)
			}
			if report.Status() == history.StatusFailed {
				return fmt.Errorf("build failed: %s", report.Headline())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&install, "install", false, "Install the mod into the game's mods directory after building")
	cmd.Flags().StringVar(&installDir, "install-dir", "", "Install destination (implies --install)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the build report as JSON")
	return cmd
}

// loadPlanArg accepts either a path to a plan document or the name of a
// saved plan. Paths win when the file exists; track paths from a plan file
// are rebased onto the file's directory.
func loadPlanArg(cfg *config.Config, arg string) (modspec.Plan, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return modspec.Plan{}, services.Wrap(services.ErrValidation, "cli", "build", "plan name or path is required", nil)
	}

	if _, err := os.Stat(arg); err == nil {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return modspec.Plan{}, services.Wrap(services.ErrValidation, "cli", "build", arg, err)
		}
		env, err := modspec.LoadFile(abs)
		if err != nil {
			return modspec.Plan{}, err
		}
		return env.Plan.Rebase(filepath.Dir(abs)), nil
	}

	store := modspec.NewStore(cfg.Paths.PlansDir)
	env, err := store.Load(arg)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return modspec.Plan{}, services.Wrap(services.ErrNotFound, "cli", "build",
				fmt.Sprintf("%q is neither a plan file nor a saved plan (try `starsound plan list`)", arg), nil)
		}
		return modspec.Plan{}, err
	}
	return env.Plan.Rebase(store.Dir()), nil
}

type biomeReportPayload struct {
	Biome  string `json:"biome"`
	Ops    int    `json:"ops"`
	Copies int    `json:"copies"`
	Error  string `json:"error,omitempty"`
}

type reportPayload struct {
	RunID          string               `json:"runId"`
	ModName        string               `json:"modName"`
	ModRoot        string               `json:"modRoot"`
	Status         string               `json:"status"`
	Summary        string               `json:"summary"`
	ElapsedSeconds float64              `json:"elapsedSeconds"`
	Converted      int                  `json:"converted"`
	Failed         int                  `json:"failed"`
	Skipped        []string             `json:"skipped,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
	Errors         []string             `json:"errors,omitempty"`
	Biomes         []biomeReportPayload `json:"biomes"`
	Installed      string               `json:"installed,omitempty"`
	InstallError   string               `json:"installError,omitempty"`
}

func buildReportPayload(report *pipeline.Report) reportPayload {
	payload := reportPayload{
		RunID:          report.RunID,
		ModName:        report.ModName,
		ModRoot:        report.ModRoot,
		Status:         report.Status(),
		Summary:        report.Headline(),
		ElapsedSeconds: report.Elapsed().Seconds(),
		Converted:      report.Converted.Succeeded,
		Failed:         report.Converted.Failed,
		Skipped:        report.Skipped,
		Warnings:       report.Warnings,
		Errors:         report.Converted.Errors,
		Installed:      report.Installed,
	}
	if report.InstallErr != nil {
		payload.InstallError = report.InstallErr.Error()
	}
	for _, biome := range report.Biomes {
		entry := biomeReportPayload{
			Biome:  biome.Biome.String(),
			Ops:    biome.Ops,
			Copies: biome.Copies,
		}
		if biome.Err != nil {
			entry.Error = biome.Err.Error()
		}
		payload.Biomes = append(payload.Biomes, entry)
	}
	return payload
}
