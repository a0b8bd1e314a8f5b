package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"starsound/internal/modspec"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Create and inspect mod plans",
	}

	planCmd.AddCommand(newPlanInitCommand(ctx))
	planCmd.AddCommand(newPlanShowCommand(ctx))
	planCmd.AddCommand(newPlanListCommand(ctx))
	planCmd.AddCommand(newPlanDeleteCommand(ctx))

	return planCmd
}

func newPlanInitCommand(ctx *commandContext) *cobra.Command {
	var modName string
	var outputPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter plan to edit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			plan := modspec.Scaffold(strings.TrimSpace(modName))
			out := cmd.OutOrStdout()

			if target := strings.TrimSpace(outputPath); target != "" {
				abs, err := filepath.Abs(target)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				if !overwrite {
					if _, err := os.Stat(abs); err == nil {
						return fmt.Errorf("plan file already exists at %s (use --overwrite to replace it)", abs)
					}
				}
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return fmt.Errorf("encode plan: %w", err)
				}
				if err := os.WriteFile(abs, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write plan file: %w", err)
				}
				fmt.Fprintf(out, "Wrote plan %q to %s\n", plan.ModName, abs)
				fmt.Fprintln(out, "Edit the biome entries and track files, then run `starsound build "+abs+"`.")
				return nil
			}

			store := modspec.NewStore(cfg.Paths.PlansDir)
			if !overwrite {
				if _, err := os.Stat(store.Path(plan.ModName)); err == nil {
					return fmt.Errorf("a saved plan named %q already exists (use --overwrite to replace it)", plan.ModName)
				}
			}
			path, err := store.Save(plan)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved plan %q to %s\n", plan.ModName, path)
			fmt.Fprintf(out, "Edit the file, then run `starsound build %s`.\n", plan.ModName)
			return nil
		},
	}

	cmd.Flags().StringVar(&modName, "mod-name", "", "Mod name for the new plan (random when omitted)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the plan to a file instead of the saved-plan directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing plan with the same name or path")
	return cmd
}

func newPlanShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name-or-path>",
		Short: "Show a plan's biomes, tracks, and validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			plan, err := loadPlanArg(cfg, args[0])
			if err != nil {
				return err
			}
			index, err := ctx.vanillaIndex()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (version %s)\n", plan.ModName, orDash(plan.Version))
			fmt.Fprintf(out, "Author: %s\n", orDash(plan.Author))
			if plan.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", plan.Description)
			}
			if plan.Defaults.Preset != "" {
				fmt.Fprintf(out, "Default preset: %s\n", plan.Defaults.Preset)
			}
			if plan.InstallDir != "" {
				fmt.Fprintf(out, "Install dir: %s\n", plan.InstallDir)
			} else if plan.Install {
				fmt.Fprintln(out, "Install: yes")
			}

			keys, err := plan.BiomeKeys()
			if err != nil {
				return err
			}
			entries, err := plan.Entries()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				entry := entries[key]
				rows = append(rows, []string{
					key.String(),
					entry.Mode,
					fmt.Sprintf("%d", len(entry.Day)+len(entry.ReplaceDay)),
					fmt.Sprintf("%d", len(entry.Night)+len(entry.ReplaceNight)),
					yesNo(entry.RemoveVanillaFirst),
				})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Biome", "Mode", "Day", "Night", "Strip Vanilla"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}))

			files := plan.SourceFiles()
			if len(files) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Source files:")
				for _, file := range files {
					if _, err := os.Stat(file); err != nil {
						fmt.Fprintf(out, "  %s %s\n", file, statusErrorText("(missing)"))
						continue
					}
					fmt.Fprintf(out, "  %s\n", file)
				}
			}

			fmt.Fprintln(out)
			if err := plan.Validate(index); err != nil {
				return err
			}
			fmt.Fprintln(out, statusOKText(fmt.Sprintf("Plan is valid (%d biomes, %d source files)", len(keys), len(files))))
			return nil
		},
	}
}

func newPlanListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := modspec.NewStore(cfg.Paths.PlansDir)
			envelopes, warnings, err := store.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, warning := range warnings {
				fmt.Fprintln(out, statusWarnText("warning: "+warning))
			}
			if len(envelopes) == 0 {
				fmt.Fprintln(out, "No saved plans. Run `starsound plan init` to create one.")
				return nil
			}

			rows := make([][]string, 0, len(envelopes))
			for _, env := range envelopes {
				saved := "-"
				if !env.SavedAt.IsZero() {
					saved = humanize.Time(env.SavedAt)
				}
				rows = append(rows, []string{
					env.ModName,
					fmt.Sprintf("%d", len(env.Plan.Biomes)),
					fmt.Sprintf("%d", len(env.Plan.SourceFiles())),
					saved,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Mod", "Biomes", "Tracks", "Saved"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))
			return nil
		},
	}
}

func newPlanDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := modspec.NewStore(cfg.Paths.PlansDir)
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan %q\n", args[0])
			return nil
		},
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
