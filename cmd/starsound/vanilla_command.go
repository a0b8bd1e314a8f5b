package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"starsound/internal/services"
	"starsound/internal/vanilla"
)

func newVanillaCommand(ctx *commandContext) *cobra.Command {
	vanillaCmd := &cobra.Command{
		Use:   "vanilla",
		Short: "Maintain the vanilla biome table",
	}

	vanillaCmd.AddCommand(newVanillaScanCommand(ctx))

	return vanillaCmd
}

func newVanillaScanCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "scan <assets-dir>",
		Short: "Rebuild the biome table from unpacked game assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = cfg.Vanilla.TablePath
			}
			if target == "" {
				return services.Wrap(services.ErrValidation, "cli", "vanilla scan",
					"no output path; pass -o or set table_path in the [vanilla] config section", nil)
			}
			target, err = filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			index, warnings, err := vanilla.Scan(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, warning := range warnings {
				fmt.Fprintln(out, statusWarnText("warning: "+warning))
			}
			if index.Len() == 0 {
				return services.Wrap(services.ErrValidation, "cli", "vanilla scan",
					fmt.Sprintf("no biome files found under %s", args[0]), nil)
			}

			if err := vanilla.WriteTable(target, index); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %d biomes to %s\n", index.Len(), target)
			if strings.TrimSpace(outputPath) != "" && cfg.Vanilla.TablePath == "" {
				fmt.Fprintln(out, "Set table_path in the [vanilla] config section to use this table for builds.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Where to write the table (defaults to the configured table_path)")
	return cmd
}
