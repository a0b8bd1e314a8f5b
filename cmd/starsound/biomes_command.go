package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newBiomesCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "biomes",
		Short: "List biomes that can take custom music",
		Long: "Biomes lists every biome in the vanilla track table along with how\n" +
			"many day and night tracks the game ships for it. Plans reference\n" +
			"biomes by the Key column.",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := ctx.vanillaIndex()
			if err != nil {
				return err
			}

			filter := strings.ToLower(strings.TrimSpace(category))
			rows := make([][]string, 0, index.Len())
			for _, key := range index.Keys() {
				if filter != "" && key.Category != filter {
					continue
				}
				tracks, _ := index.Lookup(key)
				rows = append(rows, []string{
					key.String(),
					displayName(key.Biome),
					fmt.Sprintf("%d", len(tracks.Day)),
					fmt.Sprintf("%d", len(tracks.Night)),
				})
			}
			if len(rows) == 0 {
				if filter != "" {
					return fmt.Errorf("no biomes in category %q", category)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "The biome table is empty")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Biome", "Day", "Night"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list biomes in this category (surface, underground, core, space)")
	return cmd
}
