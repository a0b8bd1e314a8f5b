package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"starsound/internal/filterchain"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "presets",
		Short:       "List processing presets and the stages they enable",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(filterchain.PresetNames()))
			for _, name := range filterchain.PresetNames() {
				opts, _ := filterchain.Preset(name)
				rows = append(rows, []string{name, presetStages(opts)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Stages"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func presetStages(opts filterchain.Options) string {
	var stages []string
	if opts.Silence.Head || opts.Silence.Tail {
		stages = append(stages, "silence trim")
	}
	if opts.NoiseScrub {
		stages = append(stages, "noise scrub")
	}
	if opts.Compression != "" {
		stages = append(stages, fmt.Sprintf("compression (%s)", opts.Compression))
	}
	if opts.SoftClip {
		stages = append(stages, "soft clip")
	}
	if opts.EQ != "" {
		stages = append(stages, fmt.Sprintf("eq (%s)", opts.EQ))
	}
	if opts.DeEss {
		stages = append(stages, "de-ess")
	}
	if opts.Normalize {
		stages = append(stages, "normalize")
	}
	if opts.DownmixMono {
		stages = append(stages, "mono")
	}
	if len(stages) == 0 {
		return "none"
	}
	return strings.Join(stages, ", ")
}
