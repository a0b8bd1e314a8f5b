package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"starsound/internal/deps"
	"starsound/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that ffmpeg and ffprobe are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.Check(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := statusOKText("ok")
				detail := status.Version
				if !status.Available {
					state = statusErrorText("missing")
					detail = status.Detail
					if status.Optional {
						state = statusWarnText("missing (optional)")
					}
				}
				rows = append(rows, []string{
					status.Name,
					status.Command,
					state,
					detail,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Command", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))

			if !deps.Satisfied(statuses) {
				return services.Wrap(services.ErrConfiguration, "cli", "check",
					"required tools are missing; install ffmpeg or set binary paths in the [ffmpeg] config section", nil)
			}
			fmt.Fprintln(out, statusOKText("All required tools are available."))
			return nil
		},
	}
}
