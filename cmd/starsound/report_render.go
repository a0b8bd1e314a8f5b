package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"starsound/internal/history"
	"starsound/internal/pipeline"
)

var (
	statusOKText    = color.New(color.FgGreen).SprintFunc()
	statusWarnText  = color.New(color.FgYellow).SprintFunc()
	statusErrorText = color.New(color.FgRed).SprintFunc()
)

func statusText(status string) string {
	switch status {
	case history.StatusCompleted, history.JobSucceeded:
		return statusOKText(status)
	case history.StatusPartial:
		return statusWarnText(status)
	default:
		return statusErrorText(status)
	}
}

func renderReport(out io.Writer, report *pipeline.Report) {
	fmt.Fprintf(out, "\n%s: %s (%s, %s)\n", report.ModName, statusText(report.Status()), report.Headline(), formatElapsed(report.Elapsed()))
	fmt.Fprintf(out, "Mod folder: %s\n", report.ModRoot)
	if report.Installed != "" {
		fmt.Fprintf(out, "Installed to: %s\n", report.Installed)
	}
	if report.InstallErr != nil {
		fmt.Fprintf(out, "%s %v\n", statusErrorText("Install failed:"), report.InstallErr)
	}

	if len(report.Biomes) > 0 {
		rows := make([][]string, 0, len(report.Biomes))
		for _, biome := range report.Biomes {
			status := statusOKText("patched")
			if biome.Err != nil {
				status = statusErrorText(shorten(biome.Err.Error(), 60))
			}
			rows = append(rows, []string{
				biome.Biome.String(),
				fmt.Sprintf("%d", biome.Ops),
				fmt.Sprintf("%d", biome.Copies),
				status,
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Biome", "Ops", "Files", "Status"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
		))
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "\n%s\n", statusWarnText("Skipped sources:"))
		for _, reason := range report.Skipped {
			fmt.Fprintf(out, "  - %s\n", reason)
		}
	}
	if len(report.Converted.Errors) > 0 {
		fmt.Fprintf(out, "\n%s\n", statusErrorText("Conversion failures:"))
		for _, msg := range report.Converted.Errors {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
		if report.Converted.ErrorOverflow > 0 {
			fmt.Fprintf(out, "  ... and %d more\n", report.Converted.ErrorOverflow)
		}
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(out, "\n%s\n", statusWarnText("Warnings:"))
		for _, msg := range report.Warnings {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
	}
}

func shorten(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
