package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"starsound/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jobsRunID string
	var prune bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past build runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.historyStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store == nil {
				fmt.Fprintln(out, "History is disabled (set enabled = true in the [history] config section).")
				return nil
			}
			defer store.Close()

			if prune {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				removed, err := store.Prune(cmd.Context(), cfg.History.KeepRuns)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d old runs (keeping the latest %d)\n", removed, cfg.History.KeepRuns)
				return nil
			}

			if runID := strings.TrimSpace(jobsRunID); runID != "" {
				return renderRunJobs(cmd, store, runID)
			}
			return renderRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().StringVar(&jobsRunID, "jobs", "", "Show per-file results for the given run ID")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete runs beyond the configured keep_runs count")
	return cmd
}

func renderRuns(cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No build runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		elapsed := "-"
		if !run.FinishedAt.IsZero() && run.FinishedAt.After(run.StartedAt) {
			elapsed = formatElapsed(run.FinishedAt.Sub(run.StartedAt))
		}
		rows = append(rows, []string{
			run.ID,
			run.ModName,
			statusText(run.Status),
			fmt.Sprintf("%d", run.Succeeded),
			fmt.Sprintf("%d", run.Failed),
			elapsed,
			humanize.Time(run.StartedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Mod", "Status", "OK", "Failed", "Took", "Started"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}))
	fmt.Fprintln(out, "Run `starsound history --jobs <run>` for per-file results.")
	return nil
}

func renderRunJobs(cmd *cobra.Command, store *history.Store, runID string) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	jobs, err := store.RunJobs(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s (%s, started %s)\n", run.ModName, statusText(run.Status),
		run.Message, humanize.Time(run.StartedAt))
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No conversions were recorded for this run.")
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		detail := job.Output
		if job.Status == history.JobFailed {
			detail = statusErrorText(shorten(job.Error, 60))
		}
		rows = append(rows, []string{
			job.Input,
			statusText(job.Status),
			formatElapsed(job.Duration),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Input", "Status", "Took", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	return nil
}
