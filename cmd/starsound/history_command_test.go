package main

import (
	"context"
	"testing"
	"time"

	"starsound/internal/history"
)

func TestCLIHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	store, err := history.Open(env.cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	run := history.Run{
		ID:         "run-1234",
		ModName:    "Cosmic Beats",
		StartedAt:  time.Now().Add(-2 * time.Minute),
		FinishedAt: time.Now().Add(-1 * time.Minute),
		Status:     history.StatusCompleted,
		Succeeded:  2,
		Message:    "2 converted",
	}
	jobs := []history.Job{
		{Input: "sunrise.flac", Output: "sunrise.ogg", Status: history.JobSucceeded, Duration: 3 * time.Second},
		{Input: "moonlight.flac", Output: "moonlight.ogg", Status: history.JobSucceeded, Duration: 2 * time.Second},
	}
	if err := store.RecordRun(context.Background(), run, jobs); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "run-1234")
	requireContains(t, out, "Cosmic Beats")
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"history", "--jobs", "run-1234"}, env.configPath)
	if err != nil {
		t.Fatalf("history --jobs: %v", err)
	}
	requireContains(t, out, "sunrise.flac")
	requireContains(t, out, "moonlight.ogg")
	requireContains(t, out, "succeeded")
}

func TestCLIHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No build runs recorded yet.")
}
