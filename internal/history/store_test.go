package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"starsound/internal/services"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		ModName:    "Cosmic Beats",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Status:     StatusCompleted,
		Succeeded:  2,
		Failed:     0,
		Message:    "2 files converted",
	}
}

func TestRecordRunRoundTrip(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()

	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	run := sampleRun("run-1", started)
	jobs := []Job{
		{Input: "/in/sunrise.flac", Output: "/out/sunrise.ogg", Status: JobSucceeded, Duration: 42 * time.Second},
		{Input: "/in/broken.mp3", Status: JobFailed, Error: "ffmpeg convert failed: exit status 1", Duration: 3 * time.Second},
	}
	if err := store.RecordRun(ctx, run, jobs); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ModName != run.ModName || got.Status != run.Status || got.Succeeded != 2 || got.Failed != 0 {
		t.Fatalf("run mismatch: %+v", got)
	}
	if !got.StartedAt.Equal(run.StartedAt) || !got.FinishedAt.Equal(run.FinishedAt) {
		t.Fatalf("timestamps drifted: %+v", got)
	}

	gotJobs, err := store.RunJobs(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunJobs: %v", err)
	}
	if len(gotJobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(gotJobs))
	}
	if gotJobs[0].Input != "/in/sunrise.flac" || gotJobs[0].Status != JobSucceeded || gotJobs[0].Duration != 42*time.Second {
		t.Fatalf("job[0] mismatch: %+v", gotJobs[0])
	}
	if gotJobs[1].Status != JobFailed || gotJobs[1].Error == "" || gotJobs[1].RunID != "run-1" {
		t.Fatalf("job[1] mismatch: %+v", gotJobs[1])
	}
}

func TestRecordRunReplacesExisting(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()

	started := time.Now().UTC()
	run := sampleRun("run-1", started)
	if err := store.RecordRun(ctx, run, []Job{{Input: "/in/a.flac", Status: JobSucceeded}}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	run.Status = StatusPartial
	run.Failed = 1
	if err := store.RecordRun(ctx, run, []Job{
		{Input: "/in/a.flac", Status: JobSucceeded},
		{Input: "/in/b.flac", Status: JobFailed, Error: "boom"},
	}); err != nil {
		t.Fatalf("RecordRun again: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != StatusPartial {
		t.Fatalf("runs = %+v", runs)
	}
	jobs, err := store.RunJobs(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("old jobs not replaced: %+v", jobs)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		if err := store.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour)), nil); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" || runs[1].ID != "run-mid" {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"))
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		jobs := []Job{{Input: "/in/" + id + ".flac", Status: JobSucceeded}}
		if err := store.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour)), jobs); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	removed, err := store.Prune(ctx, 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-new" {
		t.Fatalf("runs = %+v", runs)
	}
	jobs, err := store.RunJobs(ctx, "run-old")
	if err != nil {
		t.Fatalf("RunJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("pruned run still has jobs: %+v", jobs)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"))
	_, err := store.GetRun(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestRecordRunRequiresID(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "history.db"))
	err := store.RecordRun(context.Background(), Run{ModName: "X"}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.RecordRun(ctx, sampleRun("run-1", time.Now().UTC()), nil); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openStore(t, path)
	runs, err := reopened.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Fatalf("runs = %+v", runs)
	}
}
