package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCLICheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	makeStubExecutables(t, filepath.Join(env.baseDir, "bin"), map[string]string{
		"ffmpeg":  "#!/bin/sh\necho 'ffmpeg version 6.1.1 Copyright (c) 2000-2023'\n",
		"ffprobe": "#!/bin/sh\necho 'ffprobe version 6.1.1 Copyright (c) 2007-2023'\n",
	})

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "6.1.1")
	requireContains(t, out, "All required tools are available.")
}

func TestCLICheckCommandReportsMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	emptyDir := filepath.Join(env.baseDir, "empty")
	if err := os.MkdirAll(emptyDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Setenv("PATH", emptyDir)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail with no tools on PATH")
	}
	requireContains(t, out, "missing")
}
