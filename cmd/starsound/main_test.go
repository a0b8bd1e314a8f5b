package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCLIVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "starsound")
}

func TestCLIPresetsCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"presets"}, "")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	requireContains(t, out, "orchestral")
	requireContains(t, out, "normalize")
}

func TestCLIBiomesCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"biomes"}, env.configPath)
	if err != nil {
		t.Fatalf("biomes: %v", err)
	}
	requireContains(t, out, "surface/forest")
	requireContains(t, out, "surface/desert")

	out, _, err = runCLI(t, []string{"biomes", "--category", "surface"}, env.configPath)
	if err != nil {
		t.Fatalf("biomes --category surface: %v", err)
	}
	requireContains(t, out, "surface/forest")
	if strings.Contains(out, "underground/") {
		t.Fatalf("category filter leaked other categories: %q", out)
	}

	if _, _, err := runCLI(t, []string{"biomes", "--category", "nope"}, env.configPath); err == nil {
		t.Fatal("expected unknown category to fail")
	}
}

func TestCLIProbeCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	makeStubExecutables(t, filepath.Join(env.baseDir, "bin"), map[string]string{
		"ffprobe": `#!/bin/sh
cat <<'EOF'
{"format":{"filename":"track.flac","nb_streams":1,"duration":"272.5","size":"1048576","bit_rate":"192000","format_name":"flac"},"streams":[{"index":0,"codec_name":"flac","codec_type":"audio","duration":"272.5","sample_rate":"44100","channels":2}]}
EOF
`,
	})

	input := filepath.Join(env.baseDir, "track.flac")
	if err := os.WriteFile(input, []byte("fLaC"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, _, err := runCLI(t, []string{"probe", input}, env.configPath)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "4m33s")
	requireContains(t, out, "flac")
	requireContains(t, out, "44100 Hz")

	out, _, err = runCLI(t, []string{"probe", "--json", input}, env.configPath)
	if err != nil {
		t.Fatalf("probe --json: %v", err)
	}
	requireContains(t, out, `"durationSeconds": 272.5`)
	requireContains(t, out, `"needsSplit": false`)
}

func TestCLIProbeCommandReportsBadFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	makeStubExecutables(t, filepath.Join(env.baseDir, "bin"), map[string]string{
		"ffprobe": "#!/bin/sh\necho 'broken: invalid data' >&2\nexit 1\n",
	})

	out, _, err := runCLI(t, []string{"probe", filepath.Join(env.baseDir, "broken.flac")}, env.configPath)
	if err == nil {
		t.Fatal("expected probe to fail for unreadable file")
	}
	requireContains(t, out, "broken")
}

func TestCLITestNotifyUnconfigured(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are not configured")
}
