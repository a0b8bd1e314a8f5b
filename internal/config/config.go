package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	ModsDir    string `toml:"mods_dir"`
	BackupDir  string `toml:"backup_dir"`
	PlansDir   string `toml:"plans_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	InstallDir string `toml:"install_dir"`
}

// FFmpeg contains external transcoder configuration.
type FFmpeg struct {
	Binary         string `toml:"binary"`
	ProbeBinary    string `toml:"probe_binary"`
	ConvertTimeout int    `toml:"convert_timeout"`
	SplitTimeout   int    `toml:"split_timeout"`
	ProbeTimeout   int    `toml:"probe_timeout"`
}

// Conversion contains audio conversion defaults.
type Conversion struct {
	BitrateKbps           int `toml:"bitrate_kbps"`
	MaxWorkers            int `toml:"max_workers"`
	MaxTrackMinutes       int `toml:"max_track_minutes"`
	DefaultSegmentMinutes int `toml:"default_segment_minutes"`
	MaxFileMB             int `toml:"max_file_mb"`
}

// Vanilla contains reference-table configuration.
type Vanilla struct {
	// TablePath overrides the embedded biome track table when set.
	TablePath string `toml:"table_path"`
}

// History contains configuration for the build-run ledger.
type History struct {
	Enabled  bool `toml:"enabled"`
	KeepRuns int  `toml:"keep_runs"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for StarSound.
//
// Configuration sections by subsystem:
//   - Paths: staging, mod output, backup, plan, state, and log directories
//   - FFmpeg: external transcoder binaries and timeouts
//   - Conversion: bitrate, worker, and duration/size limits
//   - Vanilla: biome track reference table override
//   - History: build-run ledger retention
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Conversion    Conversion    `toml:"conversion"`
	Vanilla       Vanilla       `toml:"vanilla"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/starsound/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("starsound.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a build run writes into.
// InstallDir is created on a best-effort basis so builds can run when the
// game directory is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.StagingDir,
		c.Paths.ModsDir,
		c.Paths.BackupDir,
		c.Paths.PlansDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.InstallDir) != "" {
		// Best-effort to avoid failing config load when the game dir is offline.
		_ = os.MkdirAll(c.Paths.InstallDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable to invoke.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.FFmpeg.Binary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.FFmpeg.ProbeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// HistoryDBPath returns the sqlite database location for the run ledger.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockDir returns the directory holding per-mod build locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StagingDir, "locks")
}

// LogFilePath returns the application log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "starsound.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
