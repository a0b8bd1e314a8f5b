package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeConversion()
	if err := c.normalizeVanilla(); err != nil {
		return err
	}
	c.normalizeHistory()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModsDir) == "" {
		c.Paths.ModsDir = defaultModsDir
	}
	if c.Paths.ModsDir, err = expandPath(c.Paths.ModsDir); err != nil {
		return fmt.Errorf("paths.mods_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		c.Paths.BackupDir = defaultBackupDir
	}
	if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PlansDir) == "" {
		c.Paths.PlansDir = defaultPlansDir
	}
	if c.Paths.PlansDir, err = expandPath(c.Paths.PlansDir); err != nil {
		return fmt.Errorf("paths.plans_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InstallDir) != "" {
		if c.Paths.InstallDir, err = expandPath(c.Paths.InstallDir); err != nil {
			return fmt.Errorf("paths.install_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	c.FFmpeg.ProbeBinary = strings.TrimSpace(c.FFmpeg.ProbeBinary)
	if c.FFmpeg.ProbeBinary == "" {
		c.FFmpeg.ProbeBinary = "ffprobe"
	}
	if c.FFmpeg.ConvertTimeout <= 0 {
		c.FFmpeg.ConvertTimeout = defaultConvertTimeout
	}
	if c.FFmpeg.SplitTimeout <= 0 {
		c.FFmpeg.SplitTimeout = defaultSplitTimeout
	}
	if c.FFmpeg.ProbeTimeout <= 0 {
		c.FFmpeg.ProbeTimeout = defaultProbeTimeout
	}
}

func (c *Config) normalizeConversion() {
	if c.Conversion.BitrateKbps <= 0 {
		c.Conversion.BitrateKbps = defaultBitrateKbps
	}
	if c.Conversion.MaxWorkers <= 0 {
		c.Conversion.MaxWorkers = defaultMaxWorkers
	}
	if c.Conversion.MaxTrackMinutes <= 0 {
		c.Conversion.MaxTrackMinutes = defaultMaxTrackMin
	}
	if c.Conversion.DefaultSegmentMinutes <= 0 {
		c.Conversion.DefaultSegmentMinutes = defaultSegmentMin
	}
	if c.Conversion.MaxFileMB <= 0 {
		c.Conversion.MaxFileMB = defaultMaxFileMB
	}
}

func (c *Config) normalizeVanilla() error {
	c.Vanilla.TablePath = strings.TrimSpace(c.Vanilla.TablePath)
	if c.Vanilla.TablePath == "" {
		return nil
	}
	expanded, err := expandPath(c.Vanilla.TablePath)
	if err != nil {
		return fmt.Errorf("vanilla.table_path: %w", err)
	}
	c.Vanilla.TablePath = expanded
	return nil
}

func (c *Config) normalizeHistory() {
	if c.History.KeepRuns <= 0 {
		c.History.KeepRuns = defaultHistoryKeep
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("STARSOUND_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
