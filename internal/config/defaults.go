package config

const (
	defaultStagingDir     = "~/.local/share/starsound/staging"
	defaultModsDir        = "~/.local/share/starsound/mods"
	defaultBackupDir      = "~/.local/share/starsound/backups"
	defaultPlansDir       = "~/.local/share/starsound/plans"
	defaultStateDir       = "~/.local/share/starsound/state"
	defaultLogDir         = "~/.local/share/starsound/logs"
	defaultConvertTimeout = 3600
	defaultSplitTimeout   = 1800
	defaultProbeTimeout   = 60
	defaultBitrateKbps    = 192
	defaultMaxWorkers     = 3
	defaultMaxTrackMin    = 30
	defaultSegmentMin     = 25
	defaultMaxFileMB      = 500
	defaultHistoryKeep    = 200
	defaultNotifyTimeout  = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			ModsDir:    defaultModsDir,
			BackupDir:  defaultBackupDir,
			PlansDir:   defaultPlansDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		FFmpeg: FFmpeg{
			Binary:         "ffmpeg",
			ProbeBinary:    "ffprobe",
			ConvertTimeout: defaultConvertTimeout,
			SplitTimeout:   defaultSplitTimeout,
			ProbeTimeout:   defaultProbeTimeout,
		},
		Conversion: Conversion{
			BitrateKbps:           defaultBitrateKbps,
			MaxWorkers:            defaultMaxWorkers,
			MaxTrackMinutes:       defaultMaxTrackMin,
			DefaultSegmentMinutes: defaultSegmentMin,
			MaxFileMB:             defaultMaxFileMB,
		},
		History: History{
			Enabled:  true,
			KeepRuns: defaultHistoryKeep,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
