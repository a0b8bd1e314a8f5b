package main

import (
	"log/slog"
	"strings"
	"sync"

	"starsound/internal/config"
	"starsound/internal/history"
	"starsound/internal/logging"
	"starsound/internal/services/ffmpeg"
	"starsound/internal/vanilla"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath = resolved
		c.configExists = exists
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// fileLogger returns a logger writing to the configured log file only, so
// interactive commands keep stdout for their own rendering. With no log
// directory configured the logger discards everything.
func (c *commandContext) fileLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		if cfg.Paths.LogDir == "" {
			c.logger = logging.NewNop()
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:            cfg.Logging.Level,
			Format:           cfg.Logging.Format,
			OutputPaths:      []string{cfg.LogFilePath()},
			ErrorOutputPaths: []string{cfg.LogFilePath()},
		})
	})
	return c.logger, c.loggerErr
}

// vanillaIndex resolves the biome track table: the configured override when
// set, the embedded table otherwise.
func (c *commandContext) vanillaIndex() (*vanilla.Index, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return vanilla.Resolve(cfg.Vanilla.TablePath)
}

// historyStore opens the run ledger, or returns nil when history is
// disabled.
func (c *commandContext) historyStore() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(cfg.HistoryDBPath())
}

func (c *commandContext) ffmpegClient() (*ffmpeg.CLI, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.FFmpegBinary())), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
