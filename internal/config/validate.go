package config

import (
	"errors"
	"fmt"
)

// supportedBitrates lists the OGG bitrates the conversion pipeline accepts.
var supportedBitrates = map[int]struct{}{
	128: {},
	192: {},
	256: {},
	320: {},
}

// SupportedBitrate reports whether the pipeline accepts the given OGG
// bitrate. Plans reuse this so a saved plan cannot smuggle in a value the
// config layer would reject.
func SupportedBitrate(kbps int) bool {
	_, ok := supportedBitrates[kbps]
	return ok
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if err := ensurePositiveMap(map[string]int{
		"ffmpeg.convert_timeout": c.FFmpeg.ConvertTimeout,
		"ffmpeg.split_timeout":   c.FFmpeg.SplitTimeout,
		"ffmpeg.probe_timeout":   c.FFmpeg.ProbeTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConversion() error {
	if _, ok := supportedBitrates[c.Conversion.BitrateKbps]; !ok {
		return fmt.Errorf("conversion.bitrate_kbps must be one of 128, 192, 256, 320 (got %d)", c.Conversion.BitrateKbps)
	}
	if c.Conversion.MaxWorkers < 1 || c.Conversion.MaxWorkers > 3 {
		return errors.New("conversion.max_workers must be between 1 and 3")
	}
	if c.Conversion.MaxTrackMinutes < 1 {
		return errors.New("conversion.max_track_minutes must be positive")
	}
	if c.Conversion.DefaultSegmentMinutes < 1 {
		return errors.New("conversion.default_segment_minutes must be positive")
	}
	if c.Conversion.DefaultSegmentMinutes >= c.Conversion.MaxTrackMinutes {
		return errors.New("conversion.default_segment_minutes must be less than conversion.max_track_minutes")
	}
	if c.Conversion.MaxFileMB < 1 {
		return errors.New("conversion.max_file_mb must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
