package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)

	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeoutSeconds
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}

	pool := make([]string, 0, len(c.Pipeline.WorkerPool))
	for _, worker := range c.Pipeline.WorkerPool {
		if trimmed := strings.TrimSpace(worker); trimmed != "" {
			pool = append(pool, trimmed)
		}
	}
	c.Pipeline.WorkerPool = pool
	if c.Pipeline.MaxRowsPerRun <= 0 {
		c.Pipeline.MaxRowsPerRun = defaultMaxRowsPerRun
	}
	if c.Pipeline.CapacityPerWorker <= 0 {
		c.Pipeline.CapacityPerWorker = defaultCapacityPerWorker
	}
	if c.Pipeline.StaleThresholdMinutes <= 0 {
		c.Pipeline.StaleThresholdMinutes = defaultStaleThresholdMinutes
	}
	if c.Pipeline.FailureThreshold <= 0 {
		c.Pipeline.FailureThreshold = defaultFailureThreshold
	}
	c.Pipeline.Schedule = strings.TrimSpace(c.Pipeline.Schedule)
	followUps := make([]string, 0, len(c.Pipeline.FollowUps))
	for _, fn := range c.Pipeline.FollowUps {
		if trimmed := strings.TrimSpace(fn); trimmed != "" {
			followUps = append(followUps, trimmed)
		}
	}
	c.Pipeline.FollowUps = followUps

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	if strings.HasPrefix(trimmed, "~") {
		return "", errors.New("user-relative paths (~user) are not supported")
	}
	return filepath.Abs(trimmed)
}
