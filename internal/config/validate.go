package config

import (
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "remote", "sqlite":
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (expected remote or sqlite)", c.Store.Backend)
	}
}

func (c *Config) validateRemote() error {
	if c.Store.Backend != "remote" {
		return nil
	}
	if c.Remote.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/loom/config.toml"
		}
		return fmt.Errorf("remote.base_url is required for the remote store backend; set it in %s", defaultPath)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if len(c.Pipeline.WorkerPool) == 0 {
		return fmt.Errorf("pipeline.worker_pool must list at least one worker")
	}
	seen := make(map[string]struct{}, len(c.Pipeline.WorkerPool))
	for _, worker := range c.Pipeline.WorkerPool {
		if _, dup := seen[worker]; dup {
			return fmt.Errorf("pipeline.worker_pool: duplicate worker %q", worker)
		}
		seen[worker] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
