package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReddit(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateReddit() error {
	if c.Reddit.ClientID == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/redreel/config.toml"
		}
		return fmt.Errorf("reddit.client_id is required. Set REDDIT_CLIENT_ID env var or edit %s (create with 'redreel config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateFeed() error {
	for _, sort := range c.Feed.Sorts {
		switch sort {
		case "hot", "new", "top", "rising":
		default:
			return fmt.Errorf("feed.sorts: unsupported sort %q", sort)
		}
	}
	if c.Feed.Limit > 100 {
		return errors.New("feed.limit must not exceed 100 (upstream listing cap)")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "sqlite", "file":
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (expected \"sqlite\" or \"file\")", c.Store.Backend)
	}
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
