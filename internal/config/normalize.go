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
	if err := c.normalizeReddit(); err != nil {
		return err
	}
	c.normalizeFeed()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeReddit() error {
	c.Reddit.ClientID = strings.TrimSpace(c.Reddit.ClientID)
	c.Reddit.ClientSecret = strings.TrimSpace(c.Reddit.ClientSecret)
	if c.Reddit.ClientID == "" {
		c.Reddit.ClientID = strings.TrimSpace(os.Getenv("REDDIT_CLIENT_ID"))
	}
	if c.Reddit.ClientSecret == "" {
		c.Reddit.ClientSecret = strings.TrimSpace(os.Getenv("REDDIT_CLIENT_SECRET"))
	}
	c.Reddit.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.APIBaseURL), "/")
	c.Reddit.AuthBaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.AuthBaseURL), "/")
	if c.Reddit.APIBaseURL == "" {
		c.Reddit.APIBaseURL = defaultAPIBaseURL
	}
	if c.Reddit.AuthBaseURL == "" {
		c.Reddit.AuthBaseURL = defaultAuthBaseURL
	}
	if strings.TrimSpace(c.Reddit.UserAgent) == "" {
		c.Reddit.UserAgent = defaultUserAgent
	}
	if strings.TrimSpace(c.Reddit.UserID) == "" {
		c.Reddit.UserID = defaultUserID
	}
	return nil
}

func (c *Config) normalizeFeed() {
	sources := make([]string, 0, len(c.Feed.Sources))
	for _, source := range c.Feed.Sources {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(source), "r/"))
		if trimmed == "" {
			continue
		}
		sources = append(sources, trimmed)
	}
	c.Feed.Sources = sources

	if len(c.Feed.Sorts) == 0 {
		c.Feed.Sorts = []string{"hot", "top"}
	}
	if c.Feed.Limit <= 0 {
		c.Feed.Limit = defaultFeedLimit
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	if strings.TrimSpace(c.Store.Path) != "" {
		expanded, err := expandPath(c.Store.Path)
		if err != nil {
			return fmt.Errorf("store.path: %w", err)
		}
		c.Store.Path = expanded
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
