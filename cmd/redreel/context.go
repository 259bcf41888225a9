package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"redreel/internal/config"
	"redreel/internal/feed"
	"redreel/internal/listing"
	"redreel/internal/logging"
	"redreel/internal/notifications"
	"redreel/internal/ratelimit"
	"redreel/internal/redditauth"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

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
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openStore builds the configured credential store. The sqlite store's Close
// is returned so commands can release it.
func (c *commandContext) openStore(cfg *config.Config) (redditauth.CredentialStore, func(), error) {
	switch cfg.Store.Backend {
	case "file":
		return redditauth.NewFileStore(cfg.StorePath()), func() {}, nil
	default:
		store, err := redditauth.OpenSQLiteStore(cfg.StorePath())
		if err != nil {
			return nil, nil, fmt.Errorf("open credential store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
}

// buildManager assembles the auth manager with the configured store and
// notifier attached.
func (c *commandContext) buildManager(cfg *config.Config, store redditauth.CredentialStore, notifier notifications.Service, logger *slog.Logger) (*redditauth.Manager, error) {
	return redditauth.NewManager(
		cfg.Reddit.ClientID,
		cfg.Reddit.ClientSecret,
		cfg.Reddit.AuthBaseURL,
		cfg.Reddit.RedirectURI,
		cfg.Reddit.UserAgent,
		cfg.Reddit.UserID,
		redditauth.WithStore(store),
		redditauth.WithRefreshLock(cfg.StorePath()+".lock"),
		redditauth.WithNotifier(notifier),
		redditauth.WithLogger(logger),
	)
}

// buildAssembler wires the full fetch stack: listing client, governor,
// fetcher, assembler.
func (c *commandContext) buildAssembler(cfg *config.Config, manager *redditauth.Manager, logger *slog.Logger) (*feed.Assembler, error) {
	client, err := listing.NewClient(cfg.Reddit.APIBaseURL, cfg.Reddit.UserAgent, manager)
	if err != nil {
		return nil, fmt.Errorf("build listing client: %w", err)
	}
	fetcher := listing.NewFetcher(client, ratelimit.New(), cfg.Feed.Limit, logger)
	return feed.New(fetcher, logger), nil
}
