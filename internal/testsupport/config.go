// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"redreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Reddit.ClientID = "test-client"
	cfgVal.Reddit.ClientSecret = "test-secret"
	cfgVal.Reddit.UserAgent = "redreel-test/0.1"
	cfgVal.Store.Backend = "file"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSources overrides the configured feed sources.
func WithSources(sources ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.Sources = sources
	}
}

// WithEndpoints points the API and auth base URLs at a test server.
func WithEndpoints(apiBaseURL, authBaseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reddit.APIBaseURL = apiBaseURL
		b.cfg.Reddit.AuthBaseURL = authBaseURL
	}
}

// WithStoreBackend selects the credential store backend.
func WithStoreBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = backend
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
