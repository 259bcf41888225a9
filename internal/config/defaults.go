package config

const (
	defaultStateDir     = "~/.local/share/redreel"
	defaultLogDir       = "~/.local/share/redreel/logs"
	defaultRedirectURI  = "http://localhost:8080/callback"
	defaultScope        = "read identity history"
	defaultUserAgent    = "redreel/0.1"
	defaultAPIBaseURL   = "https://oauth.reddit.com"
	defaultAuthBaseURL  = "https://www.reddit.com"
	defaultUserID       = "local"
	defaultFeedLimit    = 60
	defaultStoreBackend = "sqlite"
	defaultNtfyTimeout  = 10
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Reddit: Reddit{
			RedirectURI: defaultRedirectURI,
			Scope:       defaultScope,
			UserAgent:   defaultUserAgent,
			APIBaseURL:  defaultAPIBaseURL,
			AuthBaseURL: defaultAuthBaseURL,
			UserID:      defaultUserID,
		},
		Feed: Feed{
			Sorts: []string{"hot", "top"},
			Limit: defaultFeedLimit,
		},
		Store: Store{
			Backend: defaultStoreBackend,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
