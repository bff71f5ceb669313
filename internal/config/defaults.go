package config

const (
	defaultConfigPath             = "~/.config/worldbuilder/config.toml"
	defaultStateDir               = "~/.local/share/worldbuilder"
	defaultLogDir                 = "~/.local/share/worldbuilder/logs"
	defaultBackendRetries         = 2
	defaultBackendTimeoutSeconds  = 15
	defaultGitHubAPIURL           = "https://api.github.com"
	defaultGitHubOwner            = "worldbuilder-app"
	defaultGitHubRepo             = "worldbuilder"
	defaultGitHubRetries          = 3
	defaultGitHubTimeoutSeconds   = 15
	defaultRelayBind              = "127.0.0.1:8787"
	defaultRelayURL               = "http://127.0.0.1:8787"
	defaultRelayRetries           = 0
	defaultRelayRateLimitRequests = 3
	defaultRelayRateLimitWindow   = 300
	defaultRelayMaxIssuesPerHour  = 30
	defaultEventMaxStringLength   = 1000
	defaultEventMaxDepth          = 5
	defaultEventMaxItems          = 50
	defaultEventTimeoutSeconds    = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	maxRetries                    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Backend: Backend{
			Retries:        defaultBackendRetries,
			TimeoutSeconds: defaultBackendTimeoutSeconds,
		},
		GitHub: GitHub{
			APIURL:         defaultGitHubAPIURL,
			Owner:          defaultGitHubOwner,
			Repo:           defaultGitHubRepo,
			Retries:        defaultGitHubRetries,
			TimeoutSeconds: defaultGitHubTimeoutSeconds,
		},
		Relay: Relay{
			Bind:                   defaultRelayBind,
			URL:                    defaultRelayURL,
			Retries:                defaultRelayRetries,
			RateLimitRequests:      defaultRelayRateLimitRequests,
			RateLimitWindowSeconds: defaultRelayRateLimitWindow,
			MaxIssuesPerHour:       defaultRelayMaxIssuesPerHour,
			Labels:                 []string{"user-report"},
			MetricsEnabled:         true,
		},
		Events: Events{
			Enabled:         true,
			SpoolEnabled:    true,
			MaxStringLength: defaultEventMaxStringLength,
			MaxDepth:        defaultEventMaxDepth,
			MaxItems:        defaultEventMaxItems,
			TimeoutSeconds:  defaultEventTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
