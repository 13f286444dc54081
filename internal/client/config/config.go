package config

import "time"

// Config holds runtime settings for the Tally CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the backend HTTP API.
//   - DatabasePath: path of the local sqlite database file.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SyncInterval: how often a background reconciliation runs while online.
//
// Units: intervals are time.Duration values (e.g., 3*time.Second).
type Config struct {
	ServerBaseURL       string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "tally.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 60 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
