package config

import "time"

// Config holds runtime settings for the sync daemon.
//
// Units: SyncInterval is a time.Duration (e.g., 5*time.Minute).
type Config struct {
	// LocalDSN is the sqlite DSN of the on-device database.
	LocalDSN string
	// Platform selects the backend capability set and promo allow-list.
	Platform string
	// DeviceID identifies this installation. Empty means one is generated
	// at startup.
	DeviceID string
	// SyncInterval is how often the engine reconciles with the remote store.
	SyncInterval time.Duration

	// RemoteProjectID and RemoteCredentialsFile configure the cloud document
	// store. An empty project id disables remote sync.
	RemoteProjectID       string
	RemoteCredentialsFile string

	// Record* configure the secondary object-store backend. An empty bucket
	// disables record sync.
	RecordBucket    string
	RecordRegion    string
	RecordEndpoint  string
	RecordAccessKey string
	RecordSecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDSN = "infinitum.db"
	c.Platform = "ios"
	c.SyncInterval = 5 * time.Minute
	c.RecordRegion = "us-east-1"
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
