package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/infinitumhq/infinitum/internal/flagx"
	"github.com/infinitumhq/infinitum/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "5m" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	LocalDSN              string         `json:"local_dsn"`
	Platform              string         `json:"platform"`
	DeviceID              string         `json:"device_id"`
	SyncInterval          timex.Duration `json:"sync_interval"`
	RemoteProjectID       string         `json:"remote_project_id"`
	RemoteCredentialsFile string         `json:"remote_credentials_file"`
	RecordBucket          string         `json:"record_bucket"`
	RecordRegion          string         `json:"record_region"`
	RecordEndpoint        string         `json:"record_endpoint"`
	RecordAccessKey       string         `json:"record_access_key"`
	RecordSecretKey       string         `json:"record_secret_key"`
}

// parseJson overlays Config with values loaded from a JSON file resolved via
// flagx.JsonConfigFlags (-c or -config). Absent file path means no overlay.
// Read or unmarshal errors panic; config is resolved once at startup and a
// broken file should stop the process.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.LocalDSN != "" {
		cfg.LocalDSN = jc.LocalDSN
	}
	if jc.Platform != "" {
		cfg.Platform = jc.Platform
	}
	if jc.DeviceID != "" {
		cfg.DeviceID = jc.DeviceID
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.RemoteProjectID != "" {
		cfg.RemoteProjectID = jc.RemoteProjectID
	}
	if jc.RemoteCredentialsFile != "" {
		cfg.RemoteCredentialsFile = jc.RemoteCredentialsFile
	}
	if jc.RecordBucket != "" {
		cfg.RecordBucket = jc.RecordBucket
	}
	if jc.RecordRegion != "" {
		cfg.RecordRegion = jc.RecordRegion
	}
	if jc.RecordEndpoint != "" {
		cfg.RecordEndpoint = jc.RecordEndpoint
	}
	if jc.RecordAccessKey != "" {
		cfg.RecordAccessKey = jc.RecordAccessKey
	}
	if jc.RecordSecretKey != "" {
		cfg.RecordSecretKey = jc.RecordSecretKey
	}
}
