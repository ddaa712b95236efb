package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"local_dsn":         "/var/lib/infinitum/state.db",
		"platform":          "visionos",
		"device_id":         "DEV-42",
		"sync_interval":     "10m",
		"remote_project_id": "infinitum-test",
		"record_bucket":     "records-test",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "/var/lib/infinitum/state.db", cfg.LocalDSN)
		assert.Equal(t, "visionos", cfg.Platform)
		assert.Equal(t, "DEV-42", cfg.DeviceID)
		assert.Equal(t, 10*time.Minute, cfg.SyncInterval)
		assert.Equal(t, "infinitum-test", cfg.RemoteProjectID)
		assert.Equal(t, "records-test", cfg.RecordBucket)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			LocalDSN:     "defaults.db",
			Platform:     "macos",
			SyncInterval: 42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults.db", cfg.LocalDSN)
		assert.Equal(t, "macos", cfg.Platform)
		assert.Equal(t, 42*time.Second, cfg.SyncInterval)
	})

	t.Run("partial JSON keeps earlier values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"platform": "tvos",
		})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{LocalDSN: "keep.db", SyncInterval: time.Minute}
		parseJson(cfg)

		assert.Equal(t, "tvos", cfg.Platform)
		assert.Equal(t, "keep.db", cfg.LocalDSN)
		assert.Equal(t, time.Minute, cfg.SyncInterval)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
