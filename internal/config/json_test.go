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
		"data_dir":             "/vaults/main",
		"flush_timeout":        "10s",
		"session_ttl":          "1h",
		"transcriber_endpoint": "http://127.0.0.1:8080/v1/audio/transcriptions",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "/vaults/main", cfg.DataDir)
		assert.Equal(t, 10*time.Second, cfg.FlushTimeout)
		assert.Equal(t, time.Hour, cfg.SessionTTL)
		assert.Equal(t, "http://127.0.0.1:8080/v1/audio/transcriptions", cfg.TranscriberEndpoint)
	})

	t.Run("unset JSON fields keep defaults", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{ContainerName: "notes.nkv", S3Bucket: "default-bucket"}
		parseJson(cfg)

		assert.Equal(t, "notes.nkv", cfg.ContainerName)
		assert.Equal(t, "default-bucket", cfg.S3Bucket)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DataDir: "/defaults", FlushTimeout: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "/defaults", cfg.DataDir)
		assert.Equal(t, 42*time.Second, cfg.FlushTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
