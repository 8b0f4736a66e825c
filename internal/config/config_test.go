package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "notes.nkv", c.ContainerName)
	assert.Equal(t, 5*time.Second, c.FlushTimeout)
	assert.Equal(t, 15*time.Minute, c.SessionTTL)
	assert.Empty(t, c.TranscriberEndpoint)
	assert.Equal(t, "whisper-1", c.TranscriberModel)
	assert.NotEmpty(t, c.DataDir)
}

func TestConfig_DerivedPaths(t *testing.T) {
	c := Config{DataDir: "/tmp/nk", ContainerName: "v.nkv"}

	assert.Equal(t, filepath.Join("/tmp/nk", "v.nkv"), c.ContainerPath())
	assert.Equal(t, filepath.Join("/tmp/nk", "attachments.db"), c.AttachmentDBPath())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "notes.nkv", cfg.ContainerName)
	assert.Equal(t, 5*time.Second, cfg.FlushTimeout)
}
