// Package config assembles runtime settings for the NoteKeeper CLI from
// defaults, an optional JSON file and command-line flags, in that order of
// precedence.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the NoteKeeper CLI.
//
// Units: FlushTimeout and SessionTTL are time.Durations.
type Config struct {
	// DataDir is where the container, the attachment database and the unlock
	// session live.
	DataDir string
	// ContainerName is the container file name inside DataDir.
	ContainerName string
	// ExportDir receives exported Markdown files.
	ExportDir string
	// FlushTimeout bounds each container flush.
	FlushTimeout time.Duration
	// SessionTTL is how long an unlock session stays valid.
	SessionTTL time.Duration

	// TranscriberEndpoint is the whisper-compatible transcription URL. Empty
	// disables transcription.
	TranscriberEndpoint string
	TranscriberModel    string

	// S3 settings for container backups.
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.DataDir = filepath.Join(home, ".notekeeper")
	c.ContainerName = "notes.nkv"
	c.ExportDir = filepath.Join(c.DataDir, "export")
	c.FlushTimeout = 5 * time.Second
	c.SessionTTL = 15 * time.Minute

	c.TranscriberEndpoint = ""
	c.TranscriberModel = "whisper-1"

	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "notekeeper-backups"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// ContainerPath is the full path of the vault container file.
func (c *Config) ContainerPath() string {
	return filepath.Join(c.DataDir, c.ContainerName)
}

// AttachmentDBPath is the full path of the sidecar attachment database.
func (c *Config) AttachmentDBPath() string {
	return filepath.Join(c.DataDir, "attachments.db")
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
