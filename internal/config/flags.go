package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory holding the container and attachment database
//	-n string   container file name
//	-x string   export directory for Markdown files
//	-f int      flush timeout in seconds
//	-s int      unlock session lifetime in minutes
//	-t string   transcription endpoint URL
//	-b string   S3 bucket for backups
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-n", "-x", "-f", "-s", "-t", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.ContainerName, "n", cfg.ContainerName, "container file name")
	fs.StringVar(&cfg.ExportDir, "x", cfg.ExportDir, "export directory")
	flushTimeout := fs.Int("f", int(cfg.FlushTimeout.Seconds()), "flush timeout (in seconds)")
	sessionTTL := fs.Int("s", int(cfg.SessionTTL.Minutes()), "unlock session lifetime (in minutes)")
	fs.StringVar(&cfg.TranscriberEndpoint, "t", cfg.TranscriberEndpoint, "transcription endpoint URL")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.FlushTimeout = time.Duration(*flushTimeout) * time.Second
	cfg.SessionTTL = time.Duration(*sessionTTL) * time.Minute
}
