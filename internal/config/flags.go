package config

import (
	"flag"
	"os"
	"time"

	"github.com/infinitumhq/infinitum/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   DSN of the local database (default from Config)
//	-p string   platform tag (default from Config)
//	-i int      reconciliation interval in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-p", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDSN, "d", cfg.LocalDSN, "DSN of the local database")
	fs.StringVar(&cfg.Platform, "p", cfg.Platform, "platform tag")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "reconciliation interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
