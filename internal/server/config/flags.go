package config

import (
	"flag"
	"os"
	"time"

	"github.com/keywarden/keywarden/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., "127.0.0.1:8080")
//	-d string   PostgreSQL DSN
//	-s int      generated salt length
//	-i int      default KDF iteration count
//	-r int      rate limit for KDF-parameter endpoints (requests per window, 0 disables)
//	-w int      rate limit window, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-r", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.SaltLength, "s", config.SaltLength, "generated salt length")
	fs.IntVar(&config.DefaultIterations, "i", config.DefaultIterations, "default KDF iteration count")
	fs.IntVar(&config.ParamsRateLimit, "r", config.ParamsRateLimit, "rate limit for parameter endpoints (0 disables)")

	paramsRateWindow := fs.Int("w", int(config.ParamsRateWindow.Seconds()), "rate limit window (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ParamsRateWindow = time.Duration(*paramsRateWindow) * time.Second
}
