package cli

import (
	"flag"
	"os"

	"github.com/botkeeper/botkeeper/internal/flagx"
)

// Config holds runtime settings for the botkeeper CLI.
type Config struct {
	// ServerURL is the base URL of the botkeeper HTTP endpoint.
	ServerURL string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the backend server")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)
	return cfg
}
