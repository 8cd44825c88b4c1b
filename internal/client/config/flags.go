package config

import (
	"flag"
	"fmt"
	"io"
)

// parseFlags overlays cfg with command-line flags and returns what is left
// after them.
//
//	-a string   address and port of the vault server
//	-d string   path to the local state database
//	-t int      per-request timeout in seconds
//	-c, -config path to a JSON config file (read by parseJson)
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("vaultctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var path string
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (shorthand)")

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.StateDB, "d", cfg.StateDB, "path to the local state database")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if *timeout <= 0 {
		return nil, fmt.Errorf("parse flags: request timeout must be positive, got %d", *timeout)
	}
	cfg.RequestTimeout = secondsOf(*timeout)

	return fs.Args(), nil
}
