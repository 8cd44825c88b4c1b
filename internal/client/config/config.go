package config

import "time"

// Config holds runtime settings for the vault CLI.
type Config struct {
	ServerEndpointAddr string
	StateDB            string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.StateDB = "vault-state.db"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then flags. It also returns the positional arguments left
// after the flags, which the CLI runs as a one-shot command.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
