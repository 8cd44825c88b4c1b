package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/SakshiM22/secure-vault/internal/flagx"
	"github.com/SakshiM22/secure-vault/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept either "10s"
// style strings or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	StateDB            string         `json:"state_db"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Fields absent
// from the file keep their current values.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.StateDB != "" {
		cfg.StateDB = jc.StateDB
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}
