// Package config loads runtime configuration for the vault CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with -c or -config.
//  3. Command-line flags -a, -d and -t.
//
// JSON example:
//
//	{
//	  "server_endpoint_addr": "vault.internal:50051",
//	  "state_db": "/home/me/.vault/state.db",
//	  "request_timeout": "15s"
//	}
package config
