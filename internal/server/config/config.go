// Package config handles configuration for the vault server: defaults,
// a JSON overlay, VAULT_* environment variables and command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/SakshiM22/secure-vault/internal/common"
)

const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// Config holds runtime settings for the vault server.
//
// DatabaseDSN "memory" (or empty) selects the in-process store. FileSecret
// is the operator secret the file encryption key is derived from; JWTSecret
// signs session tokens. Neither has a usable default.
type Config struct {
	EndpointAddrGRPC string
	DatabaseDSN      string
	JWTSecret        string
	FileSecret       string
	TokenTTL         time.Duration

	MaxLoginAttempts int
	LockoutCooldown  time.Duration

	BlobBackend    string
	BlobDir        string
	WorkDir        string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3BaseEndpoint string

	ClamdAddrs    []string
	MaxUploadSize int64
	ScanTimeout   time.Duration
	CryptoTimeout time.Duration

	NATSURL     string
	NATSSubject string

	LogBackend    string
	AdminEmail    string
	AdminPassword string
}

// LoadDefaults populates Config with development defaults. Secrets are left
// empty on purpose; Validate rejects them.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = "memory"
	c.TokenTTL = 1 * time.Hour
	c.MaxLoginAttempts = 3
	c.LockoutCooldown = 30 * time.Minute
	c.BlobBackend = BlobBackendFS
	c.BlobDir = "data/blobs"
	c.WorkDir = "data/work"
	c.S3Bucket = "vault"
	c.S3Region = "us-east-1"
	c.ClamdAddrs = []string{"127.0.0.1:3310"}
	c.MaxUploadSize = 100 << 20
	c.ScanTimeout = 2 * time.Minute
	c.CryptoTimeout = 5 * time.Minute
	c.NATSSubject = "vault.audit"
	c.LogBackend = "slog"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.FileSecret == "":
		return fmt.Errorf("%w: file encryption secret is empty", common.ErrConfiguration)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: jwt secret is empty", common.ErrConfiguration)
	case c.TokenTTL <= 0:
		return fmt.Errorf("%w: token ttl must be positive", common.ErrConfiguration)
	case c.MaxLoginAttempts <= 0:
		return fmt.Errorf("%w: max login attempts must be positive", common.ErrConfiguration)
	case c.BlobBackend != BlobBackendFS && c.BlobBackend != BlobBackendS3:
		return fmt.Errorf("%w: unknown blob backend %q", common.ErrConfiguration, c.BlobBackend)
	case len(c.ClamdAddrs) == 0:
		return fmt.Errorf("%w: at least one clamd address is required", common.ErrConfiguration)
	case (c.AdminEmail == "") != (c.AdminPassword == ""):
		return fmt.Errorf("%w: admin email and password must be set together", common.ErrConfiguration)
	}
	return nil
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then VAULT_* variables, then flags, and validates the result.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
