package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/SakshiM22/secure-vault/internal/flagx"
	"github.com/SakshiM22/secure-vault/internal/timex"
)

// JsonConfig is the on-disk form of Config. Absent fields keep their
// current values; durations accept "30m" style strings or nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	JWTSecret        string         `json:"jwt_secret"`
	FileSecret       string         `json:"file_secret"`
	TokenTTL         timex.Duration `json:"token_ttl"`
	MaxLoginAttempts int            `json:"max_login_attempts"`
	LockoutCooldown  timex.Duration `json:"lockout_cooldown"`
	BlobBackend      string         `json:"blob_backend"`
	BlobDir          string         `json:"blob_dir"`
	WorkDir          string         `json:"work_dir"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Prefix         string         `json:"s3_prefix"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	ClamdAddrs       []string       `json:"clamd_addrs"`
	MaxUploadSize    int64          `json:"max_upload_size"`
	ScanTimeout      timex.Duration `json:"scan_timeout"`
	CryptoTimeout    timex.Duration `json:"crypto_timeout"`
	NATSURL          string         `json:"nats_url"`
	NATSSubject      string         `json:"nats_subject"`
	LogBackend       string         `json:"log_backend"`
	AdminEmail       string         `json:"admin_email"`
	AdminPassword    string         `json:"admin_password"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays cfg with the file named by -c/-config, if any.
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

	setString(&cfg.EndpointAddrGRPC, jc.EndpointAddrGRPC)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.JWTSecret, jc.JWTSecret)
	setString(&cfg.FileSecret, jc.FileSecret)
	setString(&cfg.BlobBackend, jc.BlobBackend)
	setString(&cfg.BlobDir, jc.BlobDir)
	setString(&cfg.WorkDir, jc.WorkDir)
	setString(&cfg.S3RootUser, jc.S3RootUser)
	setString(&cfg.S3RootPassword, jc.S3RootPassword)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Prefix, jc.S3Prefix)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.NATSURL, jc.NATSURL)
	setString(&cfg.NATSSubject, jc.NATSSubject)
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.AdminEmail, jc.AdminEmail)
	setString(&cfg.AdminPassword, jc.AdminPassword)

	if jc.TokenTTL.Duration > 0 {
		cfg.TokenTTL = jc.TokenTTL.Duration
	}
	if jc.MaxLoginAttempts > 0 {
		cfg.MaxLoginAttempts = jc.MaxLoginAttempts
	}
	if jc.LockoutCooldown.Duration > 0 {
		cfg.LockoutCooldown = jc.LockoutCooldown.Duration
	}
	if len(jc.ClamdAddrs) > 0 {
		cfg.ClamdAddrs = jc.ClamdAddrs
	}
	if jc.MaxUploadSize > 0 {
		cfg.MaxUploadSize = jc.MaxUploadSize
	}
	if jc.ScanTimeout.Duration > 0 {
		cfg.ScanTimeout = jc.ScanTimeout.Duration
	}
	if jc.CryptoTimeout.Duration > 0 {
		cfg.CryptoTimeout = jc.CryptoTimeout.Duration
	}
	return nil
}
