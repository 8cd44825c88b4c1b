package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. VAULT_JWT_SECRET.
const EnvPrefix = "VAULT"

// parseEnv overlays cfg with VAULT_* variables. Only variables that are set
// take effect.
func parseEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	strs := map[string]*string{
		"endpoint_addr_grpc": &cfg.EndpointAddrGRPC,
		"database_dsn":       &cfg.DatabaseDSN,
		"jwt_secret":         &cfg.JWTSecret,
		"file_secret":        &cfg.FileSecret,
		"blob_backend":       &cfg.BlobBackend,
		"blob_dir":           &cfg.BlobDir,
		"work_dir":           &cfg.WorkDir,
		"s3_root_user":       &cfg.S3RootUser,
		"s3_root_password":   &cfg.S3RootPassword,
		"s3_bucket":          &cfg.S3Bucket,
		"s3_prefix":          &cfg.S3Prefix,
		"s3_region":          &cfg.S3Region,
		"s3_base_endpoint":   &cfg.S3BaseEndpoint,
		"nats_url":           &cfg.NATSURL,
		"nats_subject":       &cfg.NATSSubject,
		"log_backend":        &cfg.LogBackend,
		"admin_email":        &cfg.AdminEmail,
		"admin_password":     &cfg.AdminPassword,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("clamd_addrs") {
		cfg.ClamdAddrs = splitList(v.GetString("clamd_addrs"))
	}
	if v.IsSet("max_login_attempts") {
		cfg.MaxLoginAttempts = v.GetInt("max_login_attempts")
	}
	if v.IsSet("max_upload_size") {
		cfg.MaxUploadSize = v.GetInt64("max_upload_size")
	}

	for key, dst := range map[string]*time.Duration{
		"token_ttl":        &cfg.TokenTTL,
		"lockout_cooldown": &cfg.LockoutCooldown,
		"scan_timeout":     &cfg.ScanTimeout,
		"crypto_timeout":   &cfg.CryptoTimeout,
	} {
		if !v.IsSet(key) {
			continue
		}
		d := v.GetDuration(key)
		if d <= 0 {
			return fmt.Errorf("env %s_%s: invalid duration %q", EnvPrefix, strings.ToUpper(key), v.GetString(key))
		}
		*dst = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
