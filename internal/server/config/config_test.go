package config

import (
	"testing"
	"time"

	"github.com/SakshiM22/secure-vault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "memory", c.DatabaseDSN)
	assert.Equal(t, time.Hour, c.TokenTTL)
	assert.Equal(t, 3, c.MaxLoginAttempts)
	assert.Equal(t, 30*time.Minute, c.LockoutCooldown)
	assert.Equal(t, BlobBackendFS, c.BlobBackend)
	assert.Equal(t, []string{"127.0.0.1:3310"}, c.ClamdAddrs)
	assert.Equal(t, int64(100<<20), c.MaxUploadSize)
	assert.Empty(t, c.JWTSecret)
	assert.Empty(t, c.FileSecret)
}

func validConfig() *Config {
	c := &Config{}
	c.LoadDefaults()
	c.JWTSecret = "jwt"
	c.FileSecret = "file"
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "no file secret", mutate: func(c *Config) { c.FileSecret = "" }},
		{name: "no jwt secret", mutate: func(c *Config) { c.JWTSecret = "" }},
		{name: "zero ttl", mutate: func(c *Config) { c.TokenTTL = 0 }},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxLoginAttempts = 0 }},
		{name: "bad backend", mutate: func(c *Config) { c.BlobBackend = "ftp" }},
		{name: "no scanners", mutate: func(c *Config) { c.ClamdAddrs = nil }},
		{name: "admin email without password", mutate: func(c *Config) { c.AdminEmail = "root@example.com" }},
		{name: "admin pair", mutate: func(c *Config) { c.AdminEmail, c.AdminPassword = "root@example.com", "longpassword" }, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, common.ErrConfiguration)
		})
	}
}

func TestLoadConfig_RequiresSecrets(t *testing.T) {
	_, err := LoadConfig(nil)
	require.ErrorIs(t, err, common.ErrConfiguration)

	c, err := LoadConfig([]string{"-s", "jwt", "-k", "file"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", c.JWTSecret)
	assert.Equal(t, "file", c.FileSecret)
}
