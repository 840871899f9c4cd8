package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Empty(t, c.DatabaseDSN)
	assert.Empty(t, c.SecretKey)
	assert.Equal(t, 30*24*time.Hour, c.AccessTokenValidityDuration)
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := LoadConfig([]string{
		"-a", "127.0.0.1:9090", "-w", ":9091", "-d", "postgres://db", "-s", "secret", "-t", "1h", "-l", "debug",
	})
	require.NoError(t, err)

	want := &Config{
		EndpointAddrGRPC:            "127.0.0.1:9090",
		EndpointAddrHTTP:            ":9091",
		DatabaseDSN:                 "postgres://db",
		SecretKey:                   "secret",
		AccessTokenValidityDuration: time.Hour,
		LogLevel:                    "debug",
	}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadConfig_BadDuration(t *testing.T) {
	_, err := LoadConfig([]string{"-t", "soon"})
	assert.Error(t, err)
}

func TestLoadConfig_File(t *testing.T) {
	tests := []struct {
		file string
		body string
	}{
		{"srv.json", `{"database_dsn":"dsn-file","access_token_validity_duration":"2h","secret_key":"k"}`},
		{"srv.yml", "database_dsn: dsn-file\naccess_token_validity_duration: 2h\nsecret_key: k\n"},
		{"srv.toml", "database_dsn = \"dsn-file\"\naccess_token_validity_duration = \"2h\"\nsecret_key = \"k\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			cfg, err := LoadConfig([]string{"-c", path, "-s", "flag-wins"})
			require.NoError(t, err)

			assert.Equal(t, "dsn-file", cfg.DatabaseDSN)
			assert.Equal(t, 2*time.Hour, cfg.AccessTokenValidityDuration)
			assert.Equal(t, "flag-wins", cfg.SecretKey)
			assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig([]string{"-config", filepath.Join(t.TempDir(), "nope.json")})
	assert.Error(t, err)
}
