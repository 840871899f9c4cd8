// Package config handles configuration for the server component,
// including defaults, a config file overlay and command-line flags.
package config

import (
	"time"
)

// Config holds runtime settings for the todosync server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - EndpointAddrHTTP: bind address for the WebSocket change feed.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps rows in memory.
//   - SecretKey: HMAC secret for JWTs (HS256). Empty disables auth and every
//     request acts as the anonymous user.
//   - AccessTokenValidityDuration: lifetime of tokens minted by tokengen.
type Config struct {
	EndpointAddrGRPC            string
	EndpointAddrHTTP            string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	LogLevel                    string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.AccessTokenValidityDuration = 30 * 24 * time.Hour
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
