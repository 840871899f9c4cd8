package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/repositories/kv"
)

// Realtime transports.
const (
	TransportGRPC = "grpc"
	TransportWS   = "ws"
)

// KV backends.
const (
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings for the todosync CLI.
type Config struct {
	ServerEndpointAddr  string
	FeedURL             string
	RealtimeTransport   string
	DataDir             string
	AccessToken         string
	DeviceID            string
	OnlineCheckInterval time.Duration
	BackoffBase         time.Duration
	BackoffCap          time.Duration
	Namespace           string
	KVBackend           string
	S3                  kv.S3Config
	Passphrase          string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.FeedURL = "ws://127.0.0.1:8080/feed"
	c.RealtimeTransport = TransportGRPC
	c.DataDir = defaultDataDir()
	c.OnlineCheckInterval = 3 * time.Second
	c.BackoffBase = 500 * time.Millisecond
	c.BackoffCap = 30 * time.Second
	c.Namespace = "default"
	c.KVBackend = BackendSQLite
	c.S3.Region = "us-east-1"
	c.LogLevel = "info"
}

// Validate checks enumerations and required combinations.
func (c *Config) Validate() error {
	switch c.RealtimeTransport {
	case TransportGRPC, TransportWS:
	default:
		return fmt.Errorf("%w: unknown realtime transport %q", ErrInvalidConfig, c.RealtimeTransport)
	}
	switch c.KVBackend {
	case BackendSQLite, BackendMemory:
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: s3 backend needs a bucket", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown kv backend %q", ErrInvalidConfig, c.KVBackend)
	}
	if c.ServerEndpointAddr == "" {
		return fmt.Errorf("%w: empty server address", ErrInvalidConfig)
	}
	if c.Namespace == "" {
		return fmt.Errorf("%w: empty namespace", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
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

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "todosync")
	}
	return ".todosync"
}
