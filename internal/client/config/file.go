package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/todosync/internal/flagx"
	"github.com/dmitrijs2005/todosync/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config. Zero values leave the
// corresponding Config field untouched.
type FileConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr" toml:"server_endpoint_addr"`
	FeedURL             string         `json:"feed_url" yaml:"feed_url" toml:"feed_url"`
	RealtimeTransport   string         `json:"realtime_transport" yaml:"realtime_transport" toml:"realtime_transport"`
	DataDir             string         `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	AccessToken         string         `json:"access_token" yaml:"access_token" toml:"access_token"`
	DeviceID            string         `json:"device_id" yaml:"device_id" toml:"device_id"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval" toml:"online_check_interval"`
	BackoffBase         timex.Duration `json:"backoff_base" yaml:"backoff_base" toml:"backoff_base"`
	BackoffCap          timex.Duration `json:"backoff_cap" yaml:"backoff_cap" toml:"backoff_cap"`
	Namespace           string         `json:"namespace" yaml:"namespace" toml:"namespace"`
	KVBackend           string         `json:"kv_backend" yaml:"kv_backend" toml:"kv_backend"`
	S3                  S3FileConfig   `json:"s3" yaml:"s3" toml:"s3"`
	Passphrase          string         `json:"passphrase" yaml:"passphrase" toml:"passphrase"`
	LogLevel            string         `json:"log_level" yaml:"log_level" toml:"log_level"`
}

type S3FileConfig struct {
	Bucket       string `json:"bucket" yaml:"bucket" toml:"bucket"`
	Region       string `json:"region" yaml:"region" toml:"region"`
	BaseEndpoint string `json:"base_endpoint" yaml:"base_endpoint" toml:"base_endpoint"`
	AccessKey    string `json:"access_key" yaml:"access_key" toml:"access_key"`
	SecretKey    string `json:"secret_key" yaml:"secret_key" toml:"secret_key"`
	Prefix       string `json:"prefix" yaml:"prefix" toml:"prefix"`
}

// parseFile overlays cfg with the file named by -c/-config, if any. The
// format follows the file extension.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	switch flagx.FormatOf(path) {
	case flagx.FormatYAML:
		err = yaml.Unmarshal(data, &fc)
	case flagx.FormatTOML:
		err = toml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setString(&cfg.FeedURL, fc.FeedURL)
	setString(&cfg.RealtimeTransport, fc.RealtimeTransport)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.AccessToken, fc.AccessToken)
	setString(&cfg.DeviceID, fc.DeviceID)
	setString(&cfg.Namespace, fc.Namespace)
	setString(&cfg.KVBackend, fc.KVBackend)
	setString(&cfg.Passphrase, fc.Passphrase)
	setString(&cfg.LogLevel, fc.LogLevel)

	setString(&cfg.S3.Bucket, fc.S3.Bucket)
	setString(&cfg.S3.Region, fc.S3.Region)
	setString(&cfg.S3.BaseEndpoint, fc.S3.BaseEndpoint)
	setString(&cfg.S3.AccessKey, fc.S3.AccessKey)
	setString(&cfg.S3.SecretKey, fc.S3.SecretKey)
	setString(&cfg.S3.Prefix, fc.S3.Prefix)

	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.BackoffBase.Duration > 0 {
		cfg.BackoffBase = fc.BackoffBase.Duration
	}
	if fc.BackoffCap.Duration > 0 {
		cfg.BackoffCap = fc.BackoffCap.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
