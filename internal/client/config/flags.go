package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/todosync/internal/flagx"
)

var knownFlags = []string{"-a", "-f", "-r", "-d", "-t", "-n", "-i", "-ns", "-kv", "-p", "-l"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   address and port of the gRPC server
//	-f string   websocket feed URL
//	-r string   realtime transport: grpc or ws
//	-d string   data directory
//	-t string   access token
//	-n string   device id (generated when empty)
//	-i duration online check interval
//	-ns string  snapshot namespace
//	-kv string  local storage: sqlite, s3 or memory
//	-p string   passphrase; enables encryption at rest
//	-l string   log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("todosync", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.FeedURL, "f", cfg.FeedURL, "websocket feed url")
	fs.StringVar(&cfg.RealtimeTransport, "r", cfg.RealtimeTransport, "realtime transport (grpc|ws)")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.DeviceID, "n", cfg.DeviceID, "device id")
	fs.DurationVar(&cfg.OnlineCheckInterval, "i", cfg.OnlineCheckInterval, "online check interval")
	fs.StringVar(&cfg.Namespace, "ns", cfg.Namespace, "snapshot namespace")
	fs.StringVar(&cfg.KVBackend, "kv", cfg.KVBackend, "local storage backend (sqlite|s3|memory)")
	fs.StringVar(&cfg.Passphrase, "p", cfg.Passphrase, "passphrase for encryption at rest")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
