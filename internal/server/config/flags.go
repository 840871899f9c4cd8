package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/todosync/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string    gRPC listen address
//	-w string    WebSocket feed listen address
//	-d string    database DSN
//	-s string    JWT secret key
//	-t duration  access token validity
//	-l string    log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-w", "-d", "-s", "-t", "-l"})

	fs := flag.NewFlagSet("todosync-server", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "gRPC listen address")
	fs.StringVar(&cfg.EndpointAddrHTTP, "w", cfg.EndpointAddrHTTP, "websocket feed listen address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN; empty keeps data in memory")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "JWT secret key")
	fs.DurationVar(&cfg.AccessTokenValidityDuration, "t", cfg.AccessTokenValidityDuration, "access token validity")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
