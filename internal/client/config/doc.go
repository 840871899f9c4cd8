// Package config loads runtime configuration for the todosync CLI.
//
// Sources, in order of precedence (later wins):
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. JSON, YAML and TOML
//     are picked by extension; durations are strings like "3s" or integer
//     nanoseconds.
//  3. Command-line flags.
//
// Example YAML:
//
//	server_endpoint_addr: 127.0.0.1:50051
//	realtime_transport: ws
//	feed_url: ws://127.0.0.1:8080/feed
//	online_check_interval: 5s
//	kv_backend: s3
//	s3:
//	  bucket: todos
//	  base_endpoint: http://127.0.0.1:9000
package config
