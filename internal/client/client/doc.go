// Package client contains the client-side side of the todosync wire.
//
// # Overview
//
// The package provides:
//  1. The remote data service contract used by the sync engine (Client,
//     Subscriber, Subscription).
//  2. A gRPC implementation (GRPCClient) that attaches the access token and
//     device id to every call, opens the server-streaming change feed and
//     maps gRPC status codes to sentinel errors.
//  3. A WebSocket implementation of the change feed (WSFeed).
//  4. Local database bootstrap (InitDatabase, RunMigrations) for the SQLite
//     key/value store, applying embedded goose migrations.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrNotFound, ErrInvalidArgument,
// ErrFeedClosed.
package client
