// Package cli provides the interactive todosync command-line client.
//
// It wires configuration, local storage, the sync engine and a small REPL.
// Items are referenced by their position in the last listing or by an id
// prefix. All commands work offline; the engine pushes queued changes once
// the server is reachable again.
package cli
