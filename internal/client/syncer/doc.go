// Package syncer keeps the local todo store in sync with the remote data
// service.
//
// An Engine observes local-origin store changes and records them in a
// per-id outbox, persists a snapshot of the store, the pull cursor and the
// outbox after every change, and pushes outbox entries with capped
// exponential backoff until the server acknowledges them.
//
// Remote state arrives through incremental pulls (rows newer than the
// cursor) and through the realtime change feed. Both go through the same
// merge rule:
//
//   - an id with an outbox entry keeps its local value;
//   - an id hard-deleted locally and not yet settled is ignored;
//   - otherwise the remote row wins when it is newer than the local one
//     (or the id is unknown locally).
//
// A remote delete always removes the local entry.
//
// Each connection session subscribes to the feed first, then pulls, then
// flushes the outbox, then applies feed events, so no change committed
// after the subscription is missed.
package syncer
