package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/client/store"
)

func (e *Engine) isPurged(id string) bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	_, ok := e.purged[id]
	return ok
}

// mergeRow applies a remote row with the newer-wins rule. Callers hold
// mergeMu. It reports whether the store changed.
func (e *Engine) mergeRow(row models.Todo) bool {
	_, m := e.store.Update(row.ID, func(cur models.Todo, ok bool) (models.Todo, store.Mutation) {
		if e.outbox.has(row.ID) || e.isPurged(row.ID) {
			return cur, store.Skip
		}
		if ok && !row.UpdatedAt.After(cur.UpdatedAt) {
			return cur, store.Skip
		}
		return row, store.Put
	}, models.OriginRemote)
	return m == store.Put
}

// mergeAck applies the row the server returned for an acknowledged push.
// Unlike mergeRow an equal updatedAt is taken, to pick up the counter.
func (e *Engine) mergeAck(row models.Todo) {
	e.mergeMu.Lock()
	defer e.mergeMu.Unlock()

	e.store.Update(row.ID, func(cur models.Todo, ok bool) (models.Todo, store.Mutation) {
		if !ok || e.outbox.has(row.ID) {
			return cur, store.Skip
		}
		if row.UpdatedAt.Before(cur.UpdatedAt) || row == cur {
			return cur, store.Skip
		}
		return row, store.Put
	}, models.OriginRemote)
}

// applyRemoteDelete removes id after a delete made on another device.
func (e *Engine) applyRemoteDelete(id string) bool {
	e.outbox.remoteDeleted(id)
	return e.store.Delete(id, models.OriginRemote)
}

func (e *Engine) advanceCursor(ts time.Time) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if ts.After(e.cursor) {
		e.cursor = ts
	}
}

// settlePurged forgets local hard deletes acknowledged before a pull that
// started at pullStart: such a pull can no longer return the row.
func (e *Engine) settlePurged(pullStart time.Time) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	for id, ackedAt := range e.purged {
		if !ackedAt.IsZero() && ackedAt.Before(pullStart) {
			delete(e.purged, id)
		}
	}
}

func (e *Engine) markPurgeAcked(id string) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if _, ok := e.purged[id]; ok {
		e.purged[id] = e.now()
	}
}

// Pull fetches rows newer than the cursor and merges them.
func (e *Engine) Pull(ctx context.Context) error {
	started := e.now()
	since := e.Cursor()

	rows, err := e.remote.Select(ctx, since)
	if err != nil {
		e.noteFailure(ctx, err)
		return fmt.Errorf("pull: %w", err)
	}

	e.mergeMu.Lock()
	applied := 0
	for _, row := range rows {
		if e.mergeRow(row) {
			applied++
		}
		e.advanceCursor(row.UpdatedAt)
	}
	e.settlePurged(started)
	e.mergeMu.Unlock()

	e.markSynced(ctx)
	e.schedulePersist()

	e.logger.Debug(ctx, "pull complete", "since", since, "rows", len(rows), "applied", applied)
	return nil
}

// Refresh re-reads the whole remote table. Besides merging, it removes
// local entries the server no longer has, unless they have queued local
// changes. This clears copies of rows hard-deleted elsewhere while this
// device was offline.
func (e *Engine) Refresh(ctx context.Context) error {
	started := e.now()

	rows, err := e.remote.Select(ctx, time.Time{})
	if err != nil {
		e.noteFailure(ctx, err)
		return fmt.Errorf("refresh: %w", err)
	}

	remote := make(map[string]struct{}, len(rows))

	e.mergeMu.Lock()
	for _, row := range rows {
		remote[row.ID] = struct{}{}
		e.mergeRow(row)
		e.advanceCursor(row.UpdatedAt)
	}

	removed := 0
	for id := range e.store.Get() {
		if _, ok := remote[id]; ok {
			continue
		}
		_, m := e.store.Update(id, func(cur models.Todo, ok bool) (models.Todo, store.Mutation) {
			if !ok || e.outbox.has(id) {
				return cur, store.Skip
			}
			return cur, store.Remove
		}, models.OriginRemote)
		if m == store.Remove {
			removed++
		}
	}
	e.settlePurged(started)
	e.mergeMu.Unlock()

	e.markSynced(ctx)
	e.schedulePersist()

	e.logger.Info(ctx, "refresh complete", "rows", len(rows), "removed", removed)
	return nil
}

// applyEvent merges one realtime event.
func (e *Engine) applyEvent(ctx context.Context, ev models.RemoteEvent) {
	if ev.SourceDevice != "" && ev.SourceDevice == e.cfg.DeviceID {
		e.logger.Debug(ctx, "own event skipped", "id", ev.ID, "kind", ev.Kind)
		return
	}

	e.mergeMu.Lock()
	changed := false
	switch ev.Kind {
	case models.EventDelete:
		changed = e.applyRemoteDelete(ev.ID)
	case models.EventInsert, models.EventUpdate:
		if ev.Todo == nil {
			e.mergeMu.Unlock()
			e.logger.Warn(ctx, "event without row", "id", ev.ID, "kind", ev.Kind)
			return
		}
		changed = e.mergeRow(*ev.Todo)
		e.advanceCursor(ev.Todo.UpdatedAt)
	default:
		e.mergeMu.Unlock()
		e.logger.Warn(ctx, "unknown event kind", "kind", ev.Kind)
		return
	}
	e.mergeMu.Unlock()

	e.schedulePersist()
	e.logger.Debug(ctx, "event applied", "id", ev.ID, "kind", ev.Kind, "changed", changed)
}

func (e *Engine) markSynced(ctx context.Context) {
	e.stateMu.Lock()
	e.lastSync = e.now()
	e.lastErr = nil
	e.stateMu.Unlock()
	e.setMode(ctx, ModeOnline)
}
