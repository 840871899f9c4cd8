package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
)

const eventBuffer = 256

// runSessions keeps a session open until ctx is done, backing off between
// failed sessions. The backoff restarts after a session that got as far as
// consuming events.
func (e *Engine) runSessions(ctx context.Context) {
	b := e.newBackoff()

	for {
		healthy, err := e.session(ctx)
		if ctx.Err() != nil {
			return
		}
		e.noteFailure(ctx, err)

		if healthy {
			b = e.newBackoff()
		}
		d, stop := b.Next()
		if stop {
			b = e.newBackoff()
			d, _ = b.Next()
		}
		e.logger.Warn(ctx, "session ended", "error", err, "retry_in", d)

		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// session runs one subscribe, pull, flush, consume cycle. healthy reports
// whether the initial pull succeeded.
func (e *Engine) session(ctx context.Context) (healthy bool, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := e.feed.Subscribe(ctx)
	if err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	events := make(chan models.RemoteEvent, eventBuffer)
	recvErr := make(chan error, 1)
	go func() {
		for {
			ev, err := sub.Recv(ctx)
			if err != nil {
				recvErr <- err
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := e.Pull(ctx); err != nil {
		return false, err
	}
	e.logger.Info(ctx, "session established", "cursor", e.Cursor())

	if err := e.Flush(ctx); err != nil {
		e.logger.Warn(ctx, "initial flush incomplete", "error", err)
		e.kickPush()
	}

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case ev := <-events:
			e.applyEvent(ctx, ev)
		case err := <-recvErr:
			e.drain(ctx, events)
			return true, fmt.Errorf("feed: %w", err)
		}
	}
}

// drain applies events that arrived before the feed broke.
func (e *Engine) drain(ctx context.Context, events <-chan models.RemoteEvent) {
	for {
		select {
		case ev := <-events:
			e.applyEvent(ctx, ev)
		default:
			return
		}
	}
}
