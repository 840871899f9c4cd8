package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/todosync/internal/client/client"
	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/sethvargo/go-retry"
)

// Flush pushes every queued op once, oldest first. It stops at the first
// retryable failure and returns it; the op stays queued.
func (e *Engine) Flush(ctx context.Context) error {
	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	e.outbox.retryFailed()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		op, ok := e.outbox.next()
		if !ok {
			return nil
		}

		if err := e.pushOne(ctx, op); err != nil {
			e.outbox.fail(op.ID, err)
			e.schedulePersist()
			e.noteFailure(ctx, err)
			return fmt.Errorf("push %s %s: %w", op.Kind, op.ID, err)
		}
		e.schedulePersist()
	}
}

// pushOne sends op. A nil return means the op left the pushing state.
func (e *Engine) pushOne(ctx context.Context, op models.PendingOp) error {
	if op.Kind == models.OpDelete {
		if err := e.remote.Delete(ctx, op.ID); err != nil && !errors.Is(err, client.ErrNotFound) {
			return err
		}
		e.markPurgeAcked(op.ID)
		e.outbox.ack(op.ID)
		e.logger.Debug(ctx, "delete acknowledged", "id", op.ID)
		return nil
	}

	cur, ok := e.store.Lookup(op.ID)
	if !ok {
		// removed without a delete op being queued, e.g. by a remote delete
		// racing the push; nothing left to send
		e.outbox.drop(op.ID)
		return nil
	}

	var (
		row models.Todo
		err error
	)
	if op.Kind == models.OpInsert {
		row, err = e.remote.Insert(ctx, cur)
	} else {
		row, err = e.remote.Update(ctx, cur)
	}

	switch {
	case err == nil:
	case op.Kind == models.OpUpdate && errors.Is(err, client.ErrNotFound):
		// deleted remotely; the edit must not resurrect it
		e.outbox.drop(op.ID)
		e.mergeMu.Lock()
		e.store.Delete(op.ID, models.OriginRemote)
		e.mergeMu.Unlock()
		e.logger.Info(ctx, "update target gone, dropped locally", "id", op.ID)
		return nil
	case errors.Is(err, client.ErrInvalidArgument):
		e.outbox.drop(op.ID)
		e.logger.Error(ctx, "push rejected, op dropped", "id", op.ID, "kind", op.Kind, "error", err)
		return nil
	default:
		return err
	}

	if requeued := e.outbox.ack(op.ID); requeued {
		e.logger.Debug(ctx, "changed while pushing, queued again", "id", op.ID)
		return nil
	}
	e.mergeAck(row)
	e.logger.Debug(ctx, "push acknowledged", "id", op.ID, "kind", op.Kind, "counter", row.Counter)
	return nil
}

// pushLoop flushes the outbox whenever it is kicked, retrying with backoff
// until the flush succeeds or ctx is done.
func (e *Engine) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
		}

		err := retry.Do(ctx, e.newBackoff(), func(ctx context.Context) error {
			if err := e.Flush(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warn(ctx, "flush failed, retrying", "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			e.logger.Error(ctx, "flush gave up", "error", err)
		}
	}
}
