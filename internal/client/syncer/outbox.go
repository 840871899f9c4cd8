package syncer

import (
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
)

// outbox holds at most one PendingOp per item id.
type outbox struct {
	mu  sync.Mutex
	ops map[string]*models.PendingOp
	seq uint64
	now func() time.Time
}

func newOutbox(now func() time.Time) *outbox {
	return &outbox{ops: make(map[string]*models.PendingOp), now: now}
}

func (o *outbox) has(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.ops[id]
	return ok
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.ops)
}

func (o *outbox) get(id string) (models.PendingOp, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	op, ok := o.ops[id]
	if !ok {
		return models.PendingOp{}, false
	}
	return *op, true
}

// record folds a local change into the outbox.
func (o *outbox) record(ch models.Change) {
	o.mu.Lock()
	defer o.mu.Unlock()

	op, exists := o.ops[ch.ID]

	var kind models.OpKind
	switch {
	case ch.Removed():
		kind = models.OpDelete
	case exists && op.Kind != models.OpDelete:
		kind = op.Kind
	case exists || ch.Before == nil:
		// a delete followed by a re-add of the same id, or a brand new item
		kind = models.OpInsert
	default:
		kind = models.OpUpdate
	}

	if !exists {
		o.seq++
		o.ops[ch.ID] = &models.PendingOp{
			ID:       ch.ID,
			Kind:     kind,
			State:    models.OpPending,
			Seq:      o.seq,
			QueuedAt: o.now(),
		}
		return
	}

	op.Kind = kind
	if op.State == models.OpPushing {
		op.Dirty = true
	}
}

// retryFailed moves failed ops back to pending.
func (o *outbox) retryFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, op := range o.ops {
		if op.State == models.OpFailed {
			op.State = models.OpPending
		}
	}
}

// next marks the oldest pending op as pushing and returns a copy of it.
func (o *outbox) next() (models.PendingOp, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var best *models.PendingOp
	for _, op := range o.ops {
		if op.State != models.OpPending {
			continue
		}
		if best == nil || op.Seq < best.Seq {
			best = op
		}
	}
	if best == nil {
		return models.PendingOp{}, false
	}
	best.State = models.OpPushing
	best.Dirty = false
	best.Attempts++
	return *best, true
}

// ack completes the in-flight op for id. A dirty op is re-queued (an acked
// insert becomes an update) and ack reports true; otherwise the op leaves
// the outbox.
func (o *outbox) ack(id string) (requeued bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	op, ok := o.ops[id]
	if !ok {
		return false
	}
	if op.Dirty {
		op.Dirty = false
		op.State = models.OpPending
		op.LastError = ""
		if op.Kind == models.OpInsert {
			op.Kind = models.OpUpdate
		}
		o.seq++
		op.Seq = o.seq
		return true
	}
	op.State = models.OpAcknowledged
	delete(o.ops, id)
	return false
}

// fail records a failed push attempt.
func (o *outbox) fail(id string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	op, ok := o.ops[id]
	if !ok {
		return
	}
	op.State = models.OpFailed
	op.Dirty = false
	op.LastError = err.Error()
}

func (o *outbox) drop(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.ops, id)
}

// remoteDeleted handles a delete made elsewhere. A queued op is dropped; an
// in-flight one is turned into a delete so whatever it writes is removed
// again once it is acknowledged.
func (o *outbox) remoteDeleted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	op, ok := o.ops[id]
	if !ok {
		return
	}
	if op.State == models.OpPushing && op.Kind != models.OpDelete {
		op.Kind = models.OpDelete
		op.Dirty = true
		return
	}
	if op.State != models.OpPushing {
		delete(o.ops, id)
	}
}

// list returns the ops ordered by queue position.
func (o *outbox) list() []models.PendingOp {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.PendingOp, 0, len(o.ops))
	for _, op := range o.ops {
		out = append(out, *op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// restore replaces the outbox with ops loaded from a snapshot. Ops that
// were in flight when the snapshot was taken go back to pending.
func (o *outbox) restore(ops []models.PendingOp) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.ops = make(map[string]*models.PendingOp, len(ops))
	o.seq = 0
	for _, op := range ops {
		op := op
		if op.State == models.OpPushing || op.State == models.OpFailed {
			op.State = models.OpPending
		}
		op.Dirty = false
		o.ops[op.ID] = &op
		if op.Seq > o.seq {
			o.seq = op.Seq
		}
	}
}
