package models

import "time"

// OpKind is the remote operation a pending outbox entry will perform.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// OpState tracks an outbox entry through
//
//	pending -> pushing -> acknowledged
//	pushing -> failed  -> pending
//
// Acknowledged entries leave the outbox.
type OpState string

const (
	OpPending      OpState = "pending"
	OpPushing      OpState = "pushing"
	OpFailed       OpState = "failed"
	OpAcknowledged OpState = "acknowledged"
)

// PendingOp is the outbox entry for one item id. The payload is not stored:
// inserts and updates send whatever the store holds at push time.
type PendingOp struct {
	ID    string  `json:"id"`
	Kind  OpKind  `json:"kind"`
	State OpState `json:"state"`
	// Dirty is set when the item changed locally while the op was pushing;
	// the op is queued again once the in-flight push is acknowledged.
	Dirty     bool      `json:"dirty,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Seq       uint64    `json:"seq"`
	QueuedAt  time.Time `json:"queued_at"`
}
