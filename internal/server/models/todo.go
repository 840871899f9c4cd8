// Package models holds the server-side row and event types.
package models

import "time"

// Todo is one row of the todos table. Counter is assigned by the server on
// first insert and never changes.
type Todo struct {
	UserID    string
	ID        string
	Text      string
	Done      bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Counter   int64
}

// WriteResult tells how a conditional write ended.
type WriteResult int

const (
	// Stale: the stored row had a newer updated_at and was kept.
	Stale WriteResult = iota
	Inserted
	Updated
)

// Applied reports whether the write changed the stored row.
func (r WriteResult) Applied() bool { return r != Stale }

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is published after every committed row change. Todo is nil
// for deletes.
type ChangeEvent struct {
	UserID       string
	Type         EventType
	ID           string
	Todo         *Todo
	SourceDevice string
	CommittedAt  time.Time
}
