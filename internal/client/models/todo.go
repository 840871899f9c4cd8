// Package models defines the client-side todo record, the typed patch used
// to change it, and the bookkeeping types the sync engine persists.
package models

import (
	"strings"
	"time"
)

// TimestampPrecision is the resolution timestamps are kept at. It matches
// PostgreSQL timestamptz so values compare equal after a round trip.
const TimestampPrecision = time.Microsecond

// Todo is one item of the synchronized collection.
type Todo struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Counter is assigned by the server and is zero until the row is stored.
	Counter int64 `json:"counter,omitempty"`
}

// Active reports whether the item belongs to the active view.
func (t Todo) Active() bool { return !t.Deleted }

// Patch is a partial update of a Todo. Nil fields are left unchanged.
type Patch struct {
	Text      *string
	Done      *bool
	Deleted   *bool
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Counter   *int64
}

// Apply returns t with every non-nil field of p written over it.
func (p Patch) Apply(t Todo) Todo {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	if p.Deleted != nil {
		t.Deleted = *p.Deleted
	}
	if p.CreatedAt != nil {
		t.CreatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		t.UpdatedAt = *p.UpdatedAt
	}
	if p.Counter != nil {
		t.Counter = *p.Counter
	}
	return t
}

// Ptr returns a pointer to v. Handy for building a Patch.
func Ptr[T any](v T) *T { return &v }

// Now returns the current UTC time at TimestampPrecision.
func Now() time.Time {
	return time.Now().UTC().Truncate(TimestampPrecision)
}

// NextUpdatedAt returns the updatedAt for a mutation of an item whose
// current updatedAt is prev: now, or prev plus one tick if the clock has
// not moved past prev. The result is always strictly after prev.
func NextUpdatedAt(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(TimestampPrecision)
	floor := prev.UTC().Truncate(TimestampPrecision).Add(TimestampPrecision)
	if now.Before(floor) {
		return floor
	}
	return now
}

// NormalizeText trims surrounding whitespace from user input.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}
