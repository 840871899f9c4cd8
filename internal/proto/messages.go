package proto

import "time"

// Todo is a row of the remote todos table.
type Todo struct {
	Id        string    `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Counter   int64     `json:"counter,omitempty"`
}

// EventType is the kind of change a ChangeEvent carries.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one entry of the realtime change feed. For EventDelete only
// Id is meaningful; Todo is nil.
type ChangeEvent struct {
	Type         EventType `json:"type"`
	Id           string    `json:"id"`
	Todo         *Todo     `json:"todo,omitempty"`
	SourceDevice string    `json:"source_device,omitempty"`
	CommittedAt  time.Time `json:"committed_at"`
}

type PingRequest struct{}

type PingResponse struct {
	ServerTime time.Time
}

// SelectRequest asks for rows with updated_at strictly after Since. A zero
// Since selects the full table.
type SelectRequest struct {
	Since time.Time
}

type SelectResponse struct {
	Todos []*Todo
}

type InsertRequest struct {
	Todo *Todo
}

// InsertResponse returns the stored row. Inserted is false when the id
// already existed and the row was updated (or left unchanged) instead.
type InsertResponse struct {
	Todo     *Todo
	Inserted bool
}

type UpdateRequest struct {
	Todo *Todo
}

// UpdateResponse returns the stored row. Applied is false when the stored
// row was newer than the request and was kept.
type UpdateResponse struct {
	Todo    *Todo
	Applied bool
}

type DeleteRequest struct {
	Id string
}

type DeleteResponse struct {
	Existed bool
}

type SubscribeRequest struct{}
