package proto

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Message is implemented by every todosync wire type. The codec copies a
// Message into a dynamic message of the matching descriptor and back.
type Message interface {
	protoName() protoreflect.Name
	writeTo(m protoreflect.Message)
	readFrom(m protoreflect.Message)
}

func descriptorOf(msg Message) (protoreflect.MessageDescriptor, error) {
	md := File.Messages().ByName(msg.protoName())
	if md == nil {
		return nil, fmt.Errorf("todosync.proto has no message %s", msg.protoName())
	}
	return md, nil
}

func fieldOf(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("%s has no field %s", m.Descriptor().FullName(), name))
	}
	return fd
}

func setString(m protoreflect.Message, name protoreflect.Name, v string) {
	if v != "" {
		m.Set(fieldOf(m, name), protoreflect.ValueOfString(v))
	}
}

func setBool(m protoreflect.Message, name protoreflect.Name, v bool) {
	if v {
		m.Set(fieldOf(m, name), protoreflect.ValueOfBool(v))
	}
}

func setInt64(m protoreflect.Message, name protoreflect.Name, v int64) {
	if v != 0 {
		m.Set(fieldOf(m, name), protoreflect.ValueOfInt64(v))
	}
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(fieldOf(m, name)).String()
}

func getBool(m protoreflect.Message, name protoreflect.Name) bool {
	return m.Get(fieldOf(m, name)).Bool()
}

func getInt64(m protoreflect.Message, name protoreflect.Name) int64 {
	return m.Get(fieldOf(m, name)).Int()
}

// setTime stores t as a google.protobuf.Timestamp. The zero time is left
// unset so it survives the round trip.
func setTime(m protoreflect.Message, name protoreflect.Name, t time.Time) {
	if t.IsZero() {
		return
	}
	ts := timestamppb.New(t)
	fd := fieldOf(m, name)
	sub := m.NewField(fd).Message()
	sub.Set(fieldOf(sub, "seconds"), protoreflect.ValueOfInt64(ts.GetSeconds()))
	sub.Set(fieldOf(sub, "nanos"), protoreflect.ValueOfInt32(ts.GetNanos()))
	m.Set(fd, protoreflect.ValueOfMessage(sub))
}

func getTime(m protoreflect.Message, name protoreflect.Name) time.Time {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return time.Time{}
	}
	sub := m.Get(fd).Message()
	ts := &timestamppb.Timestamp{
		Seconds: sub.Get(fieldOf(sub, "seconds")).Int(),
		Nanos:   int32(sub.Get(fieldOf(sub, "nanos")).Int()),
	}
	return ts.AsTime()
}

func setTodo(m protoreflect.Message, name protoreflect.Name, t *Todo) {
	if t == nil {
		return
	}
	fd := fieldOf(m, name)
	sub := m.NewField(fd).Message()
	t.writeTo(sub)
	m.Set(fd, protoreflect.ValueOfMessage(sub))
}

func getTodo(m protoreflect.Message, name protoreflect.Name) *Todo {
	fd := fieldOf(m, name)
	if !m.Has(fd) {
		return nil
	}
	t := new(Todo)
	t.readFrom(m.Get(fd).Message())
	return t
}

func (*Todo) protoName() protoreflect.Name { return "Todo" }

func (t *Todo) writeTo(m protoreflect.Message) {
	setString(m, "id", t.Id)
	setString(m, "text", t.Text)
	setBool(m, "done", t.Done)
	setBool(m, "deleted", t.Deleted)
	setTime(m, "created_at", t.CreatedAt)
	setTime(m, "updated_at", t.UpdatedAt)
	setInt64(m, "counter", t.Counter)
}

func (t *Todo) readFrom(m protoreflect.Message) {
	*t = Todo{
		Id:        getString(m, "id"),
		Text:      getString(m, "text"),
		Done:      getBool(m, "done"),
		Deleted:   getBool(m, "deleted"),
		CreatedAt: getTime(m, "created_at"),
		UpdatedAt: getTime(m, "updated_at"),
		Counter:   getInt64(m, "counter"),
	}
}

func (*ChangeEvent) protoName() protoreflect.Name { return "ChangeEvent" }

func (e *ChangeEvent) writeTo(m protoreflect.Message) {
	fd := fieldOf(m, "type")
	if v := fd.Enum().Values().ByName(protoreflect.Name(e.Type)); v != nil && v.Number() != 0 {
		m.Set(fd, protoreflect.ValueOfEnum(v.Number()))
	}
	setString(m, "id", e.Id)
	setTodo(m, "todo", e.Todo)
	setString(m, "source_device", e.SourceDevice)
	setTime(m, "committed_at", e.CommittedAt)
}

func (e *ChangeEvent) readFrom(m protoreflect.Message) {
	*e = ChangeEvent{
		Id:           getString(m, "id"),
		Todo:         getTodo(m, "todo"),
		SourceDevice: getString(m, "source_device"),
		CommittedAt:  getTime(m, "committed_at"),
	}
	fd := fieldOf(m, "type")
	if v := fd.Enum().Values().ByNumber(m.Get(fd).Enum()); v != nil && v.Number() != 0 {
		e.Type = EventType(v.Name())
	}
}

func (*PingRequest) protoName() protoreflect.Name { return "PingRequest" }
func (*PingRequest) writeTo(protoreflect.Message) {}
func (r *PingRequest) readFrom(protoreflect.Message) { *r = PingRequest{} }

func (*SubscribeRequest) protoName() protoreflect.Name { return "SubscribeRequest" }
func (*SubscribeRequest) writeTo(protoreflect.Message) {}
func (r *SubscribeRequest) readFrom(protoreflect.Message) { *r = SubscribeRequest{} }

func (*PingResponse) protoName() protoreflect.Name { return "PingResponse" }

func (r *PingResponse) writeTo(m protoreflect.Message) { setTime(m, "server_time", r.ServerTime) }
func (r *PingResponse) readFrom(m protoreflect.Message) {
	*r = PingResponse{ServerTime: getTime(m, "server_time")}
}

func (*SelectRequest) protoName() protoreflect.Name { return "SelectRequest" }

func (r *SelectRequest) writeTo(m protoreflect.Message) { setTime(m, "since", r.Since) }
func (r *SelectRequest) readFrom(m protoreflect.Message) {
	*r = SelectRequest{Since: getTime(m, "since")}
}

func (*SelectResponse) protoName() protoreflect.Name { return "SelectResponse" }

func (r *SelectResponse) writeTo(m protoreflect.Message) {
	if len(r.Todos) == 0 {
		return
	}
	list := m.Mutable(fieldOf(m, "todos")).List()
	for _, t := range r.Todos {
		el := list.NewElement()
		if t != nil {
			t.writeTo(el.Message())
		}
		list.Append(el)
	}
}

func (r *SelectResponse) readFrom(m protoreflect.Message) {
	*r = SelectResponse{}
	list := m.Get(fieldOf(m, "todos")).List()
	if list.Len() == 0 {
		return
	}
	r.Todos = make([]*Todo, list.Len())
	for i := 0; i < list.Len(); i++ {
		t := new(Todo)
		t.readFrom(list.Get(i).Message())
		r.Todos[i] = t
	}
}

func (*InsertRequest) protoName() protoreflect.Name { return "InsertRequest" }
func (r *InsertRequest) writeTo(m protoreflect.Message) { setTodo(m, "todo", r.Todo) }
func (r *InsertRequest) readFrom(m protoreflect.Message) {
	*r = InsertRequest{Todo: getTodo(m, "todo")}
}

func (*InsertResponse) protoName() protoreflect.Name { return "InsertResponse" }

func (r *InsertResponse) writeTo(m protoreflect.Message) {
	setTodo(m, "todo", r.Todo)
	setBool(m, "inserted", r.Inserted)
}

func (r *InsertResponse) readFrom(m protoreflect.Message) {
	*r = InsertResponse{Todo: getTodo(m, "todo"), Inserted: getBool(m, "inserted")}
}

func (*UpdateRequest) protoName() protoreflect.Name { return "UpdateRequest" }
func (r *UpdateRequest) writeTo(m protoreflect.Message) { setTodo(m, "todo", r.Todo) }
func (r *UpdateRequest) readFrom(m protoreflect.Message) {
	*r = UpdateRequest{Todo: getTodo(m, "todo")}
}

func (*UpdateResponse) protoName() protoreflect.Name { return "UpdateResponse" }

func (r *UpdateResponse) writeTo(m protoreflect.Message) {
	setTodo(m, "todo", r.Todo)
	setBool(m, "applied", r.Applied)
}

func (r *UpdateResponse) readFrom(m protoreflect.Message) {
	*r = UpdateResponse{Todo: getTodo(m, "todo"), Applied: getBool(m, "applied")}
}

func (*DeleteRequest) protoName() protoreflect.Name { return "DeleteRequest" }
func (r *DeleteRequest) writeTo(m protoreflect.Message) { setString(m, "id", r.Id) }
func (r *DeleteRequest) readFrom(m protoreflect.Message) {
	*r = DeleteRequest{Id: getString(m, "id")}
}

func (*DeleteResponse) protoName() protoreflect.Name { return "DeleteResponse" }
func (r *DeleteResponse) writeTo(m protoreflect.Message) { setBool(m, "existed", r.Existed) }
func (r *DeleteResponse) readFrom(m protoreflect.Message) {
	*r = DeleteResponse{Existed: getBool(m, "existed")}
}
