package proto

import (
	"fmt"

	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// File is the descriptor of todosync.proto, built at init from the same
// definitions the .proto file lists.
var File protoreflect.FileDescriptor

const (
	typeTimestamp = ".google.protobuf.Timestamp"
	typeTodo      = ".todosync.Todo"
	typeEventType = ".todosync.EventType"
)

func init() {
	fd, err := protodesc.NewFile(fileDescriptorProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("todosync.proto: %v", err))
	}
	File = fd
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING
	boolean := descriptorpb.FieldDescriptorProto_TYPE_BOOL
	i64 := descriptorpb.FieldDescriptorProto_TYPE_INT64
	msg := descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	enum := descriptorpb.FieldDescriptorProto_TYPE_ENUM

	return &descriptorpb.FileDescriptorProto{
		Name:       gproto.String("todosync.proto"),
		Package:    gproto.String("todosync"),
		Syntax:     gproto.String("proto3"),
		Dependency: []string{timestamppb.File_google_protobuf_timestamp_proto.Path()},
		Options: &descriptorpb.FileOptions{
			GoPackage: gproto.String("github.com/dmitrijs2005/todosync/internal/proto"),
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: gproto.String("EventType"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: gproto.String("EVENT_TYPE_UNSPECIFIED"), Number: gproto.Int32(0)},
				{Name: gproto.String(string(EventInsert)), Number: gproto.Int32(1)},
				{Name: gproto.String(string(EventUpdate)), Number: gproto.Int32(2)},
				{Name: gproto.String(string(EventDelete)), Number: gproto.Int32(3)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			message("Todo",
				field("id", 1, str, ""),
				field("text", 2, str, ""),
				field("done", 3, boolean, ""),
				field("deleted", 4, boolean, ""),
				field("created_at", 5, msg, typeTimestamp),
				field("updated_at", 6, msg, typeTimestamp),
				field("counter", 7, i64, ""),
			),
			message("ChangeEvent",
				field("type", 1, enum, typeEventType),
				field("id", 2, str, ""),
				field("todo", 3, msg, typeTodo),
				field("source_device", 4, str, ""),
				field("committed_at", 5, msg, typeTimestamp),
			),
			message("PingRequest"),
			message("PingResponse", field("server_time", 1, msg, typeTimestamp)),
			message("SelectRequest", field("since", 1, msg, typeTimestamp)),
			message("SelectResponse", repeated(field("todos", 1, msg, typeTodo))),
			message("InsertRequest", field("todo", 1, msg, typeTodo)),
			message("InsertResponse", field("todo", 1, msg, typeTodo), field("inserted", 2, boolean, "")),
			message("UpdateRequest", field("todo", 1, msg, typeTodo)),
			message("UpdateResponse", field("todo", 1, msg, typeTodo), field("applied", 2, boolean, "")),
			message("DeleteRequest", field("id", 1, str, "")),
			message("DeleteResponse", field("existed", 1, boolean, "")),
			message("SubscribeRequest"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: gproto.String("TodoService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("Ping", "PingRequest", "PingResponse", false),
				method("Select", "SelectRequest", "SelectResponse", false),
				method("Insert", "InsertRequest", "InsertResponse", false),
				method("Update", "UpdateRequest", "UpdateResponse", false),
				method("Delete", "DeleteRequest", "DeleteResponse", false),
				method("Subscribe", "SubscribeRequest", "ChangeEvent", true),
			},
		}},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: gproto.String(name), Field: fields}
}

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   gproto.String(name),
		Number: gproto.Int32(num),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = gproto.String(typeName)
	}
	return f
}

func repeated(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func method(name, in, out string, serverStreaming bool) *descriptorpb.MethodDescriptorProto {
	m := &descriptorpb.MethodDescriptorProto{
		Name:       gproto.String(name),
		InputType:  gproto.String(".todosync." + in),
		OutputType: gproto.String(".todosync." + out),
	}
	if serverStreaming {
		m.ServerStreaming = gproto.Bool(true)
	}
	return m
}
