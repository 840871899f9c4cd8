// Package proto holds the todosync wire contract described by
// todosync.proto: message types, the gRPC service description for
// todosync.TodoService and the codec that puts the messages on the wire in
// protobuf encoding. ChangeEvent also carries JSON tags for the websocket
// feed.
package proto

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	gproto "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CodecName is the gRPC content-subtype carried by every todosync call
// ("application/grpc+todosync").
const CodecName = "todosync"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	msg, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("todosync codec: %T is not a todosync message", v)
	}
	md, err := descriptorOf(msg)
	if err != nil {
		return nil, err
	}

	dm := dynamicpb.NewMessage(md)
	msg.writeTo(dm)
	b, err := gproto.Marshal(dm)
	if err != nil {
		return nil, fmt.Errorf("todosync codec marshal %T: %w", v, err)
	}
	return b, nil
}

func (codec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(Message)
	if !ok {
		return fmt.Errorf("todosync codec: %T is not a todosync message", v)
	}
	md, err := descriptorOf(msg)
	if err != nil {
		return err
	}

	dm := dynamicpb.NewMessage(md)
	if err := gproto.Unmarshal(data, dm); err != nil {
		return fmt.Errorf("todosync codec unmarshal %T: %w", v, err)
	}
	msg.readFrom(dm)
	return nil
}

func (codec) Name() string { return CodecName }
