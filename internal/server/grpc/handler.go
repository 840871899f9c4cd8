package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/todosync/internal/common"
	pb "github.com/dmitrijs2005/todosync/internal/proto"
	"github.com/dmitrijs2005/todosync/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {

	return &pb.PingResponse{ServerTime: time.Now().UTC()}, nil

}

func (s *GRPCServer) Select(ctx context.Context, req *pb.SelectRequest) (*pb.SelectResponse, error) {
	who, ok := identityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	rows, err := s.todos.Select(ctx, who, req.Since.UTC())
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]*pb.Todo, 0, len(rows))
	for _, r := range rows {
		out = append(out, toPB(r))
	}
	return &pb.SelectResponse{Todos: out}, nil
}

func (s *GRPCServer) Insert(ctx context.Context, req *pb.InsertRequest) (*pb.InsertResponse, error) {
	who, ok := identityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if req.Todo == nil {
		return nil, status.Error(codes.InvalidArgument, "missing todo")
	}

	row, res, err := s.todos.Insert(ctx, who, fromPB(req.Todo))
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Debug(ctx, "insert", "user", who.UserID, "id", row.ID, "result", res)
	return &pb.InsertResponse{Todo: toPB(row), Inserted: res == models.Inserted}, nil
}

func (s *GRPCServer) Update(ctx context.Context, req *pb.UpdateRequest) (*pb.UpdateResponse, error) {
	who, ok := identityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if req.Todo == nil {
		return nil, status.Error(codes.InvalidArgument, "missing todo")
	}

	row, res, err := s.todos.Update(ctx, who, fromPB(req.Todo))
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.UpdateResponse{Todo: toPB(row), Applied: res.Applied()}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *pb.DeleteRequest) (*pb.DeleteResponse, error) {
	who, ok := identityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	existed, err := s.todos.Delete(ctx, who, req.Id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.DeleteResponse{Existed: existed}, nil
}

// Subscribe streams the caller's change events until the client goes away.
// Headers are sent only after the subscription is registered, so a client
// that waits for them cannot miss a change committed afterwards.
func (s *GRPCServer) Subscribe(req *pb.SubscribeRequest, stream grpc.ServerStreamingServer[pb.ChangeEvent]) error {
	ctx := stream.Context()
	who, ok := identityFrom(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "unauthorized")
	}

	events, cancel := s.feed.Subscribe(who.UserID)
	defer cancel()

	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}

	s.logger.Info(ctx, "feed subscribed", "user", who.UserID, "device", who.DeviceID)
	defer s.logger.Info(ctx, "feed closed", "user", who.UserID, "device", who.DeviceID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.shutdown:
			return status.Error(codes.Unavailable, "server shutting down")
		case ev, ok := <-events:
			if !ok {
				return status.Error(codes.Unavailable, "subscriber dropped")
			}
			if err := stream.Send(EventToPB(ev)); err != nil {
				return err
			}
		}
	}
}
