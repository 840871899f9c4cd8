package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/common"
	pb "github.com/dmitrijs2005/todosync/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const callTimeout = 15 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.TodoServiceClient
	accessToken string
	deviceID    string
}

func withIdentity(ctx context.Context, token, deviceID string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	if deviceID != "" {
		md.Set(common.DeviceIDHeaderName, deviceID)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) identityInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withIdentity(ctx, s.accessToken, s.deviceID), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamIdentityInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withIdentity(ctx, s.accessToken, s.deviceID), desc, cc, method, opts...)
}

// NewGRPCClient dials endpointURL lazily; no I/O happens until the first
// call. Extra dial options are appended after the defaults.
func NewGRPCClient(endpointURL, accessToken, deviceID string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, deviceID: deviceID}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.identityInterceptor),
		grpc.WithStreamInterceptor(c.streamIdentityInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewTodoServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if _, err := s.client.Ping(ctx, &pb.PingRequest{}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Select(ctx context.Context, since time.Time) ([]models.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := s.client.Select(ctx, &pb.SelectRequest{Since: since})
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make([]models.Todo, 0, len(resp.Todos))
	for _, t := range resp.Todos {
		out = append(out, fromPB(t))
	}
	return out, nil
}

func (s *GRPCClient) Insert(ctx context.Context, t models.Todo) (models.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := s.client.Insert(ctx, &pb.InsertRequest{Todo: toPB(t)})
	if err != nil {
		return models.Todo{}, s.mapError(err)
	}
	return fromPB(resp.Todo), nil
}

func (s *GRPCClient) Update(ctx context.Context, t models.Todo) (models.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := s.client.Update(ctx, &pb.UpdateRequest{Todo: toPB(t)})
	if err != nil {
		return models.Todo{}, s.mapError(err)
	}
	return fromPB(resp.Todo), nil
}

func (s *GRPCClient) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if _, err := s.client.Delete(ctx, &pb.DeleteRequest{Id: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Subscribe opens the server-streaming change feed and returns once the
// server has registered it. The stream lives until ctx is done or the
// returned subscription is closed.
func (s *GRPCClient) Subscribe(ctx context.Context) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := s.client.Subscribe(ctx, &pb.SubscribeRequest{})
	if err != nil {
		cancel()
		return nil, s.mapError(err)
	}
	// the server sends headers once the subscription is registered; waiting
	// for them means a pull issued afterwards cannot miss a change
	if _, err := stream.Header(); err != nil {
		cancel()
		return nil, s.mapError(err)
	}
	return &grpcSubscription{stream: stream, cancel: cancel, mapError: s.mapError}, nil
}

type grpcSubscription struct {
	stream   grpc.ServerStreamingClient[pb.ChangeEvent]
	cancel   context.CancelFunc
	mapError func(error) error
}

func (g *grpcSubscription) Recv(ctx context.Context) (models.RemoteEvent, error) {
	if err := ctx.Err(); err != nil {
		return models.RemoteEvent{}, err
	}
	ev, err := g.stream.Recv()
	if errors.Is(err, io.EOF) {
		return models.RemoteEvent{}, ErrFeedClosed
	}
	if err != nil {
		return models.RemoteEvent{}, g.mapError(err)
	}
	return eventFromPB(ev), nil
}

func (g *grpcSubscription) Close() error {
	g.cancel()
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
