// Package grpc exposes the todo service and its change feed over gRPC.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/todosync/internal/logging"
	pb "github.com/dmitrijs2005/todosync/internal/proto"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/dmitrijs2005/todosync/internal/server/models"
	"github.com/dmitrijs2005/todosync/internal/server/services"
	"google.golang.org/grpc"
)

// Feed is the subscription side of the change broker.
type Feed interface {
	Subscribe(userID string) (<-chan models.ChangeEvent, func())
}

type GRPCServer struct {
	pb.UnimplementedTodoServiceServer
	address string
	todos   services.TodoService
	feed    Feed
	authn   *auth.Authenticator
	logger  logging.Logger

	// closed on shutdown so feed streams let GracefulStop finish
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewGRPCServer(a string, l logging.Logger, ts services.TodoService, feed Feed, authn *auth.Authenticator) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		todos:   ts,
		feed:    feed,
		authn:   authn,

		shutdown: make(chan struct{}),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	pb.RegisterTodoServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully. Open feed streams end with ctx as well.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			s.shutdownOnce.Do(func() { close(s.shutdown) })
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
