package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/dmitrijs2005/todosync/internal/logging"
	pb "github.com/dmitrijs2005/todosync/internal/proto"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// helper to build server
func newTestServer(secret string) *GRPCServer {
	return NewGRPCServer("", logging.Nop(), nil, nil, auth.NewAuthenticator(secret))
}

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func TestInterceptor_PingAllowedWithoutToken(t *testing.T) {
	s := newTestServer(testSecret)
	info := &grpc.UnaryServerInfo{FullMethod: pb.TodoService_Ping_FullMethodName}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	require.NoError(t, err)
	assert.True(t, handlerCalled)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer(testSecret)
	info := &grpc.UnaryServerInfo{FullMethod: pb.TodoService_Select_FullMethodName}

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_InvalidToken(t *testing.T) {
	s := newTestServer(testSecret)
	ctx := incoming(common.AccessTokenHeaderName, "not-a-valid-jwt")
	info := &grpc.UnaryServerInfo{FullMethod: pb.TodoService_Insert_FullMethodName}

	_, err := s.accessTokenInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called with a bad token")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_ValidTokenSetsIdentity(t *testing.T) {
	s := newTestServer(testSecret)
	tok, err := auth.GenerateToken("alice", "phone", []byte(testSecret), time.Minute)
	require.NoError(t, err)

	ctx := incoming(common.AccessTokenHeaderName, tok, common.DeviceIDHeaderName, "spoofed")
	info := &grpc.UnaryServerInfo{FullMethod: pb.TodoService_Select_FullMethodName}

	var got auth.Identity
	_, err = s.accessTokenInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		var ok bool
		got, ok = identityFrom(ctx)
		require.True(t, ok)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: "alice", DeviceID: "phone"}, got)
}

func TestInterceptor_NoSecretIsAnonymous(t *testing.T) {
	s := newTestServer("")
	ctx := incoming(common.DeviceIDHeaderName, "dev-9")
	info := &grpc.UnaryServerInfo{FullMethod: pb.TodoService_Select_FullMethodName}

	var got auth.Identity
	_, err := s.accessTokenInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ = identityFrom(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, common.AnonymousUserID, got.UserID)
	assert.Equal(t, "dev-9", got.DeviceID)
}

type ctxStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (c *ctxStream) Context() context.Context { return c.ctx }

func TestStreamInterceptor(t *testing.T) {
	s := newTestServer(testSecret)
	info := &grpc.StreamServerInfo{FullMethod: pb.TodoService_Subscribe_FullMethodName, IsServerStream: true}

	err := s.streamAccessTokenInterceptor(nil, &ctxStream{ctx: context.Background()}, info,
		func(srv any, ss grpc.ServerStream) error {
			t.Fatal("handler should not be called when token missing")
			return nil
		})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := auth.GenerateToken("alice", "", []byte(testSecret), time.Minute)
	require.NoError(t, err)
	ctx := incoming(common.AccessTokenHeaderName, tok, common.DeviceIDHeaderName, "laptop")

	err = s.streamAccessTokenInterceptor(nil, &ctxStream{ctx: ctx}, info,
		func(srv any, ss grpc.ServerStream) error {
			who, ok := identityFrom(ss.Context())
			require.True(t, ok)
			assert.Equal(t, auth.Identity{UserID: "alice", DeviceID: "laptop"}, who)
			return nil
		})
	assert.NoError(t, err)
}
