// Package ws serves the change feed over WebSocket for clients that prefer
// it to the gRPC stream. Frames are the JSON form of proto.ChangeEvent.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	gs "github.com/dmitrijs2005/todosync/internal/server/grpc"
	"github.com/dmitrijs2005/todosync/internal/server/models"
)

const (
	FeedPath     = "/feed"
	HealthPath   = "/health"
	writeTimeout = 10 * time.Second
)

// Feed is the subscription side of the change broker.
type Feed interface {
	Subscribe(userID string) (<-chan models.ChangeEvent, func())
	Len() int
}

type Server struct {
	address string
	feed    Feed
	authn   *auth.Authenticator
	logger  logging.Logger

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewServer(a string, l logging.Logger, feed Feed, authn *auth.Authenticator) *Server {
	return &Server{
		address:  a,
		feed:     feed,
		authn:    authn,
		logger:   l.With("module", "ws_server"),
		shutdown: make(chan struct{}),
	}
}

// Handler routes the feed and health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+FeedPath, s.handleFeed)
	mux.HandleFunc("GET "+HealthPath, s.handleHealth)
	return mux
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting WebSocket server", "address", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping WebSocket server...")
	// hijacked feed connections are not tracked by Shutdown
	s.shutdownOnce.Do(func() { close(s.shutdown) })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	who, err := s.authn.Authenticate(q.Get(common.AccessTokenHeaderName), q.Get(common.DeviceIDHeaderName))
	if err != nil {
		s.logger.Warn(r.Context(), "unauthenticated feed request", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// registered before the handshake completes, so a client that has
	// connected cannot miss a change committed afterwards
	events, cancel := s.feed.Subscribe(who.UserID)
	defer cancel()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// the feed is one-way; CloseRead handles pings and notices the client leaving
	ctx := conn.CloseRead(r.Context())

	s.logger.Info(ctx, "feed subscribed", "user", who.UserID, "device", who.DeviceID, "transport", "ws")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusTryAgainLater, "subscriber dropped")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, gs.EventToPB(ev))
			wcancel()
			if err != nil {
				s.logger.Warn(ctx, "feed write failed", "user", who.UserID, "error", err)
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"subscribers": s.feed.Len(),
	})
}
