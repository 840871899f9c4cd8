package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/client"
	cmodels "github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/dmitrijs2005/todosync/internal/server/feed"
	"github.com/dmitrijs2005/todosync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secret"

func newTestServer(t *testing.T, secret string) (*Server, *feed.Broker, string) {
	t.Helper()
	broker := feed.NewBroker(logging.Nop())
	s := NewServer("", logging.Nop(), broker, auth.NewAuthenticator(secret))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, broker, srv.URL
}

func feedURL(base string) string {
	return "ws" + strings.TrimPrefix(base, "http") + FeedPath
}

func TestFeed_StreamsOwnUsersEvents(t *testing.T) {
	_, broker, base := newTestServer(t, testSecret)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tok, err := auth.GenerateToken("alice", "laptop", []byte(testSecret), time.Hour)
	require.NoError(t, err)

	sub, err := client.NewWSFeed(feedURL(base), tok, "laptop").Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, 1, broker.Len(), "registered once the handshake is done")

	ts := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	broker.Publish(models.ChangeEvent{UserID: "bob", Type: models.EventDelete, ID: "b"})
	broker.Publish(models.ChangeEvent{
		UserID: "alice", Type: models.EventInsert, ID: "a", SourceDevice: "phone",
		Todo: &models.Todo{UserID: "alice", ID: "a", Text: "Buy milk", CreatedAt: ts, UpdatedAt: ts, Counter: 3},
	})
	broker.Publish(models.ChangeEvent{UserID: "alice", Type: models.EventDelete, ID: "a", SourceDevice: "phone"})

	ev, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, cmodels.EventInsert, ev.Kind)
	assert.Equal(t, "phone", ev.SourceDevice)
	require.NotNil(t, ev.Todo)
	assert.Equal(t, "Buy milk", ev.Todo.Text)
	assert.Equal(t, int64(3), ev.Todo.Counter)

	ev, err = sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, cmodels.EventDelete, ev.Kind)
	assert.Equal(t, "a", ev.ID)

	require.NoError(t, sub.Close())
	assert.Eventually(t, func() bool { return broker.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeed_Unauthorized(t *testing.T) {
	_, broker, base := newTestServer(t, testSecret)

	_, err := client.NewWSFeed(feedURL(base), "garbage", "dev").Subscribe(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = client.NewWSFeed(feedURL(base), "", "dev").Subscribe(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 0, broker.Len())
}

type droppedFeed struct{}

func (droppedFeed) Subscribe(string) (<-chan models.ChangeEvent, func()) {
	ch := make(chan models.ChangeEvent)
	close(ch)
	return ch, func() {}
}

func (droppedFeed) Len() int { return 0 }

func TestFeed_DroppedSubscriberClosesFeed(t *testing.T) {
	s := NewServer("", logging.Nop(), droppedFeed{}, auth.NewAuthenticator(""))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.NewWSFeed(feedURL(srv.URL), "", "dev").Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, client.ErrFeedClosed)
}

func TestHealth(t *testing.T) {
	_, _, base := newTestServer(t, "")

	resp, err := http.Get(base + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServe_ShutdownClosesFeeds(t *testing.T) {
	broker := feed.NewBroker(logging.Nop())
	s := NewServer("", logging.Nop(), broker, auth.NewAuthenticator(""))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer rcancel()
	sub, err := client.NewWSFeed("ws://"+ln.Addr().String()+FeedPath, "", "dev").Subscribe(rctx)
	require.NoError(t, err)
	defer sub.Close()

	cancel()

	_, err = sub.Recv(rctx)
	assert.ErrorIs(t, err, client.ErrFeedClosed)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_BadAddress(t *testing.T) {
	s := NewServer("127.0.0.1:99999", logging.Nop(), feed.NewBroker(logging.Nop()), auth.NewAuthenticator(""))
	assert.Error(t, s.Run(context.Background()))
}
