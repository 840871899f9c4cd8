package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/common"
	pb "github.com/dmitrijs2005/todosync/internal/proto"
)

// WSFeed is a Subscriber reading ChangeEvent JSON frames from the server's
// WebSocket feed endpoint.
type WSFeed struct {
	feedURL     string
	accessToken string
	deviceID    string
}

func NewWSFeed(feedURL, accessToken, deviceID string) *WSFeed {
	return &WSFeed{feedURL: feedURL, accessToken: accessToken, deviceID: deviceID}
}

func (f *WSFeed) dialURL() (string, error) {
	u, err := url.Parse(f.feedURL)
	if err != nil {
		return "", fmt.Errorf("feed url: %w", err)
	}
	q := u.Query()
	if f.accessToken != "" {
		q.Set(common.AccessTokenHeaderName, f.accessToken)
	}
	if f.deviceID != "" {
		q.Set(common.DeviceIDHeaderName, f.deviceID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *WSFeed) Subscribe(ctx context.Context) (Subscription, error) {
	u, err := f.dialURL()
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 401 {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &wsSubscription{conn: conn}, nil
}

type wsSubscription struct {
	conn *websocket.Conn
}

func (w *wsSubscription) Recv(ctx context.Context) (models.RemoteEvent, error) {
	var ev pb.ChangeEvent
	if err := wsjson.Read(ctx, w.conn, &ev); err != nil {
		if ctx.Err() != nil {
			return models.RemoteEvent{}, ctx.Err()
		}
		var ce websocket.CloseError
		if errors.As(err, &ce) {
			return models.RemoteEvent{}, fmt.Errorf("%w: %s", ErrFeedClosed, ce.Reason)
		}
		return models.RemoteEvent{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return eventFromPB(&ev), nil
}

func (w *wsSubscription) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}
