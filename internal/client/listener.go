package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/givebridge/messaging/internal/ws"
)

// Listen dials the backend's notify socket and forwards each new-message
// hint to notify, typically (*messaging.Controller).Notify. It blocks
// until ctx is cancelled or the socket closes; events only announce that
// something changed, the data itself still comes from the regular API.
func (c *Client) Listen(ctx context.Context, notify func(ctx context.Context, senderID int64)) error {
	// Browsers cannot set headers on socket upgrades, so the backend
	// accepts the token as a query parameter on the root /ws route.
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(c.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event ws.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if event.Type != ws.EventNewMessage {
			c.log.Debug("ignoring event %q", event.Type)
			continue
		}
		notify(ctx, event.SenderID)
	}
}
