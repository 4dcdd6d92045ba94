package driver

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// StreamHandler receives pushed attempt states. Payload events that are not
// full states still trigger a state push from the server, so implementations
// only need to handle OnState.
type StreamHandler interface {
	OnState(state *State)
}

// StreamFunc adapts a function to StreamHandler.
type StreamFunc func(state *State)

func (f StreamFunc) OnState(state *State) { f(state) }

type streamEvent struct {
	Event string          `json:"event"`
	State json.RawMessage `json:"state"`
}

// Stream subscribes to the server-pushed attempt state over WebSocket and
// blocks until the context is cancelled or the connection drops. Push is an
// optimization over polling; callers should still reconcile with State after
// a returned error.
func (c *Client) Stream(ctx context.Context, examID string, handler StreamHandler) error {
	wsURL, err := c.streamURL(examID)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Unblock ReadJSON on cancellation.
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
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if ev.Event != "state" || len(ev.State) == 0 {
			continue
		}
		state := &State{}
		if err := json.Unmarshal(ev.State, state); err != nil {
			continue
		}
		handler.OnState(state)
	}
}

// streamURL turns the HTTP base URL into the authenticated ws endpoint.
// WebSocket handshakes cannot carry an Authorization header from browsers,
// so the token travels as a query parameter like the server expects.
func (c *Client) streamURL(examID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/v1/student/exams/" + examID + "/stream"
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
