package websocket

import "github.com/vandap/vandap-backend/internal/service"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing  Action = "ping"
	ActionState Action = "state"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventState  Event = "state"
	EventPong   Event = "pong"
	EventUpdate Event = "update"
)

// StateResponse carries the full attempt view. Sent on connect, on request,
// and whenever the derived phase may have changed.
type StateResponse struct {
	Event Event                 `json:"event"`
	State *service.AttemptState `json:"state"`
}

// UpdateResponse forwards one attempt lifecycle event from the broker.
// Payload is the raw JSON published by the notifier.
type UpdateResponse struct {
	Event   Event  `json:"event"`
	Payload string `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
