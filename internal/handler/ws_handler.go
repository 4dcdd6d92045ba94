package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/config"
	"github.com/vandap/vandap-backend/internal/middleware"
	"github.com/vandap/vandap-backend/internal/service"
	ws "github.com/vandap/vandap-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// attemptStream serializes writes to one student connection. The read loop
// and the pubsub forwarder both produce outgoing messages, and gorilla
// permits at most one concurrent writer per connection.
type attemptStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *attemptStream) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

func (s *attemptStream) sendError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws.WriteError(s.conn, msg)
}

// WSHandler streams attempt state to connected students.
type WSHandler struct {
	rdb      *redis.Client
	attempts *service.AttemptService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, attempts *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Pushes the current attempt state on connect and again whenever an attempt
// event lands on the student's channel (including supervisor resets). The
// client never trusts its own clock for phase math; every push carries the
// server-derived snapshot.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	stream := &attemptStream{conn: conn}
	studentID := claims.UserID

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if !h.pushState(ctx, stream, examID, studentID) {
		return
	}

	wsLog.Info().Msg("Student connected")

	// Forward attempt events from the broker and refresh the state view
	// after each one.
	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.StudentEventChannel(studentID))
	defer pubsub.Close()

	go func() {
		for msg := range pubsub.Channel() {
			if err := stream.send(ws.UpdateResponse{Event: ws.EventUpdate, Payload: msg.Payload}); err != nil {
				return
			}
			if !h.pushState(ctx, stream, examID, studentID) {
				return
			}
		}
	}()

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			stream.send(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionState:
			if !h.pushState(ctx, stream, examID, studentID) {
				return
			}
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			stream.sendError("unknown action: " + string(msg.Action))
		}
	}
}

// pushState sends the current attempt view. Overdue attempts are finalized
// on the way out, so an expired countdown flips to completed on the next
// heartbeat rather than on the next sweep. Returns false when the connection
// or the attempt lookup is beyond saving.
func (h *WSHandler) pushState(ctx context.Context, stream *attemptStream, examID uuid.UUID, studentID int) bool {
	state, err := h.attempts.ExpireIfOverdue(ctx, examID, studentID)
	if err != nil {
		stream.sendError("attempt not found for this exam")
		return false
	}
	return stream.send(ws.StateResponse{Event: ws.EventState, State: state}) == nil
}
