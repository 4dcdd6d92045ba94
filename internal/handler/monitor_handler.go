package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/config"
	"github.com/vandap/vandap-backend/internal/response"
	"github.com/vandap/vandap-backend/internal/service"
)

const (
	refreshInterval   = 10 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live exam progress to supervisor dashboards.
type MonitorHandler struct {
	rdb     *redis.Client
	monitor *service.MonitorService
	log     zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, monitor *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:     rdb,
		monitor: monitor,
		log:     log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/supervisor/exams/:id/monitor
// Server-sent events: an initial snapshot, then attempt events forwarded
// from the broker, plus periodic full refreshes so countdowns stay honest
// even if an event is missed.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()

	overview, err := h.monitor.Overview(reqCtx, examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": overview,
	})
	c.Writer.Flush()

	channelName := config.CacheKey.ExamMonitorChannel(examID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("exam_id", examID.String()).Msg("Supervisor attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Supervisor disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendRefresh(c, reqCtx, examID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendRefresh recomputes the full overview and sends it as one event.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	overview, err := h.monitor.Overview(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to build overview for refresh")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "refresh",
		"data": overview,
	})
	c.Writer.Flush()
}
