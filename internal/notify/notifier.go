// Package notify publishes attempt lifecycle events over Redis Pub/Sub. Every
// event goes to the affected student's own channel and to the exam-wide
// monitor channel that supervisor dashboards subscribe to.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/config"
)

// Event types emitted by the attempt state machine.
const (
	EventQuestionDrawn  = "question_drawn"
	EventAttemptStarted = "attempt_started"
	EventEarlyStart     = "early_start"
	EventSubmitted      = "submitted"
	EventExpired        = "expired"
	EventReset          = "reset"
)

// Event is the wire payload of one attempt change.
type Event struct {
	Type          string `json:"type"`
	ExamID        string `json:"exam_id"`
	StudentID     int    `json:"student_id"`
	ParticipantID string `json:"participant_id"`
	QuestionCode  string `json:"question_code,omitempty"`
	Phase         string `json:"phase,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// Notifier broadcasts attempt events to interested listeners.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
}

// RedisNotifier implements Notifier over Redis Pub/Sub. Publishing is best
// effort: a broken broker must never fail the state transition that already
// committed, so errors are logged and swallowed.
type RedisNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisNotifier(rdb *redis.Client, log zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb: rdb,
		log: log.With().Str("component", "notifier").Logger(),
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Error().Err(err).Str("type", ev.Type).Msg("Failed to marshal event")
		return
	}

	channels := []string{
		config.CacheKey.StudentEventChannel(ev.StudentID),
		config.CacheKey.ExamMonitorChannel(ev.ExamID),
	}
	for _, ch := range channels {
		if err := n.rdb.Publish(ctx, ch, payload).Err(); err != nil {
			n.log.Warn().Err(err).Str("channel", ch).Str("type", ev.Type).Msg("Failed to publish event")
		}
	}
}

// NopNotifier discards all events. Used by CLI tools and tests that do not
// care about broadcasting.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Event) {}
