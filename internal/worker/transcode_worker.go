package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/audio"
	"github.com/vandap/vandap-backend/internal/config"
	"github.com/vandap/vandap-backend/internal/repository"
	"github.com/vandap/vandap-backend/internal/storage"
)

const (
	pollTimeout      = 1 * time.Second // Must be >= 1s to satisfy Redis
	transcodeTimeout = 2 * time.Minute
)

type transcodePayload struct {
	ParticipantID string `json:"participant_id"`
	Ref           string `json:"ref"`
}

// RedisTranscodeQueue is the producer side of the transcode pipeline.
type RedisTranscodeQueue struct {
	rdb *redis.Client
}

func NewRedisTranscodeQueue(rdb *redis.Client) *RedisTranscodeQueue {
	return &RedisTranscodeQueue{rdb: rdb}
}

// Enqueue pushes a finalized recording onto the transcode queue.
func (q *RedisTranscodeQueue) Enqueue(ctx context.Context, participantID uuid.UUID, ref string) error {
	data, err := json.Marshal(transcodePayload{ParticipantID: participantID.String(), Ref: ref})
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.TranscodeAudioQueue, data).Err()
}

// TranscodeWorker converts submitted recordings to MP3 in the background.
// Conversion failures keep the raw recording in place: playback still works,
// only the archive format is missed.
type TranscodeWorker struct {
	rdb          *redis.Client
	participants *repository.ParticipantRepository
	store        *storage.DiskArtifactStore
	transcoder   audio.Transcoder
	log          zerolog.Logger
}

func NewTranscodeWorker(
	rdb *redis.Client,
	participants *repository.ParticipantRepository,
	store *storage.DiskArtifactStore,
	transcoder audio.Transcoder,
	log zerolog.Logger,
) *TranscodeWorker {
	return &TranscodeWorker{
		rdb:          rdb,
		participants: participants,
		store:        store,
		transcoder:   transcoder,
		log:          log.With().Str("component", "transcode_worker").Logger(),
	}
}

func (w *TranscodeWorker) Start(ctx context.Context) {
	w.log.Info().Msg("TranscodeWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("TranscodeWorker stopping")
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, pollTimeout, config.WorkerKey.TranscodeAudioQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Queue empty
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var payload transcodePayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		if err := w.process(ctx, &payload); err != nil {
			w.log.Error().
				Err(err).
				Str("participant_id", payload.ParticipantID).
				Str("ref", payload.Ref).
				Msg("Transcode failed, keeping raw recording")
		}
	}
}

func (w *TranscodeWorker) process(ctx context.Context, payload *transcodePayload) error {
	participantID, err := uuid.Parse(payload.ParticipantID)
	if err != nil {
		return fmt.Errorf("parse participant id: %w", err)
	}

	if strings.HasSuffix(payload.Ref, ".mp3") {
		return nil // Already canonical
	}

	srcPath, err := w.store.Path(payload.Ref)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			// Reset deleted it before we got here.
			w.log.Debug().Str("ref", payload.Ref).Msg("Recording gone, skipping transcode")
			return nil
		}
		return fmt.Errorf("resolve source: %w", err)
	}

	dstRef := strings.TrimSuffix(payload.Ref, extOf(payload.Ref)) + ".mp3"
	dstPath := strings.TrimSuffix(srcPath, extOf(srcPath)) + ".mp3"

	tctx, cancel := context.WithTimeout(ctx, transcodeTimeout)
	defer cancel()
	if err := w.transcoder.ToMP3(tctx, srcPath, dstPath); err != nil {
		return err
	}

	ok, err := w.participants.ReplaceArtifactRef(ctx, participantID, payload.Ref, dstRef)
	if err != nil {
		w.store.Delete(dstRef)
		return fmt.Errorf("replace artifact ref: %w", err)
	}
	if !ok {
		// The participant was reset or re-finalized meanwhile.
		w.store.Delete(dstRef)
		return nil
	}

	if err := w.store.Delete(payload.Ref); err != nil {
		w.log.Warn().Err(err).Str("ref", payload.Ref).Msg("Failed to delete raw recording")
	}

	w.log.Info().
		Str("participant_id", payload.ParticipantID).
		Str("ref", dstRef).
		Msg("Recording transcoded")
	return nil
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
