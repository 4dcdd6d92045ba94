package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/notify"
	"github.com/vandap/vandap-backend/internal/timing"
)

// Sentinel errors for attempt state transitions.
var (
	ErrNotParticipant       = errors.New("student is not a participant of this exam")
	ErrAlreadyDrawn         = errors.New("question already drawn")
	ErrNoQuestionsAvailable = errors.New("exam has no active questions")
	ErrNotReady             = errors.New("no question drawn yet")
	ErrAlreadyStarted       = errors.New("attempt already started")
	ErrWrongPhase           = errors.New("operation not allowed in current phase")
	ErrAlreadySubmitted     = errors.New("attempt already submitted")
	ErrResetInProgress      = errors.New("attempt reset in progress")
	ErrAttemptRunning       = errors.New("attempt is currently running")
)

// ParticipantStore is the persistence surface the state machine needs.
// Mutators are conditional updates that report whether their guard matched.
type ParticipantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Participant, error)
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Participant, error)
	AssignQuestion(ctx context.Context, id, questionID uuid.UUID) (bool, error)
	MarkStarted(ctx context.Context, id uuid.UUID, startTime time.Time) (bool, error)
	RebaseStart(ctx context.Context, id uuid.UUID, newStart time.Time) (bool, error)
	MarkSubmitted(ctx context.Context, id uuid.UUID, submitTime time.Time, artifactRef *string) (bool, error)
	ResetAttempt(ctx context.Context, id uuid.UUID) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.Participant, error)
}

// QuestionPicker supplies questions for random draws.
type QuestionPicker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	RandomActive(ctx context.Context, examID uuid.UUID) (*model.Question, error)
}

// ExamGetter resolves exam timing configuration.
type ExamGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// ArtifactSink stores and removes recording files.
type ArtifactSink interface {
	Store(r io.Reader, ext string) (string, error)
	Delete(ref string) error
}

// ArtifactStage tracks uploaded-but-unsubmitted recording refs.
type ArtifactStage interface {
	Put(ctx context.Context, participantID, ref string) error
	Get(ctx context.Context, participantID string) (string, error)
	Clear(ctx context.Context, participantID string) error
}

// TranscodeQueue accepts completed recordings for background conversion.
type TranscodeQueue interface {
	Enqueue(ctx context.Context, participantID uuid.UUID, ref string) error
}

// ResetGuard serializes resets of the same participant.
type ResetGuard interface {
	Acquire(ctx context.Context, participantID string) (bool, error)
	Release(ctx context.Context, participantID string)
}

// AttemptState is the full view of one participant's attempt at one instant.
type AttemptState struct {
	Participant *model.Participant `json:"participant"`
	Question    *model.Question    `json:"question,omitempty"`
	Exam        *model.Exam        `json:"exam"`
	Timing      timing.Snapshot    `json:"timing"`
}

// AttemptService drives the oral exam attempt lifecycle:
// draw a question, start the timed window, record, submit.
type AttemptService struct {
	participants ParticipantStore
	questions    QuestionPicker
	exams        ExamGetter
	artifacts    ArtifactSink
	stage        ArtifactStage
	resetGuard   ResetGuard
	transcodes   TranscodeQueue
	notifier     notify.Notifier
	log          zerolog.Logger
	now          func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	participants ParticipantStore,
	questions QuestionPicker,
	exams ExamGetter,
	artifacts ArtifactSink,
	stage ArtifactStage,
	resetGuard ResetGuard,
	transcodes TranscodeQueue,
	notifier notify.Notifier,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		participants: participants,
		questions:    questions,
		exams:        exams,
		artifacts:    artifacts,
		stage:        stage,
		resetGuard:   resetGuard,
		transcodes:   transcodes,
		notifier:     notifier,
		log:          log.With().Str("component", "attempt_service").Logger(),
		now:          time.Now,
	}
}

// State returns the current view of a student's attempt. The phase is derived
// from the persisted start time, so it survives reconnects and restarts.
func (s *AttemptService) State(ctx context.Context, examID uuid.UUID, studentID int) (*AttemptState, error) {
	p, err := s.participants.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, ErrNotParticipant
	}
	return s.buildState(ctx, p)
}

// DrawQuestion assigns one random active question to a waiting participant.
// A participant draws at most once; a second call reports the conflict
// instead of re-rolling.
func (s *AttemptService) DrawQuestion(ctx context.Context, examID uuid.UUID, studentID int) (*AttemptState, error) {
	p, err := s.participants.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, ErrNotParticipant
	}
	if p.Status != model.StatusWaiting {
		return nil, ErrWrongPhase
	}
	if p.QuestionID != nil {
		return nil, ErrAlreadyDrawn
	}

	q, err := s.questions.RandomActive(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("pick question: %w", err)
	}
	if q == nil {
		return nil, ErrNoQuestionsAvailable
	}

	ok, err := s.participants.AssignQuestion(ctx, p.ID, q.ID)
	if err != nil {
		return nil, fmt.Errorf("assign question: %w", err)
	}
	if !ok {
		// Lost the race. Reload and report what actually happened.
		return nil, s.classifyDrawConflict(ctx, p.ID)
	}

	s.log.Info().
		Str("participant_id", p.ID.String()).
		Str("question_code", q.Code).
		Msg("Question drawn")

	s.notifier.Publish(ctx, notify.Event{
		Type:          notify.EventQuestionDrawn,
		ExamID:        examID.String(),
		StudentID:     studentID,
		ParticipantID: p.ID.String(),
		QuestionCode:  q.Code,
		Phase:         string(timing.PhaseWaiting),
	})

	p.QuestionID = &q.ID
	return s.buildState(ctx, p)
}

// Start begins the attempt window. The participant must have drawn a
// question first. On success the preparation countdown starts immediately.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, studentID int) (*AttemptState, error) {
	p, err := s.participants.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, ErrNotParticipant
	}

	switch {
	case p.Status == model.StatusCompleted:
		return nil, ErrAlreadySubmitted
	case p.Status == model.StatusInProgress:
		return nil, ErrAlreadyStarted
	case p.QuestionID == nil:
		return nil, ErrNotReady
	}

	startTime := s.now()
	ok, err := s.participants.MarkStarted(ctx, p.ID, startTime)
	if err != nil {
		return nil, fmt.Errorf("mark started: %w", err)
	}
	if !ok {
		return nil, s.classifyStartConflict(ctx, p.ID)
	}

	s.log.Info().
		Str("participant_id", p.ID.String()).
		Time("start_time", startTime).
		Msg("Attempt started")

	s.notifier.Publish(ctx, notify.Event{
		Type:          notify.EventAttemptStarted,
		ExamID:        examID.String(),
		StudentID:     studentID,
		ParticipantID: p.ID.String(),
		Phase:         string(timing.PhasePreparation),
	})

	p.Status = model.StatusInProgress
	p.StartTime = &startTime
	return s.buildState(ctx, p)
}

// EarlyStart skips the remainder of the preparation countdown. The start
// anchor is moved back so the participant lands exactly at the beginning of
// the recording window with its full duration intact. Calling it when
// recording already began is a harmless no-op.
func (s *AttemptService) EarlyStart(ctx context.Context, examID uuid.UUID, studentID int) (*AttemptState, error) {
	p, err := s.participants.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, ErrNotParticipant
	}
	if p.Status == model.StatusCompleted {
		return nil, ErrAlreadySubmitted
	}
	if p.Status != model.StatusInProgress {
		return nil, ErrWrongPhase
	}

	exam, err := s.exams.GetByID(ctx, p.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	now := s.now()
	snap := timing.Compute(p.StartTime, exam.PreparationDuration(), exam.RecordingDuration(), false, now)
	switch snap.Phase {
	case timing.PhaseExpired:
		return nil, ErrWrongPhase
	case timing.PhaseRecording:
		return s.buildState(ctx, p)
	}

	anchor := timing.EarlyStartAnchor(exam.PreparationDuration(), now)
	ok, err := s.participants.RebaseStart(ctx, p.ID, anchor)
	if err != nil {
		return nil, fmt.Errorf("rebase start: %w", err)
	}
	if ok {
		p.StartTime = &anchor
		s.log.Info().
			Str("participant_id", p.ID.String()).
			Msg("Preparation skipped, recording window opened")

		s.notifier.Publish(ctx, notify.Event{
			Type:          notify.EventEarlyStart,
			ExamID:        examID.String(),
			StudentID:     studentID,
			ParticipantID: p.ID.String(),
			Phase:         string(timing.PhaseRecording),
		})
	}
	// Guard miss means the anchor was already at or past the recording
	// boundary. Either way the participant is recording now.
	return s.buildState(ctx, p)
}

// StageRecording stores an uploaded recording and remembers it for the
// participant without completing the attempt. Re-uploading replaces the
// staged recording. The staged file is what Submit (or the expiry sweep)
// finalizes with.
func (s *AttemptService) StageRecording(ctx context.Context, examID uuid.UUID, studentID int, r io.Reader, ext string) error {
	p, err := s.participants.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return ErrNotParticipant
	}
	if p.Status == model.StatusCompleted {
		return ErrAlreadySubmitted
	}
	if p.Status != model.StatusInProgress {
		return ErrWrongPhase
	}

	exam, err := s.exams.GetByID(ctx, p.ExamID)
	if err != nil {
		return fmt.Errorf("load exam: %w", err)
	}
	snap := timing.Compute(p.StartTime, exam.PreparationDuration(), exam.RecordingDuration(), false, s.now())
	if snap.Phase != timing.PhaseRecording {
		return ErrWrongPhase
	}

	ref, err := s.artifacts.Store(r, ext)
	if err != nil {
		return fmt.Errorf("store recording: %w", err)
	}

	prev, err := s.stage.Get(ctx, p.ID.String())
	if err != nil {
		s.log.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("Failed to read previous staged recording")
	}
	if err := s.stage.Put(ctx, p.ID.String(), ref); err != nil {
		s.artifacts.Delete(ref)
		return fmt.Errorf("stage recording: %w", err)
	}
	if prev != "" && prev != ref {
		if err := s.artifacts.Delete(prev); err != nil {
			s.log.Warn().Err(err).Str("ref", prev).Msg("Failed to delete replaced recording")
		}
	}

	s.log.Info().
		Str("participant_id", p.ID.String()).
		Str("ref", ref).
		Msg("Recording staged")
	return nil
}

// Submit finalizes the attempt with the staged recording. Submitting twice
// returns ErrAlreadySubmitted, which callers treat as success: the attempt is
// durably completed either way.
func (s *AttemptService) Submit(ctx context.Context, examID uuid.UUID, studentID int) (*AttemptState, error) {
	p, err := s.participants.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, ErrNotParticipant
	}
	if p.Status == model.StatusCompleted {
		return nil, ErrAlreadySubmitted
	}
	if p.Status != model.StatusInProgress {
		return nil, ErrWrongPhase
	}

	exam, err := s.exams.GetByID(ctx, p.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	now := s.now()
	snap := timing.Compute(p.StartTime, exam.PreparationDuration(), exam.RecordingDuration(), false, now)
	switch snap.Phase {
	case timing.PhasePreparation:
		return nil, ErrWrongPhase
	case timing.PhaseExpired:
		// The window closed before the request landed. Finalize the
		// same way the sweep would and report the attempt as done.
		if err := s.finalizeExpired(ctx, p, exam); err != nil {
			return nil, err
		}
		return nil, ErrAlreadySubmitted
	}

	ref, err := s.stage.Get(ctx, p.ID.String())
	if err != nil {
		return nil, fmt.Errorf("read staged recording: %w", err)
	}

	var artifactRef *string
	if ref != "" {
		artifactRef = &ref
	}

	ok, err := s.participants.MarkSubmitted(ctx, p.ID, now, artifactRef)
	if err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	if !ok {
		// A concurrent submit or the sweep won. The attempt is completed.
		return nil, ErrAlreadySubmitted
	}

	if err := s.stage.Clear(ctx, p.ID.String()); err != nil {
		s.log.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("Failed to clear staged recording")
	}
	s.enqueueTranscode(ctx, p.ID, artifactRef)

	s.log.Info().
		Str("participant_id", p.ID.String()).
		Bool("has_recording", artifactRef != nil).
		Msg("Attempt submitted")

	s.notifier.Publish(ctx, notify.Event{
		Type:          notify.EventSubmitted,
		ExamID:        examID.String(),
		StudentID:     studentID,
		ParticipantID: p.ID.String(),
		Phase:         string(timing.PhaseCompleted),
	})

	p.Status = model.StatusCompleted
	p.SubmitTime = &now
	p.ArtifactRef = artifactRef
	return s.buildState(ctx, p)
}

// ExpireOverdue finalizes every in-progress attempt whose window elapsed.
// Attempts with a staged recording keep it; the rest complete empty. Returns
// the number of attempts finalized.
func (s *AttemptService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.participants.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	finalized := 0
	for i := range overdue {
		p := &overdue[i]
		exam, err := s.exams.GetByID(ctx, p.ExamID)
		if err != nil {
			s.log.Error().Err(err).Str("participant_id", p.ID.String()).Msg("Failed to load exam for expiry")
			continue
		}
		if err := s.finalizeExpired(ctx, p, exam); err != nil {
			s.log.Error().Err(err).Str("participant_id", p.ID.String()).Msg("Failed to finalize expired attempt")
			continue
		}
		finalized++
	}
	return finalized, nil
}

// ExpireIfOverdue finalizes one attempt when its window has elapsed and
// returns the resulting state. In any other phase it is a plain read. Client
// heartbeats call this so an expired attempt completes on the next contact
// instead of waiting for the sweep.
func (s *AttemptService) ExpireIfOverdue(ctx context.Context, examID uuid.UUID, studentID int) (*AttemptState, error) {
	p, err := s.participants.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, ErrNotParticipant
	}

	state, err := s.buildState(ctx, p)
	if err != nil {
		return nil, err
	}
	if state.Timing.Phase != timing.PhaseExpired {
		return state, nil
	}

	if err := s.finalizeExpired(ctx, p, state.Exam); err != nil {
		return nil, err
	}
	fresh, err := s.participants.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("reload participant: %w", err)
	}
	return s.buildState(ctx, fresh)
}

// Reset wipes a participant's attempt back to the waiting state: question,
// timestamps, staged and stored recordings all gone. Supervisor-only. A
// running attempt cannot be reset; it has to finish or expire first.
func (s *AttemptService) Reset(ctx context.Context, participantID uuid.UUID) error {
	acquired, err := s.resetGuard.Acquire(ctx, participantID.String())
	if err != nil {
		return fmt.Errorf("acquire reset lock: %w", err)
	}
	if !acquired {
		return ErrResetInProgress
	}
	defer s.resetGuard.Release(ctx, participantID.String())

	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return fmt.Errorf("load participant: %w", err)
	}
	if p.Status == model.StatusInProgress {
		return ErrAttemptRunning
	}

	if p.ArtifactRef != nil {
		if err := s.artifacts.Delete(*p.ArtifactRef); err != nil {
			s.log.Warn().Err(err).Str("ref", *p.ArtifactRef).Msg("Failed to delete submitted recording")
		}
	}
	if staged, err := s.stage.Get(ctx, p.ID.String()); err == nil && staged != "" {
		if err := s.artifacts.Delete(staged); err != nil {
			s.log.Warn().Err(err).Str("ref", staged).Msg("Failed to delete staged recording")
		}
	}
	if err := s.stage.Clear(ctx, p.ID.String()); err != nil {
		s.log.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("Failed to clear staged recording")
	}

	ok, err := s.participants.ResetAttempt(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("reset attempt: %w", err)
	}
	if !ok {
		// The attempt started between the read and the update.
		return ErrAttemptRunning
	}

	s.log.Info().
		Str("participant_id", p.ID.String()).
		Msg("Attempt reset")

	s.notifier.Publish(ctx, notify.Event{
		Type:          notify.EventReset,
		ExamID:        p.ExamID.String(),
		StudentID:     p.StudentID,
		ParticipantID: p.ID.String(),
		Phase:         string(timing.PhaseWaiting),
	})
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

// finalizeExpired completes an overdue attempt. The submit time is the exact
// window boundary, not the sweep instant, so reports stay honest about when
// the attempt actually ended.
func (s *AttemptService) finalizeExpired(ctx context.Context, p *model.Participant, exam *model.Exam) error {
	staged, err := s.stage.Get(ctx, p.ID.String())
	if err != nil {
		s.log.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("Failed to read staged recording for expiry")
	}
	var artifactRef *string
	if staged != "" {
		artifactRef = &staged
	}

	deadline := p.StartTime.Add(exam.PreparationDuration() + exam.RecordingDuration())
	ok, err := s.participants.MarkSubmitted(ctx, p.ID, deadline, artifactRef)
	if err != nil {
		return fmt.Errorf("finalize expired: %w", err)
	}
	if !ok {
		// Someone else finalized it first. Nothing left to do.
		return nil
	}

	if err := s.stage.Clear(ctx, p.ID.String()); err != nil {
		s.log.Warn().Err(err).Str("participant_id", p.ID.String()).Msg("Failed to clear staged recording")
	}
	s.enqueueTranscode(ctx, p.ID, artifactRef)

	s.log.Info().
		Str("participant_id", p.ID.String()).
		Bool("has_recording", artifactRef != nil).
		Msg("Attempt expired")

	s.notifier.Publish(ctx, notify.Event{
		Type:          notify.EventExpired,
		ExamID:        p.ExamID.String(),
		StudentID:     p.StudentID,
		ParticipantID: p.ID.String(),
		Phase:         string(timing.PhaseCompleted),
	})
	return nil
}

// enqueueTranscode hands a finalized recording to the background converter.
// Failures are logged only: the raw recording is already durable.
func (s *AttemptService) enqueueTranscode(ctx context.Context, participantID uuid.UUID, ref *string) {
	if ref == nil {
		return
	}
	if err := s.transcodes.Enqueue(ctx, participantID, *ref); err != nil {
		s.log.Warn().Err(err).Str("ref", *ref).Msg("Failed to enqueue transcode")
	}
}

func (s *AttemptService) buildState(ctx context.Context, p *model.Participant) (*AttemptState, error) {
	exam, err := s.exams.GetByID(ctx, p.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	var q *model.Question
	if p.QuestionID != nil {
		q, err = s.questions.GetByID(ctx, *p.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("load question: %w", err)
		}
	}

	snap := timing.Compute(
		p.StartTime,
		exam.PreparationDuration(),
		exam.RecordingDuration(),
		p.Status == model.StatusCompleted,
		s.now(),
	)
	return &AttemptState{Participant: p, Question: q, Exam: exam, Timing: snap}, nil
}

func (s *AttemptService) classifyDrawConflict(ctx context.Context, id uuid.UUID) error {
	p, err := s.participants.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reload participant: %w", err)
	}
	if p.QuestionID != nil {
		return ErrAlreadyDrawn
	}
	return ErrWrongPhase
}

func (s *AttemptService) classifyStartConflict(ctx context.Context, id uuid.UUID) error {
	p, err := s.participants.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reload participant: %w", err)
	}
	switch {
	case p.Status == model.StatusCompleted:
		return ErrAlreadySubmitted
	case p.Status == model.StatusInProgress:
		return ErrAlreadyStarted
	case p.QuestionID == nil:
		return ErrNotReady
	default:
		return ErrWrongPhase
	}
}
