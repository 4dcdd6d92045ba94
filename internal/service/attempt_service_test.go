package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/notify"
	"github.com/vandap/vandap-backend/internal/timing"
)

// ────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ────────────────────────────────────────────────────────────────────────────

type fakeParticipants struct {
	byID map[uuid.UUID]*model.Participant
}

func newFakeParticipants(ps ...*model.Participant) *fakeParticipants {
	f := &fakeParticipants{byID: make(map[uuid.UUID]*model.Participant)}
	for _, p := range ps {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeParticipants) GetByID(_ context.Context, id uuid.UUID) (*model.Participant, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeParticipants) GetByExamAndStudent(_ context.Context, examID uuid.UUID, studentID int) (*model.Participant, error) {
	for _, p := range f.byID {
		if p.ExamID == examID && p.StudentID == studentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeParticipants) AssignQuestion(_ context.Context, id, questionID uuid.UUID) (bool, error) {
	p, ok := f.byID[id]
	if !ok || p.Status != model.StatusWaiting || p.QuestionID != nil {
		return false, nil
	}
	p.QuestionID = &questionID
	return true, nil
}

func (f *fakeParticipants) MarkStarted(_ context.Context, id uuid.UUID, startTime time.Time) (bool, error) {
	p, ok := f.byID[id]
	if !ok || p.Status != model.StatusWaiting || p.QuestionID == nil || p.StartTime != nil {
		return false, nil
	}
	p.Status = model.StatusInProgress
	p.StartTime = &startTime
	return true, nil
}

func (f *fakeParticipants) RebaseStart(_ context.Context, id uuid.UUID, newStart time.Time) (bool, error) {
	p, ok := f.byID[id]
	if !ok || p.Status != model.StatusInProgress || p.StartTime == nil || !p.StartTime.After(newStart) {
		return false, nil
	}
	p.StartTime = &newStart
	return true, nil
}

func (f *fakeParticipants) MarkSubmitted(_ context.Context, id uuid.UUID, submitTime time.Time, artifactRef *string) (bool, error) {
	p, ok := f.byID[id]
	if !ok || p.Status != model.StatusInProgress {
		return false, nil
	}
	p.Status = model.StatusCompleted
	p.SubmitTime = &submitTime
	p.ArtifactRef = artifactRef
	return true, nil
}

func (f *fakeParticipants) ResetAttempt(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := f.byID[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if p.Status == model.StatusInProgress {
		return false, nil
	}
	p.Status = model.StatusWaiting
	p.QuestionID = nil
	p.StartTime = nil
	p.SubmitTime = nil
	p.ArtifactRef = nil
	return true, nil
}

func (f *fakeParticipants) ListExpired(_ context.Context, now time.Time) ([]model.Participant, error) {
	var out []model.Participant
	for _, p := range f.byID {
		if p.Status != model.StatusInProgress || p.StartTime == nil {
			continue
		}
		deadline := p.StartTime.Add(360 * time.Second) // matches testExam durations
		if !deadline.After(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeQuestions struct {
	questions []*model.Question
}

func (f *fakeQuestions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	for _, q := range f.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeQuestions) RandomActive(_ context.Context, examID uuid.UUID) (*model.Question, error) {
	for _, q := range f.questions {
		if q.ExamID == examID && q.Active {
			return q, nil
		}
	}
	return nil, nil
}

type fakeExams struct {
	exams map[uuid.UUID]*model.Exam
}

func (f *fakeExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return e, nil
}

type fakeArtifacts struct {
	stored  map[string]bool
	counter int
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{stored: make(map[string]bool)}
}

func (f *fakeArtifacts) Store(r io.Reader, ext string) (string, error) {
	io.Copy(io.Discard, r)
	f.counter++
	ref := fmt.Sprintf("rec-%d.%s", f.counter, ext)
	f.stored[ref] = true
	return ref, nil
}

func (f *fakeArtifacts) Delete(ref string) error {
	delete(f.stored, ref)
	return nil
}

type fakeStage struct {
	refs map[string]string
}

func newFakeStage() *fakeStage {
	return &fakeStage{refs: make(map[string]string)}
}

func (f *fakeStage) Put(_ context.Context, participantID, ref string) error {
	f.refs[participantID] = ref
	return nil
}

func (f *fakeStage) Get(_ context.Context, participantID string) (string, error) {
	return f.refs[participantID], nil
}

func (f *fakeStage) Clear(_ context.Context, participantID string) error {
	delete(f.refs, participantID)
	return nil
}

type fakeResetGuard struct {
	held map[string]bool
}

func newFakeResetGuard() *fakeResetGuard {
	return &fakeResetGuard{held: make(map[string]bool)}
}

func (f *fakeResetGuard) Acquire(_ context.Context, id string) (bool, error) {
	if f.held[id] {
		return false, nil
	}
	f.held[id] = true
	return true, nil
}

func (f *fakeResetGuard) Release(_ context.Context, id string) {
	delete(f.held, id)
}

type fakeTranscodeQueue struct {
	entries []string
}

func (f *fakeTranscodeQueue) Enqueue(_ context.Context, participantID uuid.UUID, ref string) error {
	f.entries = append(f.entries, ref)
	return nil
}

type capturingNotifier struct {
	events []notify.Event
}

func (c *capturingNotifier) Publish(_ context.Context, ev notify.Event) {
	c.events = append(c.events, ev)
}

func (c *capturingNotifier) last() *notify.Event {
	if len(c.events) == 0 {
		return nil
	}
	return &c.events[len(c.events)-1]
}

// ────────────────────────────────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────────────────────────────────

var baseTime = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc          *AttemptService
	participants *fakeParticipants
	artifacts    *fakeArtifacts
	stage        *fakeStage
	guard        *fakeResetGuard
	transcodes   *fakeTranscodeQueue
	notifier     *capturingNotifier
	clock        *time.Time
	exam         *model.Exam
	participant  *model.Participant
	question     *model.Question
}

// newFixture wires an AttemptService over fakes with a 60s preparation and
// 300s recording exam and one waiting participant.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	exam := &model.Exam{
		ID:                 uuid.New(),
		Name:               "Van dap giua ky",
		PreparationSeconds: 60,
		RecordingSeconds:   300,
	}
	question := &model.Question{
		ID:     uuid.New(),
		ExamID: exam.ID,
		Code:   "Q-07",
		Active: true,
	}
	participant := &model.Participant{
		ID:        uuid.New(),
		ExamID:    exam.ID,
		StudentID: 42,
		Status:    model.StatusWaiting,
	}

	f := &fixture{
		participants: newFakeParticipants(participant),
		artifacts:    newFakeArtifacts(),
		stage:        newFakeStage(),
		guard:        newFakeResetGuard(),
		transcodes:   &fakeTranscodeQueue{},
		notifier:     &capturingNotifier{},
		exam:         exam,
		participant:  participant,
		question:     question,
	}

	now := baseTime
	f.clock = &now

	f.svc = NewAttemptService(
		f.participants,
		&fakeQuestions{questions: []*model.Question{question}},
		&fakeExams{exams: map[uuid.UUID]*model.Exam{exam.ID: exam}},
		f.artifacts,
		f.stage,
		f.guard,
		f.transcodes,
		f.notifier,
		zerolog.Nop(),
	)
	f.svc.now = func() time.Time { return *f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) drawAndStart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.DrawQuestion(ctx, f.exam.ID, 42); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if _, err := f.svc.Start(ctx, f.exam.ID, 42); err != nil {
		t.Fatalf("start: %v", err)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────────────────────────────────

func TestDrawQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.svc.DrawQuestion(ctx, f.exam.ID, 42)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if state.Question == nil || state.Question.Code != "Q-07" {
		t.Fatalf("expected drawn question in state, got %+v", state.Question)
	}
	if state.Timing.Phase != timing.PhaseWaiting {
		t.Errorf("drawing must not start the clock, got phase %s", state.Timing.Phase)
	}
	if ev := f.notifier.last(); ev == nil || ev.Type != notify.EventQuestionDrawn || ev.QuestionCode != "Q-07" {
		t.Errorf("expected question_drawn event, got %+v", ev)
	}

	// A participant draws exactly once.
	if _, err := f.svc.DrawQuestion(ctx, f.exam.ID, 42); !errors.Is(err, ErrAlreadyDrawn) {
		t.Errorf("second draw: expected ErrAlreadyDrawn, got %v", err)
	}
}

func TestDrawQuestionEmptyPool(t *testing.T) {
	f := newFixture(t)
	f.question.Active = false

	if _, err := f.svc.DrawQuestion(context.Background(), f.exam.ID, 42); !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Errorf("expected ErrNoQuestionsAvailable, got %v", err)
	}
}

func TestDrawQuestionUnknownStudent(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.DrawQuestion(context.Background(), f.exam.ID, 99); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}

func TestStartRequiresDrawnQuestion(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Start(context.Background(), f.exam.ID, 42); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestStartBeginsPreparation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.DrawQuestion(ctx, f.exam.ID, 42); err != nil {
		t.Fatalf("draw: %v", err)
	}
	state, err := f.svc.Start(ctx, f.exam.ID, 42)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.Timing.Phase != timing.PhasePreparation {
		t.Errorf("expected preparation, got %s", state.Timing.Phase)
	}
	if state.Timing.PreparationRemaining != 60 {
		t.Errorf("expected full countdown, got %d", state.Timing.PreparationRemaining)
	}

	if _, err := f.svc.Start(ctx, f.exam.ID, 42); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second start: expected ErrAlreadyStarted, got %v", err)
	}
}

func TestPhaseProgressionSurvivesReconnect(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()

	// Each State call simulates a fresh page load. Only the clock moves.
	f.advance(30 * time.Second)
	state, _ := f.svc.State(ctx, f.exam.ID, 42)
	if state.Timing.Phase != timing.PhasePreparation || state.Timing.PreparationRemaining != 30 {
		t.Errorf("t+30s: expected preparation/30, got %s/%d", state.Timing.Phase, state.Timing.PreparationRemaining)
	}

	f.advance(40 * time.Second)
	state, _ = f.svc.State(ctx, f.exam.ID, 42)
	if state.Timing.Phase != timing.PhaseRecording || state.Timing.RecordingRemaining != 290 {
		t.Errorf("t+70s: expected recording/290, got %s/%d", state.Timing.Phase, state.Timing.RecordingRemaining)
	}

	f.advance(300 * time.Second)
	state, _ = f.svc.State(ctx, f.exam.ID, 42)
	if state.Timing.Phase != timing.PhaseExpired {
		t.Errorf("t+370s: expected expired, got %s", state.Timing.Phase)
	}
}

func TestEarlyStartGrantsFullRecordingWindow(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()

	f.advance(10 * time.Second)
	state, err := f.svc.EarlyStart(ctx, f.exam.ID, 42)
	if err != nil {
		t.Fatalf("early start: %v", err)
	}
	if state.Timing.Phase != timing.PhaseRecording {
		t.Fatalf("expected recording, got %s", state.Timing.Phase)
	}
	// The skipped preparation time must not shrink the recording window.
	if state.Timing.RecordingRemaining != 300 {
		t.Errorf("expected full 300s window, got %d", state.Timing.RecordingRemaining)
	}

	// The new anchor is persisted, so the window survives a reconnect.
	f.advance(50 * time.Second)
	state, _ = f.svc.State(ctx, f.exam.ID, 42)
	if state.Timing.Phase != timing.PhaseRecording || state.Timing.RecordingRemaining != 250 {
		t.Errorf("after reconnect: expected recording/250, got %s/%d", state.Timing.Phase, state.Timing.RecordingRemaining)
	}
}

func TestEarlyStartDuringRecordingIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()

	f.advance(100 * time.Second) // well into recording
	state, err := f.svc.EarlyStart(ctx, f.exam.ID, 42)
	if err != nil {
		t.Fatalf("early start: %v", err)
	}
	if state.Timing.RecordingRemaining != 260 {
		t.Errorf("window must not be extended, got %d", state.Timing.RecordingRemaining)
	}
}

func TestEarlyStartBeforeStart(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.EarlyStart(context.Background(), f.exam.ID, 42); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("expected ErrWrongPhase, got %v", err)
	}
}

func TestStageRecordingReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()
	f.advance(70 * time.Second) // recording phase

	if err := f.svc.StageRecording(ctx, f.exam.ID, 42, strings.NewReader("take one"), "webm"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := f.svc.StageRecording(ctx, f.exam.ID, 42, strings.NewReader("take two"), "webm"); err != nil {
		t.Fatalf("restage: %v", err)
	}

	if f.artifacts.stored["rec-1.webm"] {
		t.Error("replaced recording must be deleted")
	}
	if !f.artifacts.stored["rec-2.webm"] {
		t.Error("latest recording must be kept")
	}
}

func TestStageRecordingDuringPreparation(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)

	err := f.svc.StageRecording(context.Background(), f.exam.ID, 42, strings.NewReader("x"), "webm")
	if !errors.Is(err, ErrWrongPhase) {
		t.Errorf("expected ErrWrongPhase, got %v", err)
	}
}

func TestSubmitCompletesWithStagedRecording(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()
	f.advance(70 * time.Second)

	if err := f.svc.StageRecording(ctx, f.exam.ID, 42, strings.NewReader("answer"), "webm"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	state, err := f.svc.Submit(ctx, f.exam.ID, 42)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if state.Participant.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", state.Participant.Status)
	}
	if state.Participant.ArtifactRef == nil || *state.Participant.ArtifactRef != "rec-1.webm" {
		t.Errorf("expected staged ref promoted, got %v", state.Participant.ArtifactRef)
	}
	if state.Timing.Phase != timing.PhaseCompleted {
		t.Errorf("expected completed phase, got %s", state.Timing.Phase)
	}
	if _, ok := f.stage.refs[f.participant.ID.String()]; ok {
		t.Error("stage must be cleared after submit")
	}
	if ev := f.notifier.last(); ev == nil || ev.Type != notify.EventSubmitted {
		t.Errorf("expected submitted event, got %+v", ev)
	}
	if len(f.transcodes.entries) != 1 || f.transcodes.entries[0] != "rec-1.webm" {
		t.Errorf("expected recording queued for transcode, got %v", f.transcodes.entries)
	}
}

func TestSubmitTwiceIsIdempotentConflict(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()
	f.advance(70 * time.Second)

	if _, err := f.svc.Submit(ctx, f.exam.ID, 42); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.exam.ID, 42); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}

	// The first submit's result must be untouched by the retry.
	p, _ := f.participants.GetByID(ctx, f.participant.ID)
	if p.SubmitTime == nil || !p.SubmitTime.Equal(baseTime.Add(70*time.Second)) {
		t.Errorf("submit time changed by retry: %v", p.SubmitTime)
	}
}

func TestSubmitDuringPreparation(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)

	if _, err := f.svc.Submit(context.Background(), f.exam.ID, 42); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("expected ErrWrongPhase, got %v", err)
	}
}

func TestSubmitAfterExpiryFinalizesWithStagedRecording(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()

	f.advance(70 * time.Second)
	if err := f.svc.StageRecording(ctx, f.exam.ID, 42, strings.NewReader("answer"), "webm"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	f.advance(400 * time.Second) // past the window
	if _, err := f.svc.Submit(ctx, f.exam.ID, 42); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	p, _ := f.participants.GetByID(ctx, f.participant.ID)
	if p.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", p.Status)
	}
	if p.ArtifactRef == nil || *p.ArtifactRef != "rec-1.webm" {
		t.Errorf("staged recording must survive expiry, got %v", p.ArtifactRef)
	}
	// Finalized at the window boundary, not at the request instant.
	if p.SubmitTime == nil || !p.SubmitTime.Equal(baseTime.Add(360 * time.Second)) {
		t.Errorf("expected submit time at deadline, got %v", p.SubmitTime)
	}
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()

	f.advance(100 * time.Second)
	if n, err := f.svc.ExpireOverdue(ctx); err != nil || n != 0 {
		t.Fatalf("sweep inside window: expected 0, got %d (%v)", n, err)
	}

	f.advance(300 * time.Second)
	n, err := f.svc.ExpireOverdue(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 finalized attempt, got %d", n)
	}

	p, _ := f.participants.GetByID(ctx, f.participant.ID)
	if p.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", p.Status)
	}
	if p.ArtifactRef != nil {
		t.Errorf("nothing staged, expected empty ref, got %v", p.ArtifactRef)
	}
	if ev := f.notifier.last(); ev == nil || ev.Type != notify.EventExpired {
		t.Errorf("expected expired event, got %+v", ev)
	}

	// Second sweep finds nothing.
	if n, _ := f.svc.ExpireOverdue(ctx); n != 0 {
		t.Errorf("repeat sweep: expected 0, got %d", n)
	}
}

func TestExpireIfOverdueFinalizesOnHeartbeat(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()

	// Inside the window it is a plain read.
	f.advance(100 * time.Second)
	state, err := f.svc.ExpireIfOverdue(ctx, f.exam.ID, 42)
	if err != nil {
		t.Fatalf("heartbeat inside window: %v", err)
	}
	if state.Timing.Phase != timing.PhaseRecording {
		t.Fatalf("expected recording, got %s", state.Timing.Phase)
	}
	if p, _ := f.participants.GetByID(ctx, f.participant.ID); p.Status != model.StatusInProgress {
		t.Fatalf("heartbeat must not mutate a running attempt, got %s", p.Status)
	}

	// Past the deadline the heartbeat finalizes without waiting for the sweep.
	f.advance(300 * time.Second)
	state, err = f.svc.ExpireIfOverdue(ctx, f.exam.ID, 42)
	if err != nil {
		t.Fatalf("heartbeat past deadline: %v", err)
	}
	if state.Timing.Phase != timing.PhaseCompleted {
		t.Errorf("expected completed, got %s", state.Timing.Phase)
	}
	if ev := f.notifier.last(); ev == nil || ev.Type != notify.EventExpired {
		t.Errorf("expected expired event, got %+v", ev)
	}
	if n, _ := f.svc.ExpireOverdue(ctx); n != 0 {
		t.Errorf("sweep after heartbeat finalize: expected 0, got %d", n)
	}
}

func TestResetClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()
	f.advance(70 * time.Second)

	if err := f.svc.StageRecording(ctx, f.exam.ID, 42, strings.NewReader("answer"), "webm"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.exam.ID, 42); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.svc.Reset(ctx, f.participant.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	p, _ := f.participants.GetByID(ctx, f.participant.ID)
	if p.Status != model.StatusWaiting || p.QuestionID != nil || p.StartTime != nil || p.SubmitTime != nil || p.ArtifactRef != nil {
		t.Errorf("expected pristine participant, got %+v", p)
	}
	if len(f.artifacts.stored) != 0 {
		t.Errorf("expected recordings deleted, got %v", f.artifacts.stored)
	}
	if ev := f.notifier.last(); ev == nil || ev.Type != notify.EventReset {
		t.Errorf("expected reset event, got %+v", ev)
	}

	// The student can go through the whole flow again.
	if _, err := f.svc.DrawQuestion(ctx, f.exam.ID, 42); err != nil {
		t.Errorf("draw after reset: %v", err)
	}
}

func TestResetRejectedWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.drawAndStart(t)
	ctx := context.Background()
	f.advance(30 * time.Second)

	if err := f.svc.Reset(ctx, f.participant.ID); !errors.Is(err, ErrAttemptRunning) {
		t.Fatalf("reset during attempt: expected ErrAttemptRunning, got %v", err)
	}

	// The running attempt is untouched.
	p, _ := f.participants.GetByID(ctx, f.participant.ID)
	if p.Status != model.StatusInProgress {
		t.Errorf("status = %s, want in_progress", p.Status)
	}
	if p.QuestionID == nil || p.StartTime == nil {
		t.Errorf("question/start wiped by rejected reset: %+v", p)
	}

	// Once the window closes and the sweep finalizes, reset is allowed again.
	f.advance(400 * time.Second)
	if _, err := f.svc.ExpireOverdue(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if err := f.svc.Reset(ctx, f.participant.ID); err != nil {
		t.Fatalf("reset after expiry: %v", err)
	}
	p, _ = f.participants.GetByID(ctx, f.participant.ID)
	if p.Status != model.StatusWaiting {
		t.Errorf("status after reset = %s, want waiting", p.Status)
	}
}

func TestResetWhileLocked(t *testing.T) {
	f := newFixture(t)
	f.guard.held[f.participant.ID.String()] = true

	if err := f.svc.Reset(context.Background(), f.participant.ID); !errors.Is(err, ErrResetInProgress) {
		t.Errorf("expected ErrResetInProgress, got %v", err)
	}
}
