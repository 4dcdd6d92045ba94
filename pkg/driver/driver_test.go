package driver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeExamServer is an in-memory stand-in for the attempt endpoints. It
// answers with the same response envelope the real server uses and walks the
// same waiting → preparation → recording → completed progression.
type fakeExamServer struct {
	mu sync.Mutex

	examID    string
	phase     string
	hasQ      bool
	staged    string
	submitted bool

	drawCalls   int
	startCalls  int
	earlyCalls  int
	stageCalls  int
	submitCalls int
}

func newFakeExamServer() *fakeExamServer {
	return &fakeExamServer{examID: "exam-1", phase: PhaseWaiting}
}

func (f *fakeExamServer) state() *State {
	st := &State{
		Participant: Participant{ID: "p-1", ExamID: f.examID, StudentID: 7, Status: "waiting"},
		Exam:        Exam{ID: f.examID, Name: "Van dap cuoi ky", PreparationSeconds: 60, RecordingSeconds: 300},
		Timing:      Timing{Phase: f.phase},
	}
	if f.hasQ {
		st.Question = &Question{ID: "q-1", Code: "Q-03"}
	}
	switch f.phase {
	case PhasePreparation:
		st.Participant.Status = "in_progress"
		st.Timing.PreparationRemaining = 60
		st.Timing.RecordingRemaining = 300
		st.Timing.TotalRemaining = 360
	case PhaseRecording:
		st.Participant.Status = "in_progress"
		st.Timing.RecordingRemaining = 300
		st.Timing.TotalRemaining = 300
	case PhaseCompleted:
		st.Participant.Status = "completed"
	}
	return st
}

func (f *fakeExamServer) writeState(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": f.state()})
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": code},
	})
}

func (f *fakeExamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
		writeError(w, http.StatusUnauthorized, "TOKEN_INVALID")
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/attempt") && r.Method == http.MethodGet:
		f.writeState(w, http.StatusOK)

	case strings.HasSuffix(r.URL.Path, "/attempt/draw"):
		f.drawCalls++
		if f.hasQ {
			writeError(w, http.StatusConflict, CodeAlreadyDrawn)
			return
		}
		f.hasQ = true
		f.writeState(w, http.StatusOK)

	case strings.HasSuffix(r.URL.Path, "/attempt/start"):
		f.startCalls++
		if f.phase != PhaseWaiting {
			writeError(w, http.StatusConflict, CodeAlreadyStarted)
			return
		}
		f.phase = PhasePreparation
		f.writeState(w, http.StatusOK)

	case strings.HasSuffix(r.URL.Path, "/attempt/early-start"):
		f.earlyCalls++
		if f.phase != PhasePreparation && f.phase != PhaseRecording {
			writeError(w, http.StatusConflict, CodeWrongPhase)
			return
		}
		f.phase = PhaseRecording
		f.writeState(w, http.StatusOK)

	case strings.HasSuffix(r.URL.Path, "/attempt/recording"):
		f.stageCalls++
		if f.phase != PhaseRecording {
			writeError(w, http.StatusConflict, CodeWrongPhase)
			return
		}
		file, _, err := r.FormFile("recording")
		if err != nil {
			writeError(w, http.StatusBadRequest, "FILE_REQUIRED")
			return
		}
		data, _ := io.ReadAll(file)
		file.Close()
		f.staged = string(data)
		f.writeState(w, http.StatusOK)

	case strings.HasSuffix(r.URL.Path, "/attempt/submit"):
		f.submitCalls++
		if f.submitted {
			f.writeState(w, http.StatusOK)
			return
		}
		if f.phase != PhaseRecording && f.phase != PhaseExpired {
			writeError(w, http.StatusConflict, CodeWrongPhase)
			return
		}
		f.submitted = true
		f.phase = PhaseCompleted
		f.writeState(w, http.StatusOK)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND")
	}
}

type fakeRecorder struct {
	data  string
	calls int
}

func (r *fakeRecorder) Record(ctx context.Context, maxDuration time.Duration) (io.ReadCloser, string, error) {
	r.calls++
	return io.NopCloser(strings.NewReader(r.data)), "answer.webm", nil
}

func TestRunDrivesAttemptToCompletion(t *testing.T) {
	fake := newFakeExamServer()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := New(srv.URL, "test-token")
	rec := &fakeRecorder{data: "opus-bytes"}

	state, err := client.Run(context.Background(), fake.examID, rec, RunOptions{SkipPreparation: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if state.Timing.Phase != PhaseCompleted {
		t.Errorf("final phase = %q, want %q", state.Timing.Phase, PhaseCompleted)
	}
	if rec.calls != 1 {
		t.Errorf("recorder calls = %d, want 1", rec.calls)
	}
	if fake.staged != "opus-bytes" {
		t.Errorf("staged recording = %q, want %q", fake.staged, "opus-bytes")
	}
	if fake.drawCalls != 1 || fake.startCalls != 1 || fake.earlyCalls != 1 || fake.submitCalls != 1 {
		t.Errorf("calls draw=%d start=%d early=%d submit=%d, want 1 each",
			fake.drawCalls, fake.startCalls, fake.earlyCalls, fake.submitCalls)
	}
}

func TestRunResumesHalfFinishedAttempt(t *testing.T) {
	fake := newFakeExamServer()
	fake.hasQ = true
	fake.phase = PhaseRecording
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := New(srv.URL, "test-token")
	rec := &fakeRecorder{data: "resumed"}

	state, err := client.Run(context.Background(), fake.examID, rec, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Timing.Phase != PhaseCompleted {
		t.Errorf("final phase = %q, want %q", state.Timing.Phase, PhaseCompleted)
	}
	if fake.drawCalls != 0 || fake.startCalls != 0 {
		t.Errorf("resume should not draw or start again, got draw=%d start=%d", fake.drawCalls, fake.startCalls)
	}
}

func TestSubmitAfterCompletionIsSuccess(t *testing.T) {
	fake := newFakeExamServer()
	fake.hasQ = true
	fake.phase = PhaseCompleted
	fake.submitted = true
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := New(srv.URL, "test-token")
	state, err := client.Submit(context.Background(), fake.examID)
	if err != nil {
		t.Fatalf("Submit on completed attempt: %v", err)
	}
	if state.Timing.Phase != PhaseCompleted {
		t.Errorf("phase = %q, want %q", state.Timing.Phase, PhaseCompleted)
	}
}

func TestRejectedTokenSurfacesAPIError(t *testing.T) {
	fake := newFakeExamServer()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := New(srv.URL, "wrong-token")
	_, err := client.State(context.Background(), fake.examID)
	if err == nil {
		t.Fatal("expected error for rejected token")
	}
	if !HasCode(err, "TOKEN_INVALID") {
		t.Errorf("error = %v, want TOKEN_INVALID api error", err)
	}
}

func TestRemainingAtProjectsCountdown(t *testing.T) {
	received := time.Now().Add(-10 * time.Second)
	state := &State{
		Timing: Timing{
			Phase:                PhasePreparation,
			PreparationRemaining: 25,
			RecordingRemaining:   300,
			TotalRemaining:       325,
		},
		ReceivedAt: received,
	}

	got := state.RemainingAt(time.Now())
	if got.PreparationRemaining > 15 || got.PreparationRemaining < 14 {
		t.Errorf("preparation remaining = %d, want ~15", got.PreparationRemaining)
	}
	if got.RecordingRemaining != 300 {
		t.Errorf("recording remaining = %d, want untouched 300 during preparation", got.RecordingRemaining)
	}
	if got.TotalRemaining > 315 || got.TotalRemaining < 314 {
		t.Errorf("total remaining = %d, want ~315", got.TotalRemaining)
	}

	// Projection never goes negative.
	state.ReceivedAt = time.Now().Add(-time.Hour)
	got = state.RemainingAt(time.Now())
	if got.PreparationRemaining != 0 || got.TotalRemaining != 0 {
		t.Errorf("stale projection = %+v, want zeroed countdowns", got)
	}
}
