// Package driver is an importable client that walks one oral exam attempt
// end to end: draw a question, start the timed window, capture audio through
// an injected Recorder, stage the upload and submit. Countdowns are anchored
// to the server's timing snapshot, never to the local wall clock alone, so a
// skewed client still flips phases at the right moments.
package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Phase mirrors the server-side attempt phases.
const (
	PhaseWaiting     = "waiting"
	PhasePreparation = "preparation"
	PhaseRecording   = "recording"
	PhaseExpired     = "expired"
	PhaseCompleted   = "completed"
)

// Error codes the driver reacts to.
const (
	CodeAlreadyDrawn     = "ALREADY_DRAWN"
	CodeAlreadyStarted   = "ALREADY_STARTED"
	CodeAlreadySubmitted = "ALREADY_SUBMITTED"
	CodeWrongPhase       = "WRONG_PHASE"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// HasCode reports whether err is an APIError carrying the given code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Timing is the server-computed countdown snapshot.
type Timing struct {
	Phase                string `json:"phase"`
	PreparationRemaining int    `json:"preparation_remaining"`
	RecordingRemaining   int    `json:"recording_remaining"`
	TotalRemaining       int    `json:"total_remaining"`
}

// Participant is the wire view of the student's attempt row.
type Participant struct {
	ID          string     `json:"id"`
	ExamID      string     `json:"exam_id"`
	StudentID   int        `json:"student_id"`
	QuestionID  *string    `json:"question_id"`
	Status      string     `json:"status"`
	StartTime   *time.Time `json:"start_time"`
	SubmitTime  *time.Time `json:"submit_time"`
	ArtifactRef *string    `json:"artifact_ref"`
}

// Question is the drawn question, if any.
type Question struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	ContentRef string `json:"content_ref"`
}

// Exam carries the timing configuration.
type Exam struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	PreparationSeconds int    `json:"preparation_seconds"`
	RecordingSeconds   int    `json:"recording_seconds"`
}

// State is one full attempt snapshot. ReceivedAt anchors the countdown: the
// remaining seconds in Timing were true at that local instant.
type State struct {
	Participant Participant `json:"participant"`
	Question    *Question   `json:"question"`
	Exam        Exam        `json:"exam"`
	Timing      Timing      `json:"timing"`

	ReceivedAt time.Time `json:"-"`
}

// RemainingAt projects the snapshot's countdown to a later local instant.
// It only counts down; phase flips still come from the server.
func (s *State) RemainingAt(now time.Time) Timing {
	elapsed := int(now.Sub(s.ReceivedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	t := s.Timing
	t.PreparationRemaining = clampSub(t.PreparationRemaining, elapsed)
	if t.Phase == PhaseRecording {
		t.RecordingRemaining = clampSub(t.RecordingRemaining, elapsed)
	}
	t.TotalRemaining = clampSub(t.TotalRemaining, elapsed)
	return t
}

func clampSub(v, by int) int {
	if v <= by {
		return 0
	}
	return v - by
}

// Recorder captures audio for up to the given duration. It returns the
// recorded stream and a filename whose extension identifies the container.
type Recorder interface {
	Record(ctx context.Context, maxDuration time.Duration) (io.ReadCloser, string, error)
}

// Client drives attempts against one server with one student token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client. baseURL is the server root, e.g. "http://host:8080".
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*State, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	state := &State{ReceivedAt: time.Now()}
	if err := json.Unmarshal(env.Data, state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

// State fetches the current attempt view.
func (c *Client) State(ctx context.Context, examID string) (*State, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/student/exams/"+examID+"/attempt", nil, "")
}

// Draw assigns a random question to a waiting attempt.
func (c *Client) Draw(ctx context.Context, examID string) (*State, error) {
	return c.do(ctx, http.MethodPost, "/api/v1/student/exams/"+examID+"/attempt/draw", nil, "")
}

// Start begins the preparation countdown.
func (c *Client) Start(ctx context.Context, examID string) (*State, error) {
	return c.do(ctx, http.MethodPost, "/api/v1/student/exams/"+examID+"/attempt/start", nil, "")
}

// EarlyStart skips the remaining preparation time.
func (c *Client) EarlyStart(ctx context.Context, examID string) (*State, error) {
	return c.do(ctx, http.MethodPost, "/api/v1/student/exams/"+examID+"/attempt/early-start", nil, "")
}

// StageRecording uploads a recording without submitting. A later upload
// replaces the staged one; Submit promotes whatever was staged last.
func (c *Client) StageRecording(ctx context.Context, examID string, r io.Reader, filename string) (*State, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("recording", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/api/v1/student/exams/"+examID+"/attempt/recording", &buf, mw.FormDataContentType())
}

// Submit finalizes the attempt with the staged recording. The server answers
// an already-completed attempt with its current state, so retries are safe.
func (c *Client) Submit(ctx context.Context, examID string) (*State, error) {
	state, err := c.do(ctx, http.MethodPost, "/api/v1/student/exams/"+examID+"/attempt/submit", nil, "")
	if err != nil && HasCode(err, CodeAlreadySubmitted) {
		return c.State(ctx, examID)
	}
	return state, err
}

// RunOptions tunes the end-to-end attempt loop.
type RunOptions struct {
	// SkipPreparation requests an early start as soon as the preparation
	// phase is observed.
	SkipPreparation bool
	// Poll is how often the loop reconciles with the server while waiting
	// for a phase flip. Defaults to 2 seconds.
	Poll time.Duration
}

// Run drives one attempt from its current state to completion. It is safe to
// call on a half-finished attempt after a crash: the loop picks up wherever
// the server says the attempt is.
func (c *Client) Run(ctx context.Context, examID string, rec Recorder, opts RunOptions) (*State, error) {
	poll := opts.Poll
	if poll <= 0 {
		poll = 2 * time.Second
	}

	state, err := c.State(ctx, examID)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		switch state.Timing.Phase {
		case PhaseCompleted:
			return state, nil

		case PhaseWaiting:
			if state, err = c.advanceWaiting(ctx, examID, state); err != nil {
				return nil, err
			}

		case PhasePreparation:
			if opts.SkipPreparation {
				if state, err = c.EarlyStart(ctx, examID); err != nil {
					return nil, err
				}
				continue
			}
			if err := sleepCtx(ctx, waitFor(state, poll)); err != nil {
				return state, err
			}
			if state, err = c.State(ctx, examID); err != nil {
				return nil, err
			}

		case PhaseRecording:
			return c.recordAndSubmit(ctx, examID, state, rec)

		case PhaseExpired:
			// Submit triggers server-side finalization with whatever
			// was staged.
			return c.Submit(ctx, examID)

		default:
			return state, fmt.Errorf("unknown phase %q", state.Timing.Phase)
		}
	}
}

// advanceWaiting draws a question if needed and starts the attempt.
// Conflict errors mean another device of the same student got there first,
// so they resolve by re-fetching.
func (c *Client) advanceWaiting(ctx context.Context, examID string, state *State) (*State, error) {
	if state.Question == nil {
		next, err := c.Draw(ctx, examID)
		if err != nil {
			if !HasCode(err, CodeAlreadyDrawn) {
				return nil, err
			}
		} else {
			state = next
		}
	}

	next, err := c.Start(ctx, examID)
	if err != nil {
		if HasCode(err, CodeAlreadyStarted) {
			return c.State(ctx, examID)
		}
		return nil, err
	}
	return next, nil
}

func (c *Client) recordAndSubmit(ctx context.Context, examID string, state *State, rec Recorder) (*State, error) {
	remaining := time.Duration(state.RemainingAt(time.Now()).RecordingRemaining) * time.Second
	if remaining <= 0 {
		return c.Submit(ctx, examID)
	}

	stream, filename, err := rec.Record(ctx, remaining)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	defer stream.Close()

	if _, err := c.StageRecording(ctx, examID, stream, filename); err != nil {
		// The window may have closed mid-upload; submitting still
		// finalizes with the last successful stage.
		if !HasCode(err, CodeWrongPhase) {
			return nil, err
		}
	}
	return c.Submit(ctx, examID)
}

// waitFor picks the next reconcile delay: the poll interval, shortened when
// the phase flip is closer than that.
func waitFor(state *State, poll time.Duration) time.Duration {
	t := state.RemainingAt(time.Now())
	var untilFlip time.Duration
	switch t.Phase {
	case PhasePreparation:
		untilFlip = time.Duration(t.PreparationRemaining) * time.Second
	default:
		untilFlip = time.Duration(t.TotalRemaining) * time.Second
	}
	if untilFlip > 0 && untilFlip < poll {
		return untilFlip
	}
	return poll
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
