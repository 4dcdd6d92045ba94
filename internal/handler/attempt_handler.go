package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/middleware"
	"github.com/vandap/vandap-backend/internal/response"
	"github.com/vandap/vandap-backend/internal/service"
)

// AttemptHandler exposes the student-facing attempt lifecycle.
type AttemptHandler struct {
	attempts *service.AttemptService
	media    *service.MediaService
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts *service.AttemptService, media *service.MediaService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		media:    media,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// GetState godoc
// GET /api/v1/student/exams/:exam_id/attempt
// Returns the current attempt view. Clients call this on every page load to
// re-derive where they are; the server clock is authoritative.
func (h *AttemptHandler) GetState(c *gin.Context) {
	examID, studentID, ok := h.identify(c)
	if !ok {
		return
	}

	state, err := h.attempts.State(c.Request.Context(), examID, studentID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// DrawQuestion godoc
// POST /api/v1/student/exams/:exam_id/attempt/draw
func (h *AttemptHandler) DrawQuestion(c *gin.Context) {
	examID, studentID, ok := h.identify(c)
	if !ok {
		return
	}

	state, err := h.attempts.DrawQuestion(c.Request.Context(), examID, studentID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// Start godoc
// POST /api/v1/student/exams/:exam_id/attempt/start
func (h *AttemptHandler) Start(c *gin.Context) {
	examID, studentID, ok := h.identify(c)
	if !ok {
		return
	}

	state, err := h.attempts.Start(c.Request.Context(), examID, studentID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// EarlyStart godoc
// POST /api/v1/student/exams/:exam_id/attempt/early-start
// Skips the rest of the preparation countdown and opens the full recording
// window immediately.
func (h *AttemptHandler) EarlyStart(c *gin.Context) {
	examID, studentID, ok := h.identify(c)
	if !ok {
		return
	}

	state, err := h.attempts.EarlyStart(c.Request.Context(), examID, studentID)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// StageRecording godoc
// POST /api/v1/student/exams/:exam_id/attempt/recording
// Accepts a multipart "recording" file. Re-uploading replaces the previous
// take; nothing is final until submit.
func (h *AttemptHandler) StageRecording(c *gin.Context) {
	examID, studentID, ok := h.identify(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("recording")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	ext, err := h.media.ValidateRecordingUpload(header)
	if err != nil {
		failMediaError(c, err)
		return
	}

	if err := h.attempts.StageRecording(c.Request.Context(), examID, studentID, file, ext); err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"staged": true})
}

// Submit godoc
// POST /api/v1/student/exams/:exam_id/attempt/submit
// Finalizes the attempt with the staged recording. A repeated submit is
// answered with the completed state, not an error: the client's goal (attempt
// durably finished) is met either way.
func (h *AttemptHandler) Submit(c *gin.Context) {
	examID, studentID, ok := h.identify(c)
	if !ok {
		return
	}

	state, err := h.attempts.Submit(c.Request.Context(), examID, studentID)
	if errors.Is(err, service.ErrAlreadySubmitted) {
		state, err = h.attempts.State(c.Request.Context(), examID, studentID)
		if err != nil {
			failAttemptError(c, err)
			return
		}
		response.Success(c, http.StatusOK, state)
		return
	}
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

func (h *AttemptHandler) identify(c *gin.Context) (uuid.UUID, int, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, 0, false
	}
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, 0, false
	}
	return examID, claims.UserID, true
}

// failAttemptError maps attempt state machine errors onto the API taxonomy.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotParticipant):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamParticipant)
	case errors.Is(err, service.ErrAlreadyDrawn):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyDrawn)
	case errors.Is(err, service.ErrNoQuestionsAvailable):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestionsLeft)
	case errors.Is(err, service.ErrNotReady):
		response.Fail(c, http.StatusConflict, response.ErrNotReady)
	case errors.Is(err, service.ErrAlreadyStarted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyStarted)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyDone)
	case errors.Is(err, service.ErrWrongPhase):
		response.Fail(c, http.StatusConflict, response.ErrWrongPhase)
	case errors.Is(err, service.ErrResetInProgress):
		response.Fail(c, http.StatusConflict, response.ErrResetInProgress)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// failMediaError maps upload validation errors onto the API taxonomy.
func failMediaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
