package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/response"
	"github.com/vandap/vandap-backend/internal/service"
	"github.com/vandap/vandap-backend/internal/storage"
	"github.com/vandap/vandap-backend/internal/validator"
)

// ExamHandler exposes supervisor exam management: CRUD, participant
// assignment, monitoring, resets, reports and recording downloads.
type ExamHandler struct {
	exams    *service.ExamService
	attempts *service.AttemptService
	monitor  *service.MonitorService
	reports  *service.ReportService
	store    *storage.DiskArtifactStore
	log      zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	exams *service.ExamService,
	attempts *service.AttemptService,
	monitor *service.MonitorService,
	reports *service.ReportService,
	store *storage.DiskArtifactStore,
	log zerolog.Logger,
) *ExamHandler {
	return &ExamHandler{
		exams:    exams,
		attempts: attempts,
		monitor:  monitor,
		reports:  reports,
		store:    store,
		log:      log.With().Str("component", "exam_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/supervisor/exams
func (h *ExamHandler) List(c *gin.Context) {
	exams, err := h.exams.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, exams)
}

// Get godoc
// GET /api/v1/supervisor/exams/:id
func (h *ExamHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	exam, err := h.exams.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Create godoc
// POST /api/v1/supervisor/exams
func (h *ExamHandler) Create(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	exam, err := h.exams.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, exam)
}

// Update godoc
// PUT /api/v1/supervisor/exams/:id
func (h *ExamHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	exam, err := h.exams.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Delete godoc
// DELETE /api/v1/supervisor/exams/:id
func (h *ExamHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.exams.Delete(c.Request.Context(), id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// AssignParticipants godoc
// POST /api/v1/supervisor/exams/:id/participants
func (h *ExamHandler) AssignParticipants(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req model.AssignParticipantsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	created, err := h.exams.AssignParticipants(c.Request.Context(), id, req.StudentIDs)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": created})
}

// Overview godoc
// GET /api/v1/supervisor/exams/:id/overview
// One-shot snapshot of every participant's derived phase. The SSE stream
// serves the live version of the same data.
func (h *ExamHandler) Overview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	overview, err := h.monitor.Overview(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// ResetParticipant godoc
// POST /api/v1/supervisor/participants/:id/reset
// Wipes a participant's attempt so they can run it again from scratch.
func (h *ExamHandler) ResetParticipant(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.attempts.Reset(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrResetInProgress):
			response.Fail(c, http.StatusConflict, response.ErrResetInProgress)
		case errors.Is(err, service.ErrAttemptRunning):
			response.Fail(c, http.StatusConflict, response.ErrAttemptRunning)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ExportResults godoc
// GET /api/v1/supervisor/exams/:id/results/export
func (h *ExamHandler) ExportResults(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	data, err := h.reports.ExportResultsExcel(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	filename := fmt.Sprintf("exam-results-%s.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// DownloadRecording godoc
// GET /api/v1/supervisor/recordings/:ref
// Streams a submitted answer recording.
func (h *ExamHandler) DownloadRecording(c *gin.Context) {
	ref := c.Param("ref")
	rc, err := h.store.Open(ref)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, ref))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn().Err(err).Str("ref", ref).Msg("Recording download aborted")
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
