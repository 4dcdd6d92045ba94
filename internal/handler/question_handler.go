package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/repository"
	"github.com/vandap/vandap-backend/internal/response"
	"github.com/vandap/vandap-backend/internal/service"
	"github.com/vandap/vandap-backend/internal/validator"
)

// QuestionHandler exposes supervisor question bank management.
type QuestionHandler struct {
	questions *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// ListByExam godoc
// GET /api/v1/supervisor/exams/:id/questions
func (h *QuestionHandler) ListByExam(c *gin.Context) {
	examID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	questions, err := h.questions.ListByExam(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, questions)
}

// Add godoc
// POST /api/v1/supervisor/exams/:id/questions
func (h *QuestionHandler) Add(c *gin.Context) {
	examID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	q, err := h.questions.Add(c.Request.Context(), examID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateQuestionCode) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// Update godoc
// PUT /api/v1/supervisor/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	q, err := h.questions.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuestionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, repository.ErrDuplicateQuestionCode):
			response.Fail(c, http.StatusConflict, response.ErrConflict)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, q)
}

// Delete godoc
// DELETE /api/v1/supervisor/questions/:id
// A question a participant already drew cannot be deleted, only deactivated.
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.questions.Delete(c.Request.Context(), id); err != nil {
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
