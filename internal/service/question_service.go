package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/repository"
)

var ErrQuestionNotFound = errors.New("question not found")

// QuestionService manages the per-exam question bank.
type QuestionService struct {
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// GetByID retrieves one question.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	return q, err
}

// ListByExam retrieves all questions of an exam.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questions.ListByExam(ctx, examID)
}

// Add inserts a new question into an exam's bank. Questions default to
// active unless the request says otherwise.
func (s *QuestionService) Add(ctx context.Context, examID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	q := &model.Question{
		ExamID:     examID,
		Code:       req.Code,
		ContentRef: req.ContentRef,
		Active:     active,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Update modifies a question. Deactivating removes it from future draws but
// keeps it attached to participants who already drew it.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Code = req.Code
	q.ContentRef = req.ContentRef
	if req.Active != nil {
		q.Active = *req.Active
	}
	if err := s.questions.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes a question that no participant has drawn yet.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questions.Delete(ctx, id)
}
