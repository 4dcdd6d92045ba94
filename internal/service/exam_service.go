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

var ErrExamNotFound = errors.New("exam not found")

// ExamService handles exam lifecycle and participant assignment.
type ExamService struct {
	exams        *repository.ExamRepository
	participants *repository.ParticipantRepository
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams *repository.ExamRepository, participants *repository.ParticipantRepository, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:        exams,
		participants: participants,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves one exam.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	return e, err
}

// List retrieves all exams.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	return s.exams.List(ctx)
}

// Create makes a new exam with its timing configuration.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	e := &model.Exam{
		Name:               req.Name,
		PreparationSeconds: req.PreparationSeconds,
		RecordingSeconds:   req.RecordingSeconds,
	}
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info().Str("exam_id", e.ID.String()).Str("name", e.Name).Msg("Exam created")
	return e, nil
}

// Update modifies an exam's name and timing configuration.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Name = req.Name
	e.PreparationSeconds = req.PreparationSeconds
	e.RecordingSeconds = req.RecordingSeconds
	if err := s.exams.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an exam.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.exams.Delete(ctx, id)
}

// AssignParticipants registers students for an exam. Already-assigned
// students are skipped. Returns the number of new assignments.
func (s *ExamService) AssignParticipants(ctx context.Context, examID uuid.UUID, studentIDs []int) (int, error) {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return 0, err
	}
	created, err := s.participants.Assign(ctx, examID, studentIDs)
	if err != nil {
		return created, err
	}
	s.log.Info().
		Str("exam_id", examID.String()).
		Int("requested", len(studentIDs)).
		Int("created", created).
		Msg("Participants assigned")
	return created, nil
}
