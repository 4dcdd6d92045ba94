package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/model"
	"github.com/vandap/vandap-backend/internal/repository"
	"github.com/vandap/vandap-backend/internal/timing"
)

// ParticipantView is one row of the supervisor monitor: the joined
// participant detail plus the derived phase at snapshot time.
type ParticipantView struct {
	model.ParticipantDetail
	Timing timing.Snapshot `json:"timing"`
}

// ExamOverview is the monitor snapshot of one exam.
type ExamOverview struct {
	Exam         *model.Exam       `json:"exam"`
	Stats        OverviewStats     `json:"stats"`
	Participants []ParticipantView `json:"participants"`
}

// OverviewStats aggregates participant states for the dashboard header.
type OverviewStats struct {
	Total      int `json:"total"`
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// MonitorService builds supervisor-facing snapshots of exam progress.
type MonitorService struct {
	exams        *repository.ExamRepository
	participants *repository.ParticipantRepository
	log          zerolog.Logger
	now          func() time.Time
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(exams *repository.ExamRepository, participants *repository.ParticipantRepository, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		exams:        exams,
		participants: participants,
		log:          log.With().Str("component", "monitor_service").Logger(),
		now:          time.Now,
	}
}

// Overview returns the current state of every participant of an exam with
// phases derived at a single instant.
func (s *MonitorService) Overview(ctx context.Context, examID uuid.UUID) (*ExamOverview, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	details, err := s.participants.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	overview := &ExamOverview{
		Exam:         exam,
		Participants: make([]ParticipantView, 0, len(details)),
	}
	for _, d := range details {
		snap := timing.Compute(
			d.StartTime,
			exam.PreparationDuration(),
			exam.RecordingDuration(),
			d.Status == model.StatusCompleted,
			now,
		)
		overview.Participants = append(overview.Participants, ParticipantView{
			ParticipantDetail: d,
			Timing:            snap,
		})

		overview.Stats.Total++
		switch d.Status {
		case model.StatusWaiting:
			overview.Stats.Waiting++
		case model.StatusInProgress:
			overview.Stats.InProgress++
		case model.StatusCompleted:
			overview.Stats.Completed++
		}
	}
	return overview, nil
}
