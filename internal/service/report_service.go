package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vandap/vandap-backend/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ReportService exports exam results to spreadsheets.
type ReportService struct {
	exams        *repository.ExamRepository
	participants *repository.ParticipantRepository
	log          zerolog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(exams *repository.ExamRepository, participants *repository.ParticipantRepository, log zerolog.Logger) *ReportService {
	return &ReportService{
		exams:        exams,
		participants: participants,
		log:          log.With().Str("component", "report_service").Logger(),
	}
}

// ExportResultsExcel writes one exam's participant results to an xlsx file:
// who drew what, when they started and submitted, and whether a recording
// exists.
func (s *ReportService) ExportResultsExcel(ctx context.Context, examID uuid.UUID) ([]byte, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	details, err := s.participants.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"student_code", "full_name", "question_code", "status", "start_time", "submit_time", "has_recording"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	const timeLayout = "2006-01-02 15:04:05"
	for i, d := range details {
		row := i + 2
		questionCode := ""
		if d.QuestionCode != nil {
			questionCode = *d.QuestionCode
		}
		startTime := ""
		if d.StartTime != nil {
			startTime = d.StartTime.Format(timeLayout)
		}
		submitTime := ""
		if d.SubmitTime != nil {
			submitTime = d.SubmitTime.Format(timeLayout)
		}
		values := []any{
			d.StudentCode,
			d.FullName,
			questionCode,
			string(d.Status),
			startTime,
			submitTime,
			d.ArtifactRef != nil,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "G", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("exam_name", exam.Name).
		Int("rows", len(details)).
		Msg("Results exported")
	return buf.Bytes(), nil
}
