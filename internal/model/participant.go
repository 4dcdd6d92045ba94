package model

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus enumerates the persisted attempt states.
// The derived phase (preparation/recording/expired) is computed from
// timestamps by the timing package and is never stored.
type ParticipantStatus string

const (
	StatusWaiting    ParticipantStatus = "waiting"
	StatusInProgress ParticipantStatus = "in_progress"
	StatusCompleted  ParticipantStatus = "completed"
)

// Participant is one student's single attempt at one exam.
// Exactly one row exists per (exam_id, student_id).
type Participant struct {
	ID          uuid.UUID         `json:"id"`
	ExamID      uuid.UUID         `json:"exam_id"`
	StudentID   int               `json:"student_id"`
	QuestionID  *uuid.UUID        `json:"question_id,omitempty"`
	Status      ParticipantStatus `json:"status"`
	StartTime   *time.Time        `json:"start_time,omitempty"`
	SubmitTime  *time.Time        `json:"submit_time,omitempty"`
	ArtifactRef *string           `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ParticipantDetail is a participant row joined with student identity and the
// drawn question's code. Used by the monitor view and report export.
type ParticipantDetail struct {
	Participant
	StudentCode  string  `json:"student_code"`
	FullName     string  `json:"full_name"`
	QuestionCode *string `json:"question_code,omitempty"`
}

// AssignParticipantsRequest is the payload for assigning students to an exam.
type AssignParticipantsRequest struct {
	StudentIDs []int `json:"student_ids" binding:"required,min=1,dive,min=1"`
}
