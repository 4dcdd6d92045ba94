package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam holds the immutable timing configuration of one oral exam.
// PreparationSeconds and RecordingSeconds drive the timing policy;
// they are read-only once participants exist.
type Exam struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	PreparationSeconds int       `json:"preparation_seconds"`
	RecordingSeconds   int       `json:"recording_seconds"`
	CreatedAt          time.Time `json:"created_at"`
}

// PreparationDuration returns the preparation window as a time.Duration.
func (e *Exam) PreparationDuration() time.Duration {
	return time.Duration(e.PreparationSeconds) * time.Second
}

// RecordingDuration returns the recording window as a time.Duration.
func (e *Exam) RecordingDuration() time.Duration {
	return time.Duration(e.RecordingSeconds) * time.Second
}

// CreateExamRequest is the payload for creating an exam.
type CreateExamRequest struct {
	Name               string `json:"name" binding:"required,min=1,max=200"`
	PreparationSeconds int    `json:"preparation_seconds" binding:"required,min=10,max=7200"`
	RecordingSeconds   int    `json:"recording_seconds" binding:"required,min=10,max=7200"`
}

// UpdateExamRequest is the payload for updating an exam.
type UpdateExamRequest struct {
	Name               string `json:"name" binding:"required,min=1,max=200"`
	PreparationSeconds int    `json:"preparation_seconds" binding:"required,min=10,max=7200"`
	RecordingSeconds   int    `json:"recording_seconds" binding:"required,min=10,max=7200"`
}
