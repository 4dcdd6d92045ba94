package model

import (
	"time"

	"github.com/google/uuid"
)

// Question is one drawable question paper of an exam. ContentRef is an
// opaque pointer (uploaded PDF path or external URL); the (Code, ContentRef)
// pair is the audit identity of the question once a participant has drawn it.
type Question struct {
	ID         uuid.UUID `json:"id"`
	ExamID     uuid.UUID `json:"exam_id"`
	Code       string    `json:"code"`
	ContentRef string    `json:"content_ref"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Code       string `json:"code" binding:"required,min=1,max=50"`
	ContentRef string `json:"content_ref" binding:"required,max=500"`
	Active     *bool  `json:"active"`
}

// UpdateQuestionRequest is the payload for editing a question.
type UpdateQuestionRequest struct {
	Code       string `json:"code" binding:"required,min=1,max=50"`
	ContentRef string `json:"content_ref" binding:"required,max=500"`
	Active     *bool  `json:"active"`
}
