package model

import "time"

// Student represents an exam candidate account.
// PasswordHash is never serialized to API responses.
type Student struct {
	ID           int       `json:"id"`
	StudentCode  string    `json:"student_code"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateStudentRequest is the payload for creating a single student.
type CreateStudentRequest struct {
	StudentCode string `json:"student_code" binding:"required,min=1,max=50"`
	FullName    string `json:"full_name" binding:"required,min=1,max=100"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
}

// UpdateStudentRequest is the payload for updating a student.
// Password is optional; empty means keep the current hash.
type UpdateStudentRequest struct {
	StudentCode string `json:"student_code" binding:"required,min=1,max=50"`
	FullName    string `json:"full_name" binding:"required,min=1,max=100"`
	Password    string `json:"password" binding:"omitempty,min=6,max=72"`
}
