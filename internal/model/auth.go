package model

// StudentLoginRequest is the student login payload.
type StudentLoginRequest struct {
	StudentCode string `json:"student_code" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// SupervisorLoginRequest is the supervisor login payload.
type SupervisorLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
