package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vandap/vandap-backend/internal/config"
	"github.com/vandap/vandap-backend/internal/handler"
	"github.com/vandap/vandap-backend/internal/middleware"
	"github.com/vandap/vandap-backend/internal/response"
	"github.com/vandap/vandap-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Attempt  *handler.AttemptHandler
	Exam     *handler.ExamHandler
	Student  *handler.StudentHandler
	Question *handler.QuestionHandler
	Media    *handler.MediaHandler
	Monitor  *handler.MonitorHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.MaxMultipartMemory = cfg.MaxUploadBytes

	// Serve question papers statically with aggressive caching (1 year).
	// Papers are immutable once uploaded; a new upload gets a new ref.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for login routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", authLimiter.Middleware(), handlers.Auth.StudentLogin)
		auth.POST("/supervisor/login", authLimiter.Middleware(), handlers.Auth.SupervisorLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/supervisor/me", middleware.RequireSupervisorJWT(authService), handlers.Auth.GetSupervisorProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/exams/:exam_id/attempt", handlers.Attempt.GetState)
		studentAPI.POST("/exams/:exam_id/attempt/draw", handlers.Attempt.DrawQuestion)
		studentAPI.POST("/exams/:exam_id/attempt/start", handlers.Attempt.Start)
		studentAPI.POST("/exams/:exam_id/attempt/early-start", handlers.Attempt.EarlyStart)
		studentAPI.POST("/exams/:exam_id/attempt/recording", handlers.Attempt.StageRecording)
		studentAPI.POST("/exams/:exam_id/attempt/submit", handlers.Attempt.Submit)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Supervisor Group (JWT) ─────────────────────────────────────
	supervisorAPI := router.Group("/api/v1/supervisor")
	supervisorAPI.Use(middleware.RequireSupervisorJWT(authService))
	{
		// Roster management
		supervisorAPI.GET("/students", handlers.Student.List)
		supervisorAPI.GET("/students/export", handlers.Student.Export)
		supervisorAPI.POST("/students/import", handlers.Student.Import)
		supervisorAPI.GET("/students/:id", handlers.Student.Get)
		supervisorAPI.POST("/students", handlers.Student.Create)
		supervisorAPI.PUT("/students/:id", handlers.Student.Update)
		supervisorAPI.DELETE("/students/:id", handlers.Student.Delete)

		// Exam management
		supervisorAPI.GET("/exams", handlers.Exam.List)
		supervisorAPI.GET("/exams/:id", handlers.Exam.Get)
		supervisorAPI.POST("/exams", handlers.Exam.Create)
		supervisorAPI.PUT("/exams/:id", handlers.Exam.Update)
		supervisorAPI.DELETE("/exams/:id", handlers.Exam.Delete)
		supervisorAPI.POST("/exams/:id/participants", handlers.Exam.AssignParticipants)
		supervisorAPI.GET("/exams/:id/overview", handlers.Exam.Overview)
		supervisorAPI.GET("/exams/:id/monitor", handlers.Monitor.MonitorExamSSE)
		supervisorAPI.GET("/exams/:id/results/export", handlers.Exam.ExportResults)

		// Question bank
		supervisorAPI.GET("/exams/:id/questions", handlers.Question.ListByExam)
		supervisorAPI.POST("/exams/:id/questions", handlers.Question.Add)
		supervisorAPI.PUT("/questions/:id", handlers.Question.Update)
		supervisorAPI.DELETE("/questions/:id", handlers.Question.Delete)

		// Attempt supervision
		supervisorAPI.POST("/participants/:id/reset", handlers.Exam.ResetParticipant)
		supervisorAPI.GET("/recordings/:ref", handlers.Exam.DownloadRecording)

		// Question paper upload
		supervisorAPI.POST("/media/papers", handlers.Media.UploadPaper)
	}

	return router
}
