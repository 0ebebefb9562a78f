package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/classhub/lms-service/internal/models"
	"github.com/classhub/lms-service/internal/services"
	"github.com/classhub/lms-service/internal/utils"
	"github.com/classhub/lms-service/internal/validator"
)

type HandlerManager struct {
	quizHandler         *QuizHandler
	questionHandler     *QuestionHandler
	attemptHandler      *AttemptHandler
	batchHandler        *BatchHandler
	attendanceHandler   *AttendanceHandler
	notificationHandler *NotificationHandler
	authMiddleware      *JWTAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	jwtSecret string,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:         NewQuizHandler(serviceManager.Quiz(), validator, logger),
		questionHandler:     NewQuestionHandler(serviceManager.Question(), validator, logger),
		attemptHandler:      NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		batchHandler:        NewBatchHandler(serviceManager.Batch(), validator, logger),
		attendanceHandler:   NewAttendanceHandler(serviceManager.Attendance(), validator, logger),
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), serviceManager.NotificationEvent(), logger),
		authMiddleware:      NewJWTAuthMiddleware(jwtSecret, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Quiz routes
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", staffOnly, hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", staffOnly, hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", staffOnly, hm.quizHandler.DeleteQuiz)
			quizzes.PUT("/:id/status", staffOnly, hm.quizHandler.UpdateQuizStatus)
			quizzes.POST("/:id/publish", staffOnly, hm.quizHandler.PublishQuiz)
			quizzes.POST("/:id/archive", staffOnly, hm.quizHandler.ArchiveQuiz)
			quizzes.GET("/:id/stats", staffOnly, hm.quizHandler.GetQuizStats)

			quizzes.GET("/mine", staffOnly, hm.quizHandler.ListOwnQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/questions", hm.quizHandler.GetQuizWithQuestions)

			// Question management under a quiz
			quizzes.POST("/:id/questions", staffOnly, hm.questionHandler.CreateQuestion)
			quizzes.POST("/:id/questions/batch", staffOnly, hm.questionHandler.CreateQuestionsBatch)
			quizzes.GET("/:id/question-list", staffOnly, hm.questionHandler.ListQuestionsByQuiz)
			quizzes.PUT("/:id/questions/reorder", staffOnly, hm.questionHandler.ReorderQuestions)
		}

		// Question routes
		questions := v1.Group("/questions")
		questions.Use(staffOnly)
		{
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.POST("/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.SubmitAnswer)
			attempts.GET("/mine", hm.attemptHandler.ListOwnAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetAttemptResult)

			// Quiz-specific routes
			attempts.GET("/can-start/:quiz_id", hm.attemptHandler.CheckAttemptEligibility)
			attempts.GET("/quiz/:quiz_id", staffOnly, hm.attemptHandler.ListAttemptsByQuiz)
		}

		// Batch routes
		batches := v1.Group("/batches")
		{
			batches.POST("", staffOnly, hm.batchHandler.CreateBatch)
			batches.PUT("/:id", staffOnly, hm.batchHandler.UpdateBatch)
			batches.DELETE("/:id", staffOnly, hm.batchHandler.DeleteBatch)
			batches.GET("/mine", staffOnly, hm.batchHandler.ListOwnBatches)
			batches.GET("/enrolled", hm.batchHandler.ListStudentBatches)
			batches.GET("/:id", hm.batchHandler.GetBatch)
			batches.GET("/:id/quizzes", hm.quizHandler.ListQuizzesByBatch)

			// Enrollment management
			batches.POST("/:id/enrollments", staffOnly, hm.batchHandler.EnrollStudent)
			batches.DELETE("/:id/enrollments/:student_id", staffOnly, hm.batchHandler.UnenrollStudent)
			batches.GET("/:id/enrollments", staffOnly, hm.batchHandler.GetEnrollments)

			// Attendance
			batches.POST("/:id/attendance", staffOnly, hm.attendanceHandler.RecordAttendance)
			batches.GET("/:id/attendance", staffOnly, hm.attendanceHandler.GetAttendanceByDate)
			batches.GET("/:id/attendance/stats", staffOnly, hm.attendanceHandler.GetAttendanceStats)
			batches.GET("/:id/attendance/:student_id", hm.attendanceHandler.GetStudentAttendance)
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", hm.notificationHandler.ListNotifications)
			notifications.GET("/unread-count", hm.notificationHandler.CountUnread)
			notifications.PUT("/:id/read", hm.notificationHandler.MarkRead)
			notifications.PUT("/read-all", hm.notificationHandler.MarkAllRead)
			notifications.POST("/broadcast", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.notificationHandler.Broadcast)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "lms-service",
		})
	})
}
