package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type HandlerManager struct {
	serviceManager  services.ServiceManager
	quizHandler     *QuizHandler
	attemptHandler  *AttemptHandler
	progressHandler *ProgressHandler
	trainerHandler  *TrainerHandler
	accountHandler  *AccountHandler
	authMiddleware  *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:  serviceManager,
		quizHandler:     NewQuizHandler(serviceManager.Quiz(), serviceManager.Report(), logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), logger),
		progressHandler: NewProgressHandler(serviceManager.Progress(), logger),
		trainerHandler:  NewTrainerHandler(serviceManager.Trainer(), serviceManager.Account(), serviceManager.Report(), logger),
		accountHandler:  NewAccountHandler(serviceManager.Account(), serviceManager.Progress(), validator, logger),
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	staff := hm.authMiddleware.RequireRoleMiddleware(models.RoleTrainer)
	student := hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent)
	admin := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		v1.GET("/me", hm.accountHandler.GetMe)
		v1.PUT("/me/profile", hm.accountHandler.UpdateMyProfile)

		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.POST("", staff, hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", staff, hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", staff, hm.quizHandler.DeleteQuiz)
			quizzes.POST("/:id/questions", staff, hm.quizHandler.AddQuestion)
			quizzes.PUT("/:id/questions/order", staff, hm.quizHandler.ReorderQuestions)
			quizzes.GET("/:id/results/export", staff, hm.quizHandler.ExportResults)

			quizzes.POST("/:id/attempts", student, hm.attemptHandler.StartAttempt)
		}

		questions := v1.Group("/questions", staff)
		{
			questions.PUT("/:id", hm.quizHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.quizHandler.DeleteQuestion)
		}

		// ownership is checked by the service so staff can read results too
		attempts := v1.Group("/attempts")
		{
			attempts.GET("", student, hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PUT("/:id/answers", student, hm.attemptHandler.RecordAnswer)
			attempts.POST("/:id/submit", student, hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetResult)
		}

		progress := v1.Group("/progress", student)
		{
			progress.GET("/me", hm.progressHandler.GetMyDashboard)
			progress.GET("/me/daily", hm.progressHandler.GetMyDaily)
		}

		trainer := v1.Group("/trainer", staff)
		{
			trainer.GET("/dashboard", hm.trainerHandler.GetDashboard)
			trainer.GET("/students", hm.trainerHandler.ListStudents)
			trainer.POST("/students/:id/assign", hm.trainerHandler.AssignStudent)
			trainer.POST("/students/:id/toggle", hm.trainerHandler.ToggleStudent)
			trainer.GET("/students/:id/performance", hm.trainerHandler.GetStudentPerformance)
			trainer.GET("/students/:id/performance/export", hm.trainerHandler.ExportStudentPerformance)
		}

		admins := v1.Group("/admin", admin)
		{
			admins.GET("/trainers", hm.accountHandler.ListTrainers)
			admins.PUT("/trainers/:id/active", hm.accountHandler.SetTrainerActive)
			admins.PUT("/students/:id/active", hm.accountHandler.SetStudentActive)
			admins.POST("/students/:id/progress/rebuild", hm.accountHandler.RebuildProgress)
		}
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "quiz-service",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "quiz-service",
	})
}
