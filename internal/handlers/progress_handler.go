package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// GetMyDashboard returns the student's rollups, recent attempts and open quizzes
// @Summary Student progress dashboard
// @Tags progress
// @Produce json
// @Success 200 {object} services.StudentDashboardResponse
// @Failure 403 {object} ErrorResponse
// @Router /progress/me [get]
func (h *ProgressHandler) GetMyDashboard(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	dashboard, err := h.progressService.Dashboard(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// GetMyDaily returns the student's daily rows, newest first
// @Summary Student daily progress
// @Tags progress
// @Produce json
// @Param limit query int false "Number of days"
// @Success 200 {array} models.DailyProgress
// @Router /progress/me/daily [get]
func (h *ProgressHandler) GetMyDaily(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	rows, err := h.progressService.Daily(c.Request.Context(), caller, h.parseIntQuery(c, "limit", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}
