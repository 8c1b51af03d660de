package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type TrainerHandler struct {
	BaseHandler
	trainerService services.TrainerService
	accountService services.AccountService
	reportService  services.ReportService
}

func NewTrainerHandler(
	trainerService services.TrainerService,
	accountService services.AccountService,
	reportService services.ReportService,
	logger utils.Logger,
) *TrainerHandler {
	return &TrainerHandler{
		BaseHandler:    NewBaseHandler(logger),
		trainerService: trainerService,
		accountService: accountService,
		reportService:  reportService,
	}
}

// GetDashboard returns the trainer's summary
// @Summary Trainer dashboard
// @Tags trainer
// @Produce json
// @Success 200 {object} services.TrainerDashboardResponse
// @Router /trainer/dashboard [get]
func (h *TrainerHandler) GetDashboard(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	dashboard, err := h.trainerService.Dashboard(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// ListStudents lists the trainer's students, or the unassigned pool with assigned=false
// @Summary List students
// @Tags trainer
// @Produce json
// @Param assigned query bool false "false lists unassigned students"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.StudentListResponse
// @Router /trainer/students [get]
func (h *TrainerHandler) ListStudents(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	query := services.StudentQuery{
		Assigned: h.parseBoolQueryPtr(c, "assigned"),
		Page:     h.parseIntQuery(c, "page", 1),
		Size:     h.parseIntQuery(c, "size", 20),
	}

	students, err := h.accountService.ListStudents(c.Request.Context(), caller, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// AssignStudent assigns a student to the calling trainer. Admins name the trainer in the body.
// @Summary Assign student
// @Tags trainer
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param body body services.AssignStudentRequest false "Trainer to assign to (admin only)"
// @Success 200 {object} models.User
// @Failure 422 {object} ErrorResponse
// @Router /trainer/students/{id}/assign [post]
func (h *TrainerHandler) AssignStudent(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "id")
	if studentID == "" {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req *services.AssignStudentRequest
	if c.Request.ContentLength != 0 {
		req = &services.AssignStudentRequest{}
		if !h.bindJSON(c, req) {
			return
		}
	}

	h.LogRequest(c, "Assigning student", "student_id", studentID)

	user, err := h.accountService.AssignStudent(c.Request.Context(), caller, studentID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ToggleStudent flips an assigned student's active flag
// @Summary Toggle student active
// @Tags trainer
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} models.User
// @Failure 403 {object} ErrorResponse
// @Router /trainer/students/{id}/toggle [post]
func (h *TrainerHandler) ToggleStudent(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "id")
	if studentID == "" {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	user, err := h.accountService.ToggleStudentActive(c.Request.Context(), caller, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetStudentPerformance returns a student's rollups and attempts
// @Summary Student performance
// @Tags trainer
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} services.StudentPerformanceResponse
// @Router /trainer/students/{id}/performance [get]
func (h *TrainerHandler) GetStudentPerformance(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "id")
	if studentID == "" {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	performance, err := h.trainerService.StudentPerformance(c.Request.Context(), caller, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, performance)
}

// ExportStudentPerformance streams the student performance workbook
// @Summary Export student performance
// @Tags trainer
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Router /trainer/students/{id}/performance/export [get]
func (h *TrainerHandler) ExportStudentPerformance(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "id")
	if studentID == "" {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	export, err := h.reportService.ExportStudentPerformance(c.Request.Context(), caller, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendExport(c, export)
}
