package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type AccountHandler struct {
	BaseHandler
	accountService  services.AccountService
	progressService services.ProgressService
	validator       *validator.Validator
}

func NewAccountHandler(
	accountService services.AccountService,
	progressService services.ProgressService,
	validator *validator.Validator,
	logger utils.Logger,
) *AccountHandler {
	return &AccountHandler{
		BaseHandler:     NewBaseHandler(logger),
		accountService:  accountService,
		progressService: progressService,
		validator:       validator,
	}
}

// GetMe returns the caller's account with its profile
// @Summary Current account
// @Tags accounts
// @Produce json
// @Success 200 {object} models.User
// @Router /me [get]
func (h *AccountHandler) GetMe(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	user, err := h.accountService.Get(c.Request.Context(), caller.UserID())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMyProfile updates the caller's profile fields
// @Summary Update profile
// @Tags accounts
// @Accept json
// @Produce json
// @Param profile body services.ProfileUpdateRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Router /me/profile [put]
func (h *AccountHandler) UpdateMyProfile(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.ProfileUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.accountService.UpdateProfile(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListTrainers lists every trainer account
// @Summary List trainers
// @Tags admin
// @Produce json
// @Success 200 {array} models.User
// @Router /admin/trainers [get]
func (h *AccountHandler) ListTrainers(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	trainers, err := h.accountService.ListTrainers(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, trainers)
}

// SetTrainerActive activates or deactivates a trainer
// @Summary Set trainer active
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Trainer ID"
// @Param body body validator.SetActiveRequest true "Active flag"
// @Success 200 {object} models.User
// @Router /admin/trainers/{id}/active [put]
func (h *AccountHandler) SetTrainerActive(c *gin.Context) {
	h.setActive(c, models.RoleTrainer)
}

// SetStudentActive activates or deactivates a student
// @Summary Set student active
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param body body validator.SetActiveRequest true "Active flag"
// @Success 200 {object} models.User
// @Router /admin/students/{id}/active [put]
func (h *AccountHandler) SetStudentActive(c *gin.Context) {
	h.setActive(c, models.RoleStudent)
}

func (h *AccountHandler) setActive(c *gin.Context, role models.UserRole) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req validator.SetActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Setting account active flag", "target_id", id, "role", role, "active", *req.IsActive)

	var (
		user *models.User
		err  error
	)
	if role == models.RoleTrainer {
		user, err = h.accountService.SetTrainerActive(c.Request.Context(), caller, id, *req.IsActive)
	} else {
		user, err = h.accountService.SetStudentActive(c.Request.Context(), caller, id, *req.IsActive)
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// RebuildProgress recomputes every daily row and the overall row of a student
// @Summary Rebuild student progress
// @Tags admin
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} services.RebuildResult
// @Router /admin/students/{id}/progress/rebuild [post]
func (h *AccountHandler) RebuildProgress(c *gin.Context) {
	id := h.parseStringIDParam(c, "id")
	if id == "" {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Rebuilding student progress", "student_id", id)

	result, err := h.progressService.RebuildProgress(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
