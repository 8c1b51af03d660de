package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// Context keys set by the auth middleware
const (
	ctxUserID    = "user_id"
	ctxUserRole  = "user_role"
	ctxPrincipal = "principal"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries what every handler needs: request logging, parameter
// parsing and the service error mapping
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	if uid := c.GetString(ctxUserID); uid != "" {
		args = append(args, "user_id", uid)
	}
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.FullPath())
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

// principal returns the authenticated caller or writes 401
func (h *BaseHandler) principal(c *gin.Context) (models.Principal, bool) {
	p, err := GetPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Details: err.Error(),
		})
		return nil, false
	}
	return p, true
}

// parseIDParam writes 400 and returns 0 when the parameter is not a positive id
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		details := "must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: details,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseStringIDParam(c *gin.Context, param string) string {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
	}
	return id
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return defaultValue
	}
	return value
}

func (h *BaseHandler) parseBoolQueryPtr(c *gin.Context, param string) *bool {
	value, err := strconv.ParseBool(c.Query(param))
	if err != nil {
		return nil
	}
	return &value
}

// bindJSON writes 400 when the body is not valid JSON for req
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// sendExport streams a generated file as an attachment
func (h *BaseHandler) sendExport(c *gin.Context, export *services.Export) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// handleServiceError maps the service error taxonomy onto HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, services.ErrQuizLocked) {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
	case errors.Is(err, services.ErrInactiveAccount):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Account is inactive"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: capitalize(err.Error())})
	case errors.Is(err, services.ErrDuplicateAttempt):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Quiz already attempted"})
	case errors.Is(err, services.ErrQuizLocked):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Quiz is locked"})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Invalid state",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
