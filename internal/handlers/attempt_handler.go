package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt starts the caller's single attempt at a quiz
// @Summary Start quiz attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 201 {object} services.AttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quizzes/{id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting quiz attempt", "quiz_id", quizID)

	attempt, err := h.attemptService.Start(c.Request.Context(), caller, quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// ListMyAttempts lists the caller's attempts, newest first
// @Summary List my attempts
// @Tags attempts
// @Produce json
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.AttemptListResponse
// @Router /attempts [get]
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	attempts, err := h.attemptService.ListMine(c.Request.Context(), caller, page, size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// GetAttempt returns an attempt with its questions and the caller's selections
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptDetailResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// RecordAnswer stores or overwrites the answer to one question
// @Summary Record answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param answer body services.RecordAnswerRequest true "Answer"
// @Success 200 {object} services.AnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/answers [put]
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.RecordAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	answer, err := h.attemptService.RecordAnswer(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// SubmitAttempt scores and completes an attempt
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting quiz attempt", "attempt_id", id)

	attempt, err := h.attemptService.Finalize(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetResult returns the per-question breakdown of a completed attempt
// @Summary Get attempt result
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.ResultResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/result [get]
func (h *AttemptHandler) GetResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Result(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
