package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService   services.QuizService
	reportService services.ReportService
}

func NewQuizHandler(quizService services.QuizService, reportService services.ReportService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler:   NewBaseHandler(logger),
		quizService:   quizService,
		reportService: reportService,
	}
}

// CreateQuiz creates a quiz together with its questions
// @Summary Create quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quiz body services.CreateQuizRequest true "Quiz data"
// @Success 201 {object} services.QuizResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating quiz", "title", req.Title, "questions", len(req.Questions))

	quiz, err := h.quizService.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz returns a quiz. Students never see the answer key.
// @Summary Get quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// UpdateQuiz updates quiz metadata
// @Summary Update quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param quiz body services.UpdateQuizRequest true "Fields to change"
// @Success 200 {object} services.QuizResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.UpdateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// DeleteQuiz deletes a quiz with its questions and attempts
// @Summary Delete quiz
// @Tags quizzes
// @Param id path uint true "Quiz ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting quiz", "quiz_id", id)

	if err := h.quizService.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListQuizzes lists quizzes visible to the caller
// @Summary List quizzes
// @Tags quizzes
// @Produce json
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.QuizListResponse
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	quizzes, err := h.quizService.List(c.Request.Context(), caller, page, size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

// AddQuestion appends a question to a quiz
// @Summary Add question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param question body services.QuestionRequest true "Question data"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quizzes/{id}/questions [post]
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.QuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.quizService.AddQuestion(c.Request.Context(), caller, quizID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// ReorderQuestions renumbers a quiz's questions in the given order
// @Summary Reorder questions
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param order body services.ReorderQuestionsRequest true "Question ids in their new order"
// @Success 200 {object} services.QuizResponse
// @Failure 400 {object} ErrorResponse
// @Router /quizzes/{id}/questions/order [put]
func (h *QuizHandler) ReorderQuestions(c *gin.Context) {
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.ReorderQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quiz, err := h.quizService.ReorderQuestions(c.Request.Context(), caller, quizID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// UpdateQuestion changes a question
// @Summary Update question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Fields to change"
// @Success 200 {object} services.QuestionResponse
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id} [put]
func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.UpdateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.quizService.UpdateQuestion(c.Request.Context(), caller, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question
// @Summary Delete question
// @Tags questions
// @Param id path uint true "Question ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.quizService.DeleteQuestion(c.Request.Context(), caller, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportResults streams the quiz results workbook
// @Summary Export quiz results
// @Tags quizzes
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Quiz ID"
// @Success 200 {file} file
// @Router /quizzes/{id}/results/export [get]
func (h *QuizHandler) ExportResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting quiz results", "quiz_id", id)

	export, err := h.reportService.ExportQuizResults(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendExport(c, export)
}
