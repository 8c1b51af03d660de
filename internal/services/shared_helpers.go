package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage returns a 1-based page, a bounded size and the row offset
func normalizePage(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, (page - 1) * size
}

// ===== ACCESS CHECKS =====

func callerID(p models.Principal) string {
	if p == nil {
		return ""
	}
	return p.UserID()
}

// requireStudent narrows the caller to an active student
func requireStudent(p models.Principal, resource string, resourceID interface{}, action string) (models.Student, error) {
	student, ok := p.(models.Student)
	if !ok {
		return models.Student{}, NewPermissionError(callerID(p), resourceID, resource, action, "only students can do this")
	}
	return student, nil
}

// requireAuthor admits admins and active trainers
func requireAuthor(p models.Principal, resource string, resourceID interface{}, action string) error {
	switch v := p.(type) {
	case models.Admin:
		return nil
	case models.Trainer:
		if !v.Active {
			return fmt.Errorf("trainer %s: %w", v.ID, ErrInactiveAccount)
		}
		return nil
	}
	return NewPermissionError(callerID(p), resourceID, resource, action, "trainer or admin role required")
}

func requireAdmin(p models.Principal, resource string, resourceID interface{}, action string) error {
	if _, ok := p.(models.Admin); ok {
		return nil
	}
	return NewPermissionError(callerID(p), resourceID, resource, action, "admin role required")
}

func requireStaff(p models.Principal, resource string, resourceID interface{}, action string) error {
	if p != nil && models.IsStaff(p) {
		return nil
	}
	return NewPermissionError(callerID(p), resourceID, resource, action, "trainer or admin role required")
}

// requireQuizOwner admits admins and the trainer who created the quiz
func requireQuizOwner(p models.Principal, quiz *models.Quiz, action string) error {
	if err := requireAuthor(p, "quiz", quiz.ID, action); err != nil {
		return err
	}
	if _, ok := p.(models.Admin); ok {
		return nil
	}
	if quiz.CreatedBy != p.UserID() {
		return NewPermissionError(p.UserID(), quiz.ID, "quiz", action, "not the quiz owner")
	}
	return nil
}

// canViewStudent admits the student, their assigned trainer and admins
func canViewStudent(p models.Principal, student models.Student) bool {
	switch v := p.(type) {
	case models.Admin:
		return true
	case models.Trainer:
		trainerID, ok := models.AssignedTrainer(student)
		return ok && trainerID == v.ID
	case models.Student:
		return v.ID == student.ID
	}
	return false
}

// ===== ERROR TRANSLATION =====

func mapNotFound(err error, notFound error) error {
	if repositories.IsNotFoundError(err) {
		return notFound
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || repositories.IsNotFoundError(err)
}

// ===== RESPONSE MAPPING =====

func toQuestionResponse(q *models.Question, reveal bool) QuestionResponse {
	resp := QuestionResponse{
		ID:           q.ID,
		QuizID:       q.QuizID,
		QuestionText: q.QuestionText,
		OptionA:      q.OptionA,
		OptionB:      q.OptionB,
		OptionC:      q.OptionC,
		OptionD:      q.OptionD,
		Marks:        q.Marks,
		TimeLimit:    q.TimeLimit,
		Order:        q.Order,
	}
	if reveal {
		resp.CorrectAnswer = q.CorrectAnswer
		resp.Explanation = q.Explanation
	}
	return resp
}

func toQuizResponse(quiz *models.Quiz, totals models.QuizTotals, withQuestions, reveal bool) QuizResponse {
	resp := QuizResponse{
		ID:             quiz.ID,
		Title:          quiz.Title,
		Description:    quiz.Description,
		CreatedBy:      quiz.CreatedBy,
		Difficulty:     quiz.Difficulty,
		IsActive:       quiz.IsActive,
		PassPercentage: quiz.PassPercentage,
		TotalQuestions: totals.TotalQuestions,
		TotalMarks:     totals.TotalMarks,
		CreatedAt:      quiz.CreatedAt,
		UpdatedAt:      quiz.UpdatedAt,
	}
	if withQuestions {
		resp.TotalQuestions = quiz.TotalQuestions()
		resp.TotalMarks = quiz.TotalMarks()
		resp.Questions = make([]QuestionResponse, 0, len(quiz.Questions))
		for i := range quiz.Questions {
			resp.Questions = append(resp.Questions, toQuestionResponse(&quiz.Questions[i], reveal))
		}
	}
	return resp
}

// toAttemptResponse fills is_passed only for completed attempts with a known quiz
func toAttemptResponse(a *models.QuizAttempt, quiz *models.Quiz) AttemptResponse {
	resp := AttemptResponse{
		ID:         a.ID,
		QuizID:     a.QuizID,
		StudentID:  a.StudentID,
		Status:     a.Status,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		TimeTaken:  a.TimeTaken,
		Score:      a.Score,
		TotalMarks: a.TotalMarks,
		Percentage: a.Percentage,
	}
	if quiz == nil {
		quiz = a.Quiz
	}
	if quiz != nil {
		resp.QuizTitle = quiz.Title
		if a.IsCompleted() {
			passed := a.IsPassed(quiz.PassPercentage)
			resp.IsPassed = &passed
		}
	}
	return resp
}

func toAttemptResponses(attempts []*models.QuizAttempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, toAttemptResponse(a, nil))
	}
	return out
}

func toAnswerResponse(a *models.StudentAnswer) *AnswerResponse {
	return &AnswerResponse{
		AttemptID:      a.AttemptID,
		QuestionID:     a.QuestionID,
		SelectedAnswer: a.SelectedAnswer,
		IsCorrect:      a.IsCorrect,
		TimeTaken:      a.TimeTaken,
		AnsweredAt:     a.AnsweredAt,
	}
}
