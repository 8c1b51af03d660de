package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuizService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuizService {
	return &quizService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== QUIZ CRUD =====

func (s *quizService) Create(ctx context.Context, caller models.Principal, req *CreateQuizRequest) (*QuizResponse, error) {
	if err := requireAuthor(caller, "quiz", nil, "create"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		Title:          req.Title,
		Description:    req.Description,
		CreatedBy:      caller.UserID(),
		Difficulty:     models.DifficultyMedium,
		IsActive:       true,
		PassPercentage: models.DefaultPassPercentage,
	}
	if req.Difficulty != "" {
		quiz.Difficulty = models.DifficultyLevel(req.Difficulty)
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if req.PassPercentage != nil {
		quiz.PassPercentage = *req.PassPercentage
	}
	for i := range req.Questions {
		quiz.Questions = append(quiz.Questions, newQuestion(&req.Questions[i], i+1))
	}

	if err := s.repo.Quiz().Create(ctx, nil, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created",
		"quiz_id", quiz.ID,
		"created_by", quiz.CreatedBy,
		"questions", len(quiz.Questions))

	resp := toQuizResponse(quiz, models.QuizTotals{}, true, true)
	return &resp, nil
}

func newQuestion(req *QuestionRequest, order int) models.Question {
	correct, _ := models.ParseOption(req.CorrectAnswer)
	q := models.Question{
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: correct,
		Marks:         models.DefaultQuestionMarks,
		TimeLimit:     models.DefaultTimeLimit,
		Explanation:   req.Explanation,
		Order:         order,
	}
	if req.Marks != nil {
		q.Marks = *req.Marks
	}
	if req.TimeLimit != nil {
		q.TimeLimit = *req.TimeLimit
	}
	if req.Order != nil {
		q.Order = *req.Order
	}
	return q
}

// Get hides inactive quizzes and the answer key from students
func (s *quizService) Get(ctx context.Context, caller models.Principal, id uint) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrQuizNotFound)
	}

	student, isStudent := caller.(models.Student)
	if !isStudent {
		resp := toQuizResponse(quiz, models.QuizTotals{}, true, true)
		return &resp, nil
	}

	if !quiz.IsActive {
		return nil, ErrQuizNotFound
	}
	attempted := true
	if _, err := s.repo.Attempt().GetByStudentAndQuiz(ctx, nil, student.ID, quiz.ID); err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to check attempts: %w", err)
		}
		attempted = false
	}

	resp := toQuizResponse(quiz, models.QuizTotals{}, true, false)
	resp.HasAttempted = &attempted
	return &resp, nil
}

func (s *quizService) Update(ctx context.Context, caller models.Principal, id uint, req *UpdateQuizRequest) (*QuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var quiz *models.Quiz
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		quiz, err = s.repo.Quiz().GetByIDWithQuestions(ctx, tx, id)
		if err != nil {
			return mapNotFound(err, ErrQuizNotFound)
		}
		if err := requireQuizOwner(caller, quiz, "update"); err != nil {
			return err
		}

		if req.Title != nil {
			quiz.Title = *req.Title
		}
		if req.Description != nil {
			quiz.Description = *req.Description
		}
		if req.Difficulty != nil {
			quiz.Difficulty = models.DifficultyLevel(*req.Difficulty)
		}
		if req.IsActive != nil {
			quiz.IsActive = *req.IsActive
		}
		if req.PassPercentage != nil {
			quiz.PassPercentage = *req.PassPercentage
		}
		return s.repo.Quiz().Update(ctx, tx, quiz)
	})
	if err != nil {
		return nil, err
	}
	s.repo.Quiz().Evict(ctx, id)

	s.logger.Info("Quiz updated", "quiz_id", id, "user_id", caller.UserID())
	resp := toQuizResponse(quiz, models.QuizTotals{}, true, true)
	return &resp, nil
}

// Delete cascades to questions, attempts and answers
func (s *quizService) Delete(ctx context.Context, caller models.Principal, id uint) error {
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		quiz, err := s.repo.Quiz().GetByID(ctx, tx, id)
		if err != nil {
			return mapNotFound(err, ErrQuizNotFound)
		}
		if err := requireQuizOwner(caller, quiz, "delete"); err != nil {
			return err
		}
		return s.repo.Quiz().Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.repo.Quiz().Evict(ctx, id)

	s.logger.Info("Quiz deleted", "quiz_id", id, "user_id", caller.UserID())
	return nil
}

// List shows trainers their own quizzes, admins everything and students the
// active quizzes they have not attempted yet
func (s *quizService) List(ctx context.Context, caller models.Principal, page, size int) (*QuizListResponse, error) {
	page, size, offset := normalizePage(page, size)
	filter := repositories.QuizFilter{Limit: size, Offset: offset}

	switch v := caller.(type) {
	case models.Trainer:
		filter.CreatedBy = &v.ID
	case models.Student:
		filter.ActiveOnly = true
		filter.ExcludeAttemptedBy = &v.ID
	case models.Admin:
	default:
		return nil, NewPermissionError(callerID(caller), nil, "quizzes", "list", "unknown role")
	}

	quizzes, total, err := s.repo.Quiz().List(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	resp, err := s.summaries(ctx, quizzes)
	if err != nil {
		return nil, err
	}
	return &QuizListResponse{Quizzes: resp, Total: total, Page: page, Size: size}, nil
}

func (s *quizService) summaries(ctx context.Context, quizzes []*models.Quiz) ([]QuizResponse, error) {
	ids := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	totals, err := s.repo.Quiz().Totals(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz totals: %w", err)
	}

	out := make([]QuizResponse, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, toQuizResponse(q, totals[q.ID], false, false))
	}
	return out, nil
}

// ===== QUESTIONS =====

func (s *quizService) AddQuestion(ctx context.Context, caller models.Principal, quizID uint, req *QuestionRequest) (*QuestionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var question models.Question
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.ownedUnlocked(ctx, tx, caller, quizID, "adding a question"); err != nil {
			return err
		}

		maxOrder, err := s.repo.Question().MaxOrder(ctx, tx, quizID)
		if err != nil {
			return err
		}
		question = newQuestion(req, maxOrder+1)
		question.QuizID = quizID
		return s.repo.Question().Create(ctx, tx, &question)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question added", "quiz_id", quizID, "question_id", question.ID)
	resp := toQuestionResponse(&question, true)
	return &resp, nil
}

// UpdateQuestion allows text edits at any time; marks and the correct option
// are frozen once the quiz has attempts
func (s *quizService) UpdateQuestion(ctx context.Context, caller models.Principal, questionID uint, req *UpdateQuestionRequest) (*QuestionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var question *models.Question
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		question, err = s.repo.Question().GetByID(ctx, tx, questionID)
		if err != nil {
			return mapNotFound(err, ErrQuestionNotFound)
		}

		var correct models.OptionLetter
		if req.CorrectAnswer != nil {
			correct, _ = models.ParseOption(*req.CorrectAnswer)
		}
		structural := (req.Marks != nil && *req.Marks != question.Marks) ||
			(req.CorrectAnswer != nil && correct != question.CorrectAnswer)

		if structural {
			if _, err := s.ownedUnlocked(ctx, tx, caller, question.QuizID, "changing marks or the correct answer"); err != nil {
				return err
			}
		} else if _, err := s.owned(ctx, tx, caller, question.QuizID, "update"); err != nil {
			return err
		}

		applyQuestionUpdate(question, req, correct)
		return s.repo.Question().Update(ctx, tx, question)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question updated", "question_id", questionID, "user_id", caller.UserID())
	resp := toQuestionResponse(question, true)
	return &resp, nil
}

func applyQuestionUpdate(q *models.Question, req *UpdateQuestionRequest, correct models.OptionLetter) {
	if req.QuestionText != nil {
		q.QuestionText = *req.QuestionText
	}
	if req.OptionA != nil {
		q.OptionA = *req.OptionA
	}
	if req.OptionB != nil {
		q.OptionB = *req.OptionB
	}
	if req.OptionC != nil {
		q.OptionC = *req.OptionC
	}
	if req.OptionD != nil {
		q.OptionD = *req.OptionD
	}
	if req.CorrectAnswer != nil {
		q.CorrectAnswer = correct
	}
	if req.Marks != nil {
		q.Marks = *req.Marks
	}
	if req.TimeLimit != nil {
		q.TimeLimit = *req.TimeLimit
	}
	if req.Explanation != nil {
		q.Explanation = *req.Explanation
	}
	if req.Order != nil {
		q.Order = *req.Order
	}
}

func (s *quizService) DeleteQuestion(ctx context.Context, caller models.Principal, questionID uint) error {
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		question, err := s.repo.Question().GetByID(ctx, tx, questionID)
		if err != nil {
			return mapNotFound(err, ErrQuestionNotFound)
		}
		if _, err := s.ownedUnlocked(ctx, tx, caller, question.QuizID, "deleting a question"); err != nil {
			return err
		}
		return s.repo.Question().Delete(ctx, tx, questionID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Question deleted", "question_id", questionID, "user_id", caller.UserID())
	return nil
}

// ReorderQuestions renumbers the quiz's questions 1..n in the given order
func (s *quizService) ReorderQuestions(ctx context.Context, caller models.Principal, quizID uint, req *ReorderQuestionsRequest) (*QuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var quiz *models.Quiz
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		quiz, err = s.repo.Quiz().GetByIDWithQuestions(ctx, tx, quizID)
		if err != nil {
			return mapNotFound(err, ErrQuizNotFound)
		}
		if err := requireQuizOwner(caller, quiz, "reorder"); err != nil {
			return err
		}
		if !isPermutation(quiz.Questions, req.QuestionIDs) {
			return ErrInvalidOrder
		}

		for i, id := range req.QuestionIDs {
			if err := s.repo.Question().UpdateOrder(ctx, tx, id, i+1); err != nil {
				return err
			}
		}
		quiz, err = s.repo.Quiz().GetByIDWithQuestions(ctx, tx, quizID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Questions reordered", "quiz_id", quizID, "count", len(req.QuestionIDs))
	resp := toQuizResponse(quiz, models.QuizTotals{}, true, true)
	return &resp, nil
}

func isPermutation(questions []models.Question, ids []uint) bool {
	if len(questions) != len(ids) {
		return false
	}
	remaining := make(map[uint]bool, len(questions))
	for i := range questions {
		remaining[questions[i].ID] = true
	}
	for _, id := range ids {
		if !remaining[id] {
			return false
		}
		delete(remaining, id)
	}
	return true
}

// owned loads the quiz inside tx and checks the caller may edit it
func (s *quizService) owned(ctx context.Context, tx *gorm.DB, caller models.Principal, quizID uint, action string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, tx, quizID)
	if err != nil {
		return nil, mapNotFound(err, ErrQuizNotFound)
	}
	if err := requireQuizOwner(caller, quiz, action); err != nil {
		return nil, err
	}
	return quiz, nil
}

// ownedUnlocked additionally refuses structural edits once attempts exist.
// The quiz row stays locked until tx ends so no attempt can start between
// the check and the edit.
func (s *quizService) ownedUnlocked(ctx context.Context, tx *gorm.DB, caller models.Principal, quizID uint, edit string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetForUpdate(ctx, tx, quizID)
	if err != nil {
		return nil, mapNotFound(err, ErrQuizNotFound)
	}
	if err := requireQuizOwner(caller, quiz, "update"); err != nil {
		return nil, err
	}
	locked, err := s.repo.Quiz().HasAttempts(ctx, tx, quizID)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, NewQuizLockedError(quizID, edit)
	}
	return quiz, nil
}
