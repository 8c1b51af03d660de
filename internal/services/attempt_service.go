package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	progress  ProgressService
	publisher events.EventPublisher
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, progress ProgressService, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		progress:  progress,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start opens the student's single attempt on the quiz. The unique index on
// (student, quiz) is what rejects a second start.
func (s *attemptService) Start(ctx context.Context, caller models.Principal, quizID uint) (*AttemptResponse, error) {
	student, err := requireStudent(caller, "quiz", quizID, "start")
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting quiz attempt",
		"quiz_id", quizID,
		"student_id", student.ID)

	if !models.IsActive(student) {
		return nil, fmt.Errorf("student %s: %w", student.ID, ErrInactiveAccount)
	}

	var (
		attempt *models.QuizAttempt
		quiz    *models.Quiz
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		// the principal may predate a deactivation, so read the flag again
		current, err := s.repo.User().GetByID(ctx, tx, student.ID)
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		if current.StudentProfile == nil || !current.StudentProfile.IsActive {
			return fmt.Errorf("student %s: %w", student.ID, ErrInactiveAccount)
		}

		// holds off question edits until the attempt row exists
		if _, err := s.repo.Quiz().GetForUpdate(ctx, tx, quizID); err != nil {
			return mapNotFound(err, ErrQuizNotFound)
		}
		quiz, err = s.repo.Quiz().GetByIDWithQuestions(ctx, tx, quizID)
		if err != nil {
			return mapNotFound(err, ErrQuizNotFound)
		}
		if !quiz.IsActive {
			return ErrQuizInactive
		}

		attempt = &models.QuizAttempt{
			StudentID:  student.ID,
			QuizID:     quiz.ID,
			Status:     models.AttemptInProgress,
			StartTime:  s.now(),
			TotalMarks: quiz.TotalMarks(),
		}
		if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateAttempt
			}
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"student_id", student.ID,
		"total_marks", attempt.TotalMarks)

	s.publish(ctx, events.NewEvent(events.AttemptStarted, events.AttemptStartedData{
		AttemptID:  attempt.ID,
		QuizID:     attempt.QuizID,
		StudentID:  attempt.StudentID,
		TotalMarks: attempt.TotalMarks,
		StartTime:  attempt.StartTime,
	}))

	resp := toAttemptResponse(attempt, quiz)
	return &resp, nil
}

// RecordAnswer upserts the answer for (attempt, question). Correctness and
// marks are taken from the question at write time.
func (s *attemptService) RecordAnswer(ctx context.Context, caller models.Principal, attemptID uint, req *RecordAnswerRequest) (*AnswerResponse, error) {
	student, err := requireStudent(caller, "attempt", attemptID, "answer")
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	selected, _ := models.ParseOption(req.SelectedAnswer)

	var answer *models.StudentAnswer
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt, err := s.ownedAttempt(ctx, tx, student.ID, attemptID, "answer")
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		question, err := s.repo.Question().GetByID(ctx, tx, req.QuestionID)
		if err != nil {
			return mapNotFound(err, ErrQuestionNotFound)
		}
		if question.QuizID != attempt.QuizID {
			return ErrQuestionNotInQuiz
		}

		// compare-and-set against a concurrent finalize
		active, err := s.repo.Attempt().TouchInProgress(ctx, tx, attempt.ID)
		if err != nil {
			return err
		}
		if !active {
			return ErrAttemptNotActive
		}

		answer = &models.StudentAnswer{
			AttemptID:      attempt.ID,
			QuestionID:     question.ID,
			SelectedAnswer: selected,
			IsCorrect:      question.IsCorrect(selected),
			Marks:          question.Marks,
			TimeTaken:      req.TimeTaken,
			AnsweredAt:     s.now(),
		}
		return s.repo.Answer().Upsert(ctx, tx, answer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Answer recorded",
		"attempt_id", attemptID,
		"question_id", req.QuestionID,
		"student_id", student.ID)

	return toAnswerResponse(answer), nil
}

// Finalize scores the attempt against the total marks snapshotted at start
// and recomputes the student's progress in the same transaction
func (s *attemptService) Finalize(ctx context.Context, caller models.Principal, attemptID uint) (*AttemptResponse, error) {
	student, err := requireStudent(caller, "attempt", attemptID, "submit")
	if err != nil {
		return nil, err
	}

	s.logger.Info("Submitting quiz attempt",
		"attempt_id", attemptID,
		"student_id", student.ID)

	var (
		attempt  *models.QuizAttempt
		quiz     *models.Quiz
		snapshot *ProgressSnapshot
	)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		attempt, err = s.ownedAttempt(ctx, tx, student.ID, attemptID, "submit")
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		quiz, err = s.repo.Quiz().GetByID(ctx, tx, attempt.QuizID)
		if err != nil {
			return mapNotFound(err, ErrQuizNotFound)
		}
		score, err := s.repo.Answer().SumCorrectMarks(ctx, tx, attempt.ID)
		if err != nil {
			return err
		}

		end := s.now()
		attempt.EndTime = &end
		attempt.TimeTaken = elapsedSeconds(attempt.StartTime, end)
		attempt.Score = score
		attempt.Percentage = models.Percentage(score, attempt.TotalMarks)

		completed, err := s.repo.Attempt().Complete(ctx, tx, attempt)
		if err != nil {
			return err
		}
		if !completed {
			return ErrAttemptNotActive
		}
		attempt.Status = models.AttemptCompleted

		snapshot, err = s.progress.RecomputeForAttempt(ctx, tx, attempt)
		if err != nil {
			return fmt.Errorf("failed to recompute progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	passed := attempt.IsPassed(quiz.PassPercentage)
	s.logger.Info("Quiz attempt completed",
		"attempt_id", attempt.ID,
		"student_id", student.ID,
		"score", attempt.Score,
		"total_marks", attempt.TotalMarks,
		"percentage", attempt.Percentage,
		"passed", passed)

	s.publishCompletion(ctx, attempt, passed, snapshot)

	resp := toAttemptResponse(attempt, quiz)
	return &resp, nil
}

func elapsedSeconds(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / time.Second)
}

// Result pairs every question, in presentation order, with the student's
// answer. A missing answer counts as incorrect with zero marks.
func (s *attemptService) Result(ctx context.Context, caller models.Principal, attemptID uint) (*ResultResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		return nil, mapNotFound(err, ErrAttemptNotFound)
	}
	if err := canViewAttempt(caller, attempt, "view result"); err != nil {
		return nil, err
	}
	if !attempt.IsCompleted() {
		return nil, ErrAttemptNotCompleted
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, attempt.QuizID)
	if err != nil {
		return nil, mapNotFound(err, ErrQuizNotFound)
	}
	answers, err := s.repo.Answer().ListByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	return buildResult(attempt, quiz, answers), nil
}

func buildResult(attempt *models.QuizAttempt, quiz *models.Quiz, answers []*models.StudentAnswer) *ResultResponse {
	byQuestion := make(map[uint]*models.StudentAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	result := &ResultResponse{
		Attempt:        toAttemptResponse(attempt, quiz),
		PassPercentage: quiz.PassPercentage,
		IsPassed:       attempt.IsPassed(quiz.PassPercentage),
		Items:          make([]ResultItem, 0, len(quiz.Questions)),
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		item := ResultItem{Question: toQuestionResponse(q, true)}

		answer, ok := byQuestion[q.ID]
		switch {
		case !ok:
			result.UnansweredCount++
		case answer.IsCorrect:
			result.CorrectCount++
		default:
			result.IncorrectCount++
		}
		if ok {
			item.Answer = toAnswerResponse(answer)
			item.Question.SelectedAnswer = answer.SelectedAnswer
			item.IsCorrect = answer.IsCorrect
			item.MarksAwarded = answer.AwardedMarks()
		}
		result.Items = append(result.Items, item)
	}
	result.TotalIncorrect = result.IncorrectCount + result.UnansweredCount
	return result
}

// ===== QUERIES =====

func (s *attemptService) ListMine(ctx context.Context, caller models.Principal, page, size int) (*AttemptListResponse, error) {
	student, err := requireStudent(caller, "attempts", nil, "list")
	if err != nil {
		return nil, err
	}
	page, size, offset := normalizePage(page, size)

	attempts, total, err := s.repo.Attempt().ListByStudent(ctx, nil, student.ID, repositories.AttemptFilter{
		Limit:  size,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return &AttemptListResponse{
		Attempts: toAttemptResponses(attempts),
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// Get shows the attempt with its questions and the student's selections.
// The answer key stays hidden from the student until the attempt completes.
func (s *attemptService) Get(ctx context.Context, caller models.Principal, attemptID uint) (*AttemptDetailResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		return nil, mapNotFound(err, ErrAttemptNotFound)
	}
	if err := canViewAttempt(caller, attempt, "view"); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, attempt.QuizID)
	if err != nil {
		return nil, mapNotFound(err, ErrQuizNotFound)
	}
	answers, err := s.repo.Answer().ListByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	selected := make(map[uint]models.OptionLetter, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedAnswer
	}

	reveal := attempt.IsCompleted() || models.IsStaff(caller)
	resp := &AttemptDetailResponse{
		Attempt:       toAttemptResponse(attempt, quiz),
		Questions:     make([]QuestionResponse, 0, len(quiz.Questions)),
		AnsweredCount: len(answers),
	}
	for i := range quiz.Questions {
		q := toQuestionResponse(&quiz.Questions[i], reveal)
		q.SelectedAnswer = selected[quiz.Questions[i].ID]
		resp.Questions = append(resp.Questions, q)
	}
	return resp, nil
}

// ===== HELPERS =====

func (s *attemptService) ownedAttempt(ctx context.Context, tx *gorm.DB, studentID string, attemptID uint, action string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, tx, attemptID)
	if err != nil {
		return nil, mapNotFound(err, ErrAttemptNotFound)
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", action, "not the attempt owner")
	}
	return attempt, nil
}

// canViewAttempt admits the attempt's student and staff
func canViewAttempt(caller models.Principal, attempt *models.QuizAttempt, action string) error {
	if caller == nil {
		return NewPermissionError("", attempt.ID, "attempt", action, "not authenticated")
	}
	if models.IsStaff(caller) || caller.UserID() == attempt.StudentID {
		return nil
	}
	return NewPermissionError(caller.UserID(), attempt.ID, "attempt", action, "not the attempt owner")
}

// publish never fails the request; delivery problems are only logged
func (s *attemptService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}

func (s *attemptService) publishCompletion(ctx context.Context, attempt *models.QuizAttempt, passed bool, snapshot *ProgressSnapshot) {
	s.publish(ctx, events.NewEvent(events.AttemptCompleted, events.AttemptCompletedData{
		AttemptID:  attempt.ID,
		QuizID:     attempt.QuizID,
		StudentID:  attempt.StudentID,
		Score:      attempt.Score,
		TotalMarks: attempt.TotalMarks,
		Percentage: attempt.Percentage,
		Passed:     passed,
		TimeTaken:  attempt.TimeTaken,
		EndTime:    *attempt.EndTime,
	}))

	if snapshot == nil || snapshot.Daily == nil || snapshot.Overall == nil {
		return
	}
	s.publish(ctx, events.NewEvent(events.ProgressUpdated, events.ProgressUpdatedData{
		StudentID:         attempt.StudentID,
		Date:              time.Time(snapshot.Daily.Date),
		DailyAttempted:    snapshot.Daily.QuizzesAttempted,
		DailyPercentage:   snapshot.Daily.AveragePercentage,
		OverallAttempted:  snapshot.Overall.TotalQuizzesAttempted,
		OverallPercentage: snapshot.Overall.OverallPercentage,
	}))
}
