package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

var testAdmin = models.Admin{ID: "admin-1"}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	clock     *fakeClock

	accounts AccountService
	quizzes  QuizService
	attempts AttemptService
	progress ProgressService
	trainers TrainerService
	reports  ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvIn(t, time.UTC)
}

// newTestEnvIn buckets progress days in loc. The clock starts on
// 2025-03-10 09:00 UTC.
func newTestEnvIn(t *testing.T, loc *time.Location) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: testutil.OpenTestDB(t)})
	v := validator.New()
	publisher := events.NewMockEventPublisher(logger)
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	progress := NewProgressService(repo, logger, loc)
	attempts := NewAttemptService(repo, logger, v, progress, publisher).(*attemptService)
	attempts.now = clock.Now
	trainers := NewTrainerService(repo, logger, progress)

	return &testEnv{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		accounts:  NewAccountService(repo, logger, v),
		quizzes:   NewQuizService(repo, logger, v),
		attempts:  attempts,
		progress:  progress,
		trainers:  trainers,
		reports:   NewReportService(repo, logger, trainers),
	}
}

func (e *testEnv) provision(t *testing.T, id string, role models.UserRole) *models.User {
	t.Helper()
	user, err := e.accounts.Provision(context.Background(), &Identity{
		ID:       id,
		Username: id,
		FullName: "User " + id,
		Email:    id + "@example.com",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("provision %s: %v", id, err)
	}
	return user
}

func (e *testEnv) student(t *testing.T, id string) models.Student {
	t.Helper()
	e.provision(t, id, models.RoleStudent)
	return e.principal(t, id).(models.Student)
}

// trainer provisions an account and activates it
func (e *testEnv) trainer(t *testing.T, id string) models.Trainer {
	t.Helper()
	e.provision(t, id, models.RoleTrainer)
	if _, err := e.accounts.SetTrainerActive(context.Background(), testAdmin, id, true); err != nil {
		t.Fatalf("activate trainer %s: %v", id, err)
	}
	return e.principal(t, id).(models.Trainer)
}

// principal reloads the caller so flags changed by other calls are visible
func (e *testEnv) principal(t *testing.T, id string) models.Principal {
	t.Helper()
	p, err := e.accounts.Principal(context.Background(), id)
	if err != nil {
		t.Fatalf("principal %s: %v", id, err)
	}
	return p
}

type questionDef struct {
	marks   int
	correct string
}

func (e *testEnv) quiz(t *testing.T, author models.Principal, pass int, questions ...questionDef) *QuizResponse {
	t.Helper()
	req := &CreateQuizRequest{
		Title:          "Quiz",
		PassPercentage: &pass,
	}
	for _, q := range questions {
		marks := q.marks
		req.Questions = append(req.Questions, QuestionRequest{
			QuestionText:  "Question",
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectAnswer: q.correct,
			Marks:         &marks,
		})
	}
	quiz, err := e.quizzes.Create(context.Background(), author, req)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func (e *testEnv) start(t *testing.T, student models.Principal, quizID uint) *AttemptResponse {
	t.Helper()
	attempt, err := e.attempts.Start(context.Background(), student, quizID)
	if err != nil {
		t.Fatalf("start quiz %d: %v", quizID, err)
	}
	return attempt
}

func (e *testEnv) answer(t *testing.T, student models.Principal, attemptID, questionID uint, option string) *AnswerResponse {
	t.Helper()
	answer, err := e.attempts.RecordAnswer(context.Background(), student, attemptID, &RecordAnswerRequest{
		QuestionID:     questionID,
		SelectedAnswer: option,
	})
	if err != nil {
		t.Fatalf("answer question %d: %v", questionID, err)
	}
	return answer
}

func (e *testEnv) finalize(t *testing.T, student models.Principal, attemptID uint) *AttemptResponse {
	t.Helper()
	attempt, err := e.attempts.Finalize(context.Background(), student, attemptID)
	if err != nil {
		t.Fatalf("finalize attempt %d: %v", attemptID, err)
	}
	return attempt
}

// take runs a whole attempt. Options are matched to questions by order, an
// empty option leaves the question unanswered.
func (e *testEnv) take(t *testing.T, student models.Principal, quiz *QuizResponse, took time.Duration, options ...string) *AttemptResponse {
	t.Helper()
	attempt := e.start(t, student, quiz.ID)
	for i, opt := range options {
		if opt != "" {
			e.answer(t, student, attempt.ID, quiz.Questions[i].ID, opt)
		}
	}
	e.clock.Advance(took)
	return e.finalize(t, student, attempt.ID)
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
