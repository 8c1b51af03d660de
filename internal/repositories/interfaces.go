package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== FILTERS =====

type StudentFilter struct {
	AssignedTrainerID *string
	Unassigned        bool
	IsActive          *bool
	Limit             int
	Offset            int
}

type QuizFilter struct {
	CreatedBy          *string
	ActiveOnly         bool
	ExcludeAttemptedBy *string
	Limit              int
	Offset             int
}

type AttemptFilter struct {
	Status *models.AttemptStatus
	Limit  int
	Offset int
}

// ===== REPOSITORIES =====

type UserRepository interface {
	// Create inserts the user and whichever profile is attached
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	UpdateStudentProfile(ctx context.Context, tx *gorm.DB, profile *models.StudentProfile) error
	UpdateTrainerProfile(ctx context.Context, tx *gorm.DB, profile *models.TrainerProfile) error
	ListStudents(ctx context.Context, tx *gorm.DB, filter StudentFilter) ([]*models.User, int64, error)
	CountStudents(ctx context.Context, tx *gorm.DB, filter StudentFilter) (int64, error)
	ListTrainers(ctx context.Context, tx *gorm.DB) ([]*models.User, error)
	// Evict drops the cached copy; call it after the writing transaction commits
	Evict(ctx context.Context, id string)
}

type QuizRepository interface {
	// Create inserts the quiz together with its questions
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	// Delete removes the quiz with its questions, attempts and answers
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filter QuizFilter) ([]*models.Quiz, int64, error)
	Totals(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]models.QuizTotals, error)
	HasAttempts(ctx context.Context, tx *gorm.DB, quizID uint) (bool, error)
	// GetForUpdate locks the quiz row until tx ends
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Evict(ctx context.Context, id uint)
	CountByCreator(ctx context.Context, tx *gorm.DB, creatorID string) (int64, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	// ListByQuiz returns questions in presentation order
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error)
	MaxOrder(ctx context.Context, tx *gorm.DB, quizID uint) (int, error)
	UpdateOrder(ctx context.Context, tx *gorm.DB, id uint, order int) error
}

type AttemptRepository interface {
	// Create returns ErrDuplicateKey when the student already has an attempt on the quiz
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)
	GetByStudentAndQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (*models.QuizAttempt, error)
	// TouchInProgress bumps updated_at only while the attempt is in progress.
	// It reports false when the attempt is in any other state.
	TouchInProgress(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	// Complete writes the final figures only while the attempt is in progress
	Complete(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) (bool, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filter AttemptFilter) ([]*models.QuizAttempt, int64, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filter AttemptFilter) ([]*models.QuizAttempt, error)
	ListRecentByQuizCreator(ctx context.Context, tx *gorm.DB, creatorID string, limit int) ([]*models.QuizAttempt, error)
	CountByQuizCreator(ctx context.Context, tx *gorm.DB, creatorID string) (int64, error)
	ListStudentIDsByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]string, error)
	// CompletedOutcomes returns the student's completed attempts whose start
	// time falls in [from, to). Zero bounds are open.
	CompletedOutcomes(ctx context.Context, tx *gorm.DB, studentID string, from, to time.Time) ([]models.AttemptOutcome, error)
}

type AnswerRepository interface {
	// Upsert writes the answer keyed by (attempt, question)
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error
	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.StudentAnswer, error)
	ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.StudentAnswer, error)
	CountByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error)
	SumCorrectMarks(ctx context.Context, tx *gorm.DB, attemptID uint) (int, error)
}

type ProgressRepository interface {
	// LockStudent serialises rollup recomputation for one student within tx
	LockStudent(ctx context.Context, tx *gorm.DB, studentID string) error
	UpsertDaily(ctx context.Context, tx *gorm.DB, progress *models.DailyProgress) error
	UpsertOverall(ctx context.Context, tx *gorm.DB, progress *models.OverallProgress) error
	GetDaily(ctx context.Context, tx *gorm.DB, studentID string, day time.Time) (*models.DailyProgress, error)
	ListDaily(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]*models.DailyProgress, error)
	GetOverall(ctx context.Context, tx *gorm.DB, studentID string) (*models.OverallProgress, error)
}
