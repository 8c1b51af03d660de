package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

// Attempts are not cached: their state changes on every answer
func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// Create relies on idx_attempt_student_quiz to reject a second attempt
func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := getDB(a.db, tx)
	return translateError(db.WithContext(ctx).Create(attempt).Error, "create attempt")
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := getDB(a.db, tx).WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translateError(err, "get attempt")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByStudentAndQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := getDB(a.db, tx).WithContext(ctx).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		First(&attempt).Error
	if err != nil {
		return nil, translateError(err, "get attempt by student and quiz")
	}
	return &attempt, nil
}

// TouchInProgress doubles as a row lock on postgres, serialising answers
// against a concurrent finalize
func (a *AttemptPostgreSQL) TouchInProgress(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	res := getDB(a.db, tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return false, translateError(res.Error, "touch attempt")
	}
	return res.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) Complete(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) (bool, error) {
	res := getDB(a.db, tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":      models.AttemptCompleted,
			"end_time":    attempt.EndTime,
			"time_taken":  attempt.TimeTaken,
			"score":       attempt.Score,
			"total_marks": attempt.TotalMarks,
			"percentage":  attempt.Percentage,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translateError(res.Error, "complete attempt")
	}
	return res.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filter repositories.AttemptFilter) ([]*models.QuizAttempt, int64, error) {
	query := getDB(a.db, tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("student_id = ?", studentID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count attempts")
	}

	var attempts []*models.QuizAttempt
	query = applyPagination(query.Preload("Quiz").Order("start_time DESC, id DESC"), filter.Limit, filter.Offset)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, translateError(err, "list attempts")
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filter repositories.AttemptFilter) ([]*models.QuizAttempt, error) {
	query := getDB(a.db, tx).WithContext(ctx).
		Where("quiz_id = ?", quizID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var attempts []*models.QuizAttempt
	query = applyPagination(query.Order("start_time ASC, id ASC"), filter.Limit, filter.Offset)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, translateError(err, "list quiz attempts")
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) creatorQuery(ctx context.Context, tx *gorm.DB, creatorID string) *gorm.DB {
	return getDB(a.db, tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Where("quizzes.created_by = ?", creatorID)
}

func (a *AttemptPostgreSQL) ListRecentByQuizCreator(ctx context.Context, tx *gorm.DB, creatorID string, limit int) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	query := a.creatorQuery(ctx, tx, creatorID).
		Select("quiz_attempts.*").
		Where("quiz_attempts.status = ?", models.AttemptCompleted).
		Preload("Quiz").
		Order("quiz_attempts.end_time DESC, quiz_attempts.id DESC")
	if err := applyPagination(query, limit, 0).Find(&attempts).Error; err != nil {
		return nil, translateError(err, "list recent attempts")
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) CountByQuizCreator(ctx context.Context, tx *gorm.DB, creatorID string) (int64, error) {
	var count int64
	if err := a.creatorQuery(ctx, tx, creatorID).Count(&count).Error; err != nil {
		return 0, translateError(err, "count attempts by creator")
	}
	return count, nil
}

func (a *AttemptPostgreSQL) ListStudentIDsByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]string, error) {
	var ids []string
	err := getDB(a.db, tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", quizID).
		Distinct().
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, translateError(err, "list attempt students")
	}
	return ids, nil
}

// CompletedOutcomes joins each attempt with its own quiz's pass threshold
func (a *AttemptPostgreSQL) CompletedOutcomes(ctx context.Context, tx *gorm.DB, studentID string, from, to time.Time) ([]models.AttemptOutcome, error) {
	query := getDB(a.db, tx).WithContext(ctx).
		Table("quiz_attempts").
		Select("quiz_attempts.id AS attempt_id, quiz_attempts.score, quiz_attempts.total_marks, "+
			"quiz_attempts.percentage, quizzes.pass_percentage, quiz_attempts.time_taken, quiz_attempts.start_time").
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Where("quiz_attempts.student_id = ? AND quiz_attempts.status = ?", studentID, models.AttemptCompleted)

	if !from.IsZero() {
		query = query.Where("quiz_attempts.start_time >= ?", from.UTC())
	}
	if !to.IsZero() {
		query = query.Where("quiz_attempts.start_time < ?", to.UTC())
	}

	var outcomes []models.AttemptOutcome
	if err := query.Order("quiz_attempts.start_time ASC, quiz_attempts.id ASC").Scan(&outcomes).Error; err != nil {
		return nil, translateError(err, "completed outcomes")
	}
	return outcomes, nil
}
