package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert overwrites the previous answer to the same question and reloads
// the stored row into answer
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.StudentAnswer) error {
	db := getDB(a.db, tx).WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_answer", "is_correct", "marks", "time_taken", "answered_at", "updated_at",
		}),
	}).Create(answer).Error
	if err != nil {
		return translateError(err, "upsert answer")
	}

	stored, err := a.GetByAttemptAndQuestion(ctx, tx, answer.AttemptID, answer.QuestionID)
	if err != nil {
		return err
	}
	*answer = *stored
	return nil
}

func (a *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.StudentAnswer, error) {
	var answer models.StudentAnswer
	err := getDB(a.db, tx).WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, translateError(err, "get answer")
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.StudentAnswer, error) {
	var answers []*models.StudentAnswer
	err := getDB(a.db, tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, translateError(err, "list answers")
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) CountByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error) {
	var count int64
	err := getDB(a.db, tx).WithContext(ctx).
		Model(&models.StudentAnswer{}).
		Where("attempt_id = ?", attemptID).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count answers")
	}
	return count, nil
}

// SumCorrectMarks uses the marks snapshotted on each answer
func (a *AnswerPostgreSQL) SumCorrectMarks(ctx context.Context, tx *gorm.DB, attemptID uint) (int, error) {
	var sum int
	err := getDB(a.db, tx).WithContext(ctx).
		Model(&models.StudentAnswer{}).
		Select("COALESCE(SUM(marks), 0)").
		Where("attempt_id = ? AND is_correct = ?", attemptID, true).
		Scan(&sum).Error
	if err != nil {
		return 0, translateError(err, "sum correct marks")
	}
	return sum, nil
}
