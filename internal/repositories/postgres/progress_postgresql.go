package postgres

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

// LockStudent takes a transaction-scoped advisory lock on postgres. Other
// dialects serialise writers on their own.
func (p *ProgressPostgreSQL) LockStudent(ctx context.Context, tx *gorm.DB, studentID string) error {
	db := getDB(p.db, tx)
	if !isPostgres(db) {
		return nil
	}
	err := db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "progress:"+studentID).Error
	return translateError(err, "lock student progress")
}

func (p *ProgressPostgreSQL) UpsertDaily(ctx context.Context, tx *gorm.DB, progress *models.DailyProgress) error {
	err := getDB(p.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"quizzes_attempted", "quizzes_passed", "quizzes_failed",
				"total_score", "total_marks", "average_percentage", "time_spent", "updated_at",
			}),
		}).
		Create(progress).Error
	return translateError(err, "upsert daily progress")
}

func (p *ProgressPostgreSQL) UpsertOverall(ctx context.Context, tx *gorm.DB, progress *models.OverallProgress) error {
	err := getDB(p.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_quizzes_attempted", "total_quizzes_passed", "total_quizzes_failed",
				"total_score", "total_marks", "overall_percentage", "total_time_spent",
				"highest_score", "lowest_score", "last_quiz_date", "updated_at",
			}),
		}).
		Create(progress).Error
	return translateError(err, "upsert overall progress")
}

func (p *ProgressPostgreSQL) GetDaily(ctx context.Context, tx *gorm.DB, studentID string, day time.Time) (*models.DailyProgress, error) {
	var progress models.DailyProgress
	err := getDB(p.db, tx).WithContext(ctx).
		Where("student_id = ? AND date = ?", studentID, datatypes.Date(day)).
		First(&progress).Error
	if err != nil {
		return nil, translateError(err, "get daily progress")
	}
	return &progress, nil
}

// ListDaily returns the newest rows first
func (p *ProgressPostgreSQL) ListDaily(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]*models.DailyProgress, error) {
	var rows []*models.DailyProgress
	query := getDB(p.db, tx).WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("date DESC")
	if err := applyPagination(query, limit, 0).Find(&rows).Error; err != nil {
		return nil, translateError(err, "list daily progress")
	}
	return rows, nil
}

func (p *ProgressPostgreSQL) GetOverall(ctx context.Context, tx *gorm.DB, studentID string) (*models.OverallProgress, error) {
	var progress models.OverallProgress
	err := getDB(p.db, tx).WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&progress).Error
	if err != nil {
		return nil, translateError(err, "get overall progress")
	}
	return &progress, nil
}
