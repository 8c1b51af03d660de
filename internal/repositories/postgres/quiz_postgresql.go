package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuizPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuizPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("display_order ASC, created_at ASC, id ASC")
}

func (q *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := getDB(q.db, tx)
	return translateError(db.WithContext(ctx).Create(quiz).Error, "create quiz")
}

// GetByID returns quiz metadata without questions
func (q *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	load := func(db *gorm.DB) (*models.Quiz, error) {
		var quiz models.Quiz
		if err := db.WithContext(ctx).First(&quiz, id).Error; err != nil {
			return nil, translateError(err, "get quiz")
		}
		return &quiz, nil
	}

	if tx != nil {
		return load(tx)
	}

	var quiz models.Quiz
	err := q.cacheManager.Quiz.CacheOrExecute(ctx, cache.QuizKey(id), &quiz, cache.QuizCacheConfig.TTL, func() (interface{}, error) {
		return load(q.db)
	})
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := getDB(q.db, tx).WithContext(ctx).
		Preload("Questions", orderedQuestions).
		First(&quiz, id).Error
	if err != nil {
		return nil, translateError(err, "get quiz with questions")
	}
	return &quiz, nil
}

// GetForUpdate reads the quiz row under FOR UPDATE so question edits and
// attempt starts on the same quiz serialize. SQLite drops the clause and
// relies on its single writer instead.
func (q *QuizPostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	if tx == nil {
		return nil, fmt.Errorf("lock quiz %d: transaction required", id)
	}
	var quiz models.Quiz
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&quiz, id).Error
	if err != nil {
		return nil, translateError(err, "lock quiz")
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := getDB(q.db, tx)
	err := db.WithContext(ctx).
		Model(quiz).
		Select("title", "description", "difficulty", "is_active", "pass_percentage").
		Updates(quiz).Error
	if err != nil {
		return translateError(err, "update quiz")
	}
	q.evictOutsideTx(ctx, tx, quiz.ID)
	return nil
}

// Delete removes dependants explicitly so the cascade holds on every dialect
func (q *QuizPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	run := func(db *gorm.DB) error {
		attemptIDs := db.Model(&models.QuizAttempt{}).Select("id").Where("quiz_id = ?", id)
		if err := db.Where("attempt_id IN (?)", attemptIDs).Delete(&models.StudentAnswer{}).Error; err != nil {
			return err
		}
		if err := db.Where("quiz_id = ?", id).Delete(&models.QuizAttempt{}).Error; err != nil {
			return err
		}
		if err := db.Where("quiz_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		res := db.Delete(&models.Quiz{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}

	var err error
	if tx != nil {
		err = run(tx.WithContext(ctx))
	} else {
		err = q.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return translateError(err, "delete quiz")
	}
	q.evictOutsideTx(ctx, tx, id)
	return nil
}

// Evict drops the cached quiz; callers writing inside a transaction evict
// after it commits
func (q *QuizPostgreSQL) Evict(ctx context.Context, id uint) {
	cache.InvalidateQuizCache(ctx, q.cacheManager, id)
}

func (q *QuizPostgreSQL) evictOutsideTx(ctx context.Context, tx *gorm.DB, id uint) {
	if tx == nil {
		q.Evict(ctx, id)
	}
}

func (q *QuizPostgreSQL) List(ctx context.Context, tx *gorm.DB, filter repositories.QuizFilter) ([]*models.Quiz, int64, error) {
	db := getDB(q.db, tx).WithContext(ctx)
	query := db.Model(&models.Quiz{})

	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.ExcludeAttemptedBy != nil {
		attempted := db.Model(&models.QuizAttempt{}).Select("quiz_id").Where("student_id = ?", *filter.ExcludeAttemptedBy)
		query = query.Where("id NOT IN (?)", attempted)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count quizzes")
	}

	var quizzes []*models.Quiz
	query = applyPagination(query.Order("created_at DESC, id DESC"), filter.Limit, filter.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, translateError(err, "list quizzes")
	}
	return quizzes, total, nil
}

// Totals returns derived counts for every id, zero for quizzes without questions
func (q *QuizPostgreSQL) Totals(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]models.QuizTotals, error) {
	result := make(map[uint]models.QuizTotals, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []models.QuizTotals
	err := getDB(q.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Select("quiz_id, COUNT(*) AS total_questions, COALESCE(SUM(marks), 0) AS total_marks").
		Where("quiz_id IN ?", ids).
		Group("quiz_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err, "quiz totals")
	}

	for _, id := range ids {
		result[id] = models.QuizTotals{QuizID: id}
	}
	for _, row := range rows {
		result[row.QuizID] = row
	}
	return result, nil
}

func (q *QuizPostgreSQL) HasAttempts(ctx context.Context, tx *gorm.DB, quizID uint) (bool, error) {
	var count int64
	err := getDB(q.db, tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", quizID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, translateError(err, "count quiz attempts")
	}
	return count > 0, nil
}

func (q *QuizPostgreSQL) CountByCreator(ctx context.Context, tx *gorm.DB, creatorID string) (int64, error) {
	var count int64
	err := getDB(q.db, tx).WithContext(ctx).
		Model(&models.Quiz{}).
		Where("created_by = ?", creatorID).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count quizzes")
	}
	return count, nil
}
