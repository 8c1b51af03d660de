package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := getDB(q.db, tx)
	return translateError(db.WithContext(ctx).Create(question).Error, "create question")
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := getDB(q.db, tx).WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, translateError(err, "get question")
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	err := getDB(q.db, tx).WithContext(ctx).
		Model(question).
		Select("question_text", "option_a", "option_b", "option_c", "option_d",
			"correct_answer", "marks", "time_limit", "explanation", "display_order").
		Updates(question).Error
	return translateError(err, "update question")
}

// Delete removes the question and every answer given to it
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	run := func(db *gorm.DB) error {
		if err := db.Where("question_id = ?", id).Delete(&models.StudentAnswer{}).Error; err != nil {
			return err
		}
		res := db.Delete(&models.Question{}, id)
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
	return translateError(err, "delete question")
}

func (q *QuestionPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := orderedQuestions(getDB(q.db, tx).WithContext(ctx)).
		Where("quiz_id = ?", quizID).
		Find(&questions).Error
	if err != nil {
		return nil, translateError(err, "list questions")
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) MaxOrder(ctx context.Context, tx *gorm.DB, quizID uint) (int, error) {
	var maxOrder int
	err := getDB(q.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Select("COALESCE(MAX(display_order), 0)").
		Where("quiz_id = ?", quizID).
		Scan(&maxOrder).Error
	if err != nil {
		return 0, translateError(err, "max question order")
	}
	return maxOrder, nil
}

func (q *QuestionPostgreSQL) UpdateOrder(ctx context.Context, tx *gorm.DB, id uint, order int) error {
	err := getDB(q.db, tx).WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", id).
		Update("display_order", order).Error
	return translateError(err, "update question order")
}
