package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// getDB prefers the caller's transaction over the root connection
func getDB(root, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return root
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == "postgres"
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// translateError maps driver errors onto repository sentinels
func translateError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
	case repositories.IsDuplicateError(err):
		return fmt.Errorf("%s: %w", what, repositories.ErrDuplicateKey)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
