package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repository groups every repository of the service. Methods take an
// optional tx; a nil tx runs against the root connection.
type Repository interface {
	User() UserRepository
	Quiz() QuizRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	Progress() ProgressRepository

	// WithTransaction runs fn inside one database transaction
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns the repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
