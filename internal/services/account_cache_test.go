package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/testutil"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// recachingRepo writes the old cache entry back just before each commit, as
// a reader racing the transaction would
type recachingRepo struct {
	repositories.Repository
	mr    *miniredis.Miniredis
	key   string
	stale string
}

func (r *recachingRepo) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.Repository.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		if r.key == "" {
			return nil
		}
		return r.mr.Set(r.key, r.stale)
	})
}

func TestAccountService_EvictsCachedAccountAfterCommit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	base := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
		DB:          testutil.OpenTestDB(t),
		RedisClient: client,
	})
	repo := &recachingRepo{Repository: base, mr: mr}
	accounts := NewAccountService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New())
	ctx := context.Background()

	if _, err := accounts.Provision(ctx, &Identity{
		ID:       "student-1",
		Username: "student-1",
		FullName: "Student One",
		Email:    "student-1@example.com",
		Role:     models.RoleStudent,
	}); err != nil {
		t.Fatalf("provision: %v", err)
	}

	if _, err := base.User().GetByID(ctx, nil, "student-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	repo.key = "user:id:student-1"
	stale, err := mr.Get(repo.key)
	if err != nil {
		t.Fatalf("expected the account to be cached: %v", err)
	}
	repo.stale = stale

	if _, err := accounts.SetStudentActive(ctx, testAdmin, "student-1", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if mr.Exists(repo.key) {
		t.Error("cache entry written during the transaction survived the commit")
	}

	user, err := base.User().GetByID(ctx, nil, "student-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if user.StudentProfile == nil || user.StudentProfile.IsActive {
		t.Errorf("expected the deactivated profile, got %+v", user.StudentProfile)
	}
}
