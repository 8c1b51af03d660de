package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := getDB(u.db, tx)
	return translateError(db.WithContext(ctx).Create(user).Error, "create user")
}

// GetByID reads through the cache unless called inside a transaction
func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	load := func(db *gorm.DB) (*models.User, error) {
		var user models.User
		err := db.WithContext(ctx).
			Preload("StudentProfile").
			Preload("TrainerProfile").
			First(&user, "id = ?", id).Error
		if err != nil {
			return nil, translateError(err, "get user")
		}
		return &user, nil
	}

	if tx != nil {
		return load(tx)
	}

	var user models.User
	err := u.cacheManager.User.CacheOrExecute(ctx, cache.UserKey(id), &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		return load(u.db)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := getDB(u.db, tx)
	err := db.WithContext(ctx).
		Model(user).
		Select("username", "full_name", "email").
		Updates(user).Error
	if err != nil {
		return translateError(err, "update user")
	}
	u.evictOutsideTx(ctx, tx, user.ID)
	return nil
}

func (u *UserPostgreSQL) UpdateStudentProfile(ctx context.Context, tx *gorm.DB, profile *models.StudentProfile) error {
	db := getDB(u.db, tx)
	err := db.WithContext(ctx).
		Model(profile).
		Select("phone", "date_of_birth", "enrollment_number", "is_active", "assigned_trainer_id").
		Updates(profile).Error
	if err != nil {
		return translateError(err, "update student profile")
	}
	u.evictOutsideTx(ctx, tx, profile.UserID)
	return nil
}

func (u *UserPostgreSQL) UpdateTrainerProfile(ctx context.Context, tx *gorm.DB, profile *models.TrainerProfile) error {
	db := getDB(u.db, tx)
	err := db.WithContext(ctx).
		Model(profile).
		Select("phone", "specialization", "employee_id", "is_active", "assigned_by_admin_id").
		Updates(profile).Error
	if err != nil {
		return translateError(err, "update trainer profile")
	}
	u.evictOutsideTx(ctx, tx, profile.UserID)
	return nil
}

// Evict drops the cached user. Writes made inside a transaction leave the
// cache alone, so callers evict once the transaction has committed.
func (u *UserPostgreSQL) Evict(ctx context.Context, id string) {
	cache.InvalidateUserCache(ctx, u.cacheManager, id)
}

func (u *UserPostgreSQL) evictOutsideTx(ctx context.Context, tx *gorm.DB, id string) {
	if tx == nil {
		u.Evict(ctx, id)
	}
}

func (u *UserPostgreSQL) studentQuery(ctx context.Context, tx *gorm.DB, filter repositories.StudentFilter) *gorm.DB {
	query := getDB(u.db, tx).WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN student_profiles ON student_profiles.user_id = users.id").
		Where("users.role = ?", models.RoleStudent)

	if filter.AssignedTrainerID != nil {
		query = query.Where("student_profiles.assigned_trainer_id = ?", *filter.AssignedTrainerID)
	}
	if filter.Unassigned {
		query = query.Where("student_profiles.assigned_trainer_id IS NULL")
	}
	if filter.IsActive != nil {
		query = query.Where("student_profiles.is_active = ?", *filter.IsActive)
	}
	return query
}

func (u *UserPostgreSQL) ListStudents(ctx context.Context, tx *gorm.DB, filter repositories.StudentFilter) ([]*models.User, int64, error) {
	var total int64
	if err := u.studentQuery(ctx, tx, filter).Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count students")
	}

	var users []*models.User
	query := u.studentQuery(ctx, tx, filter).
		Select("users.*").
		Preload("StudentProfile").
		Order("users.created_at DESC, users.id")
	if err := applyPagination(query, filter.Limit, filter.Offset).Find(&users).Error; err != nil {
		return nil, 0, translateError(err, "list students")
	}
	return users, total, nil
}

func (u *UserPostgreSQL) CountStudents(ctx context.Context, tx *gorm.DB, filter repositories.StudentFilter) (int64, error) {
	var total int64
	if err := u.studentQuery(ctx, tx, filter).Count(&total).Error; err != nil {
		return 0, translateError(err, "count students")
	}
	return total, nil
}

func (u *UserPostgreSQL) ListTrainers(ctx context.Context, tx *gorm.DB) ([]*models.User, error) {
	var users []*models.User
	err := getDB(u.db, tx).WithContext(ctx).
		Where("role = ?", models.RoleTrainer).
		Preload("TrainerProfile").
		Order("created_at DESC, id").
		Find(&users).Error
	if err != nil {
		return nil, translateError(err, "list trainers")
	}
	return users, nil
}
