package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

const (
	enrollmentNumberFormat = "ST%05d"
	employeeIDFormat       = "TR%05d"
)

type accountService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAccountService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AccountService {
	return &accountService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== PROVISIONING =====

func (s *accountService) Provision(ctx context.Context, identity *Identity) (*models.User, error) {
	if identity == nil || strings.TrimSpace(identity.ID) == "" {
		return nil, validator.NewValidationError("id", "is required")
	}
	if !identity.Role.Valid() {
		return nil, validator.NewValidationError("role", fmt.Sprintf("unknown role %q", identity.Role))
	}

	existing, err := s.repo.User().GetByID(ctx, nil, identity.ID)
	if err == nil {
		return s.syncIdentity(ctx, existing, identity)
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	s.logger.Info("Provisioning account", "user_id", identity.ID, "role", identity.Role)

	user := &models.User{
		ID:       identity.ID,
		Username: identity.Username,
		FullName: identity.FullName,
		Email:    identity.Email,
		Role:     identity.Role,
	}
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.createWithProfile(ctx, tx, user)
	})
	if repositories.IsDuplicateError(err) {
		// lost a race with a concurrent first request for the same account
		return s.repo.User().GetByID(ctx, nil, identity.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to provision account: %w", err)
	}
	s.repo.User().Evict(ctx, user.ID)

	s.logger.Info("Account provisioned", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// createWithProfile inserts the user with its role profile, then derives the
// public profile code from the profile's row id
func (s *accountService) createWithProfile(ctx context.Context, tx *gorm.DB, user *models.User) error {
	switch user.Role {
	case models.RoleStudent:
		user.StudentProfile = &models.StudentProfile{
			EnrollmentNumber: pendingCode(),
			IsActive:         true,
		}
	case models.RoleTrainer:
		user.TrainerProfile = &models.TrainerProfile{
			EmployeeID: pendingCode(),
			IsActive:   false,
		}
	}

	if err := s.repo.User().Create(ctx, tx, user); err != nil {
		return err
	}

	switch {
	case user.StudentProfile != nil:
		user.StudentProfile.EnrollmentNumber = fmt.Sprintf(enrollmentNumberFormat, user.StudentProfile.ID)
		return s.repo.User().UpdateStudentProfile(ctx, tx, user.StudentProfile)
	case user.TrainerProfile != nil:
		user.TrainerProfile.EmployeeID = fmt.Sprintf(employeeIDFormat, user.TrainerProfile.ID)
		return s.repo.User().UpdateTrainerProfile(ctx, tx, user.TrainerProfile)
	}
	return nil
}

// pendingCode is a unique placeholder that fits the 20 character code column
func pendingCode() string {
	return "P" + strings.ReplaceAll(uuid.NewString(), "-", "")[:18]
}

// syncIdentity refreshes display fields from the identity provider. The
// stored role is authoritative once the account exists.
func (s *accountService) syncIdentity(ctx context.Context, user *models.User, identity *Identity) (*models.User, error) {
	if user.Role != identity.Role {
		s.logger.Warn("Identity provider role differs from stored role",
			"user_id", user.ID, "stored_role", user.Role, "provider_role", identity.Role)
	}

	changed := false
	if identity.Username != "" && identity.Username != user.Username {
		user.Username = identity.Username
		changed = true
	}
	if identity.FullName != "" && identity.FullName != user.FullName {
		user.FullName = identity.FullName
		changed = true
	}
	if identity.Email != "" && identity.Email != user.Email {
		user.Email = identity.Email
		changed = true
	}
	if !changed {
		return user, nil
	}
	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	return user, nil
}

// ===== LOOKUPS =====

func (s *accountService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *accountService) Principal(ctx context.Context, id string) (models.Principal, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Principal()
}

func (s *accountService) UpdateProfile(ctx context.Context, caller models.Principal, req *ProfileUpdateRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = s.repo.User().GetByID(ctx, tx, caller.UserID())
		if err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}

		if req.FullName != nil {
			user.FullName = *req.FullName
			if err := s.repo.User().Update(ctx, tx, user); err != nil {
				return err
			}
		}

		switch {
		case user.StudentProfile != nil:
			if req.Specialization != nil {
				return validator.NewValidationError("specialization", "only applies to trainers")
			}
			if req.Phone != nil {
				user.StudentProfile.Phone = *req.Phone
			}
			if req.DateOfBirth != nil {
				dob := req.DateOfBirth.UTC()
				user.StudentProfile.DateOfBirth = &dob
			}
			return s.repo.User().UpdateStudentProfile(ctx, tx, user.StudentProfile)
		case user.TrainerProfile != nil:
			if req.DateOfBirth != nil {
				return validator.NewValidationError("date_of_birth", "only applies to students")
			}
			if req.Phone != nil {
				user.TrainerProfile.Phone = *req.Phone
			}
			if req.Specialization != nil {
				user.TrainerProfile.Specialization = *req.Specialization
			}
			return s.repo.User().UpdateTrainerProfile(ctx, tx, user.TrainerProfile)
		default:
			if req.Phone != nil || req.DateOfBirth != nil || req.Specialization != nil {
				return validator.NewValidationError("profile", "admins have no profile")
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	s.repo.User().Evict(ctx, user.ID)

	s.logger.Info("Profile updated", "user_id", user.ID)
	return user, nil
}

// ===== LISTINGS =====

func (s *accountService) ListStudents(ctx context.Context, caller models.Principal, query StudentQuery) (*StudentListResponse, error) {
	if err := requireStaff(caller, "students", nil, "list"); err != nil {
		return nil, err
	}

	page, size, offset := normalizePage(query.Page, query.Size)
	filter := repositories.StudentFilter{Limit: size, Offset: offset}

	_, isTrainer := caller.(models.Trainer)
	switch {
	case query.Assigned != nil && !*query.Assigned:
		filter.Unassigned = true
	case isTrainer:
		trainerID := caller.UserID()
		filter.AssignedTrainerID = &trainerID
	}

	students, total, err := s.repo.User().ListStudents(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return &StudentListResponse{Students: students, Total: total, Page: page, Size: size}, nil
}

func (s *accountService) ListTrainers(ctx context.Context, caller models.Principal) ([]*models.User, error) {
	if err := requireAdmin(caller, "trainers", nil, "list"); err != nil {
		return nil, err
	}
	trainers, err := s.repo.User().ListTrainers(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list trainers: %w", err)
	}
	return trainers, nil
}

// ===== ADMINISTRATION =====

func (s *accountService) SetTrainerActive(ctx context.Context, caller models.Principal, trainerID string, active bool) (*models.User, error) {
	if err := requireAdmin(caller, "trainer", trainerID, "activate"); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = s.loadRole(ctx, tx, trainerID, models.RoleTrainer)
		if err != nil {
			return err
		}
		adminID := caller.UserID()
		user.TrainerProfile.IsActive = active
		user.TrainerProfile.AssignedByAdminID = &adminID
		return s.repo.User().UpdateTrainerProfile(ctx, tx, user.TrainerProfile)
	})
	if err != nil {
		return nil, err
	}
	s.repo.User().Evict(ctx, trainerID)

	s.logger.Info("Trainer activation changed", "trainer_id", trainerID, "active", active, "admin_id", caller.UserID())
	return user, nil
}

func (s *accountService) SetStudentActive(ctx context.Context, caller models.Principal, studentID string, active bool) (*models.User, error) {
	if err := requireAdmin(caller, "student", studentID, "activate"); err != nil {
		return nil, err
	}
	return s.updateStudent(ctx, studentID, func(profile *models.StudentProfile) error {
		profile.IsActive = active
		return nil
	})
}

func (s *accountService) AssignStudent(ctx context.Context, caller models.Principal, studentID string, req *AssignStudentRequest) (*models.User, error) {
	if err := requireAuthor(caller, "student", studentID, "assign"); err != nil {
		return nil, err
	}
	if req == nil {
		req = &AssignStudentRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	trainerID := caller.UserID()
	_, isAdmin := caller.(models.Admin)
	if isAdmin {
		if req.TrainerID == "" {
			return nil, validator.NewValidationError("trainer_id", "is required for admins")
		}
		trainerID = req.TrainerID
		if _, err := s.loadRole(ctx, nil, trainerID, models.RoleTrainer); err != nil {
			return nil, err
		}
	}

	user, err := s.updateStudent(ctx, studentID, func(profile *models.StudentProfile) error {
		current, assigned := models.AssignedTrainer(models.Student{AssignedTrainerID: profile.AssignedTrainerID})
		if assigned && current != trainerID && !isAdmin {
			return NewBusinessRuleError("student_already_assigned", "student is assigned to another trainer",
				map[string]interface{}{"student_id": studentID})
		}
		profile.AssignedTrainerID = &trainerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student assigned", "student_id", studentID, "trainer_id", trainerID)
	return user, nil
}

func (s *accountService) ToggleStudentActive(ctx context.Context, caller models.Principal, studentID string) (*models.User, error) {
	if err := requireAuthor(caller, "student", studentID, "toggle"); err != nil {
		return nil, err
	}

	user, err := s.updateStudent(ctx, studentID, func(profile *models.StudentProfile) error {
		student := models.Student{ID: studentID, AssignedTrainerID: profile.AssignedTrainerID}
		if !canViewStudent(caller, student) {
			return NewPermissionError(caller.UserID(), studentID, "student", "toggle", "student is not assigned to you")
		}
		profile.IsActive = !profile.IsActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student activation toggled", "student_id", studentID, "active", user.StudentProfile.IsActive)
	return user, nil
}

func (s *accountService) updateStudent(ctx context.Context, studentID string, mutate func(*models.StudentProfile) error) (*models.User, error) {
	var user *models.User
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		user, err = s.loadRole(ctx, tx, studentID, models.RoleStudent)
		if err != nil {
			return err
		}
		if err := mutate(user.StudentProfile); err != nil {
			return err
		}
		return s.repo.User().UpdateStudentProfile(ctx, tx, user.StudentProfile)
	})
	if err != nil {
		return nil, err
	}
	s.repo.User().Evict(ctx, studentID)
	return user, nil
}

// loadRole fetches a user and checks it holds role with its profile loaded
func (s *accountService) loadRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, tx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	if user.Role != role {
		return nil, fmt.Errorf("%s is not a %s: %w", id, role, ErrUserNotFound)
	}
	if (role == models.RoleStudent && user.StudentProfile == nil) || (role == models.RoleTrainer && user.TrainerProfile == nil) {
		return nil, fmt.Errorf("%s %s has no profile: %w", role, id, ErrInvalidState)
	}
	return user, nil
}
