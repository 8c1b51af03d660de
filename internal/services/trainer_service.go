package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const (
	trainerRecentAttempts    = 10
	performanceDailyRows     = 30
	performanceAttemptsLimit = 20
)

type trainerService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	progress ProgressService
}

func NewTrainerService(repo repositories.Repository, logger *slog.Logger, progress ProgressService) TrainerService {
	return &trainerService{
		repo:     repo,
		logger:   logger,
		progress: progress,
	}
}

func (s *trainerService) Dashboard(ctx context.Context, caller models.Principal) (*TrainerDashboardResponse, error) {
	if err := requireStaff(caller, "trainer dashboard", nil, "view"); err != nil {
		return nil, err
	}
	trainerID := caller.UserID()

	active := true
	assigned := repositories.StudentFilter{AssignedTrainerID: &trainerID}
	totalStudents, err := s.repo.User().CountStudents(ctx, nil, assigned)
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	assigned.IsActive = &active
	activeStudents, err := s.repo.User().CountStudents(ctx, nil, assigned)
	if err != nil {
		return nil, fmt.Errorf("failed to count active students: %w", err)
	}

	totalQuizzes, err := s.repo.Quiz().CountByCreator(ctx, nil, trainerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count quizzes: %w", err)
	}
	totalAttempts, err := s.repo.Attempt().CountByQuizCreator(ctx, nil, trainerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	recent, err := s.repo.Attempt().ListRecentByQuizCreator(ctx, nil, trainerID, trainerRecentAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent attempts: %w", err)
	}

	return &TrainerDashboardResponse{
		TotalStudents:  totalStudents,
		ActiveStudents: activeStudents,
		TotalQuizzes:   totalQuizzes,
		TotalAttempts:  totalAttempts,
		RecentAttempts: toAttemptResponses(recent),
	}, nil
}

// StudentPerformance is limited to the student's assigned trainer and admins
func (s *trainerService) StudentPerformance(ctx context.Context, caller models.Principal, studentID string) (*StudentPerformanceResponse, error) {
	if err := requireStaff(caller, "student", studentID, "view performance"); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, studentID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	if user.Role != models.RoleStudent {
		return nil, fmt.Errorf("%s is not a student: %w", studentID, ErrUserNotFound)
	}
	principal, err := user.Principal()
	if err != nil {
		return nil, err
	}
	if !canViewStudent(caller, principal.(models.Student)) {
		return nil, NewPermissionError(caller.UserID(), studentID, "student", "view performance", "student is not assigned to you")
	}

	overall, err := s.progress.Overall(ctx, studentID)
	if err != nil {
		return nil, err
	}
	daily, err := s.repo.Progress().ListDaily(ctx, nil, studentID, performanceDailyRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily progress: %w", err)
	}
	attempts, _, err := s.repo.Attempt().ListByStudent(ctx, nil, studentID, repositories.AttemptFilter{Limit: performanceAttemptsLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	return &StudentPerformanceResponse{
		Student:  user,
		Overall:  overall,
		Daily:    daily,
		Attempts: toAttemptResponses(attempts),
	}, nil
}
