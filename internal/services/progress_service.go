package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const (
	dashboardDailyRows    = 30
	maxDailyRows          = 366
	dashboardRecentRows   = 10
	dashboardAvailableMax = 5
	chartDateLayout       = "2006-01-02"
)

type progressService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	location *time.Location
}

// NewProgressService buckets attempts into days using loc, UTC when nil
func NewProgressService(repo repositories.Repository, logger *slog.Logger, loc *time.Location) ProgressService {
	if loc == nil {
		loc = time.UTC
	}
	return &progressService{
		repo:     repo,
		logger:   logger,
		location: loc,
	}
}

// ===== RECOMPUTATION =====

func (s *progressService) RecomputeForAttempt(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) (*ProgressSnapshot, error) {
	if tx == nil {
		return nil, fmt.Errorf("progress recomputation requires a transaction")
	}
	if err := s.repo.Progress().LockStudent(ctx, tx, attempt.StudentID); err != nil {
		return nil, err
	}

	daily, err := s.recomputeDay(ctx, tx, attempt.StudentID, models.DayOf(attempt.StartTime, s.location))
	if err != nil {
		return nil, err
	}
	overall, err := s.recomputeOverall(ctx, tx, attempt.StudentID, attempt.EndTime)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Progress recomputed",
		"student_id", attempt.StudentID,
		"attempt_id", attempt.ID,
		"daily_attempted", daily.QuizzesAttempted,
		"overall_attempted", overall.TotalQuizzesAttempted)

	return &ProgressSnapshot{Daily: daily, Overall: overall}, nil
}

// recomputeDay rebuilds the row for the calendar day starting at day (local
// midnight) from every completed attempt started that day
func (s *progressService) recomputeDay(ctx context.Context, tx *gorm.DB, studentID string, day time.Time) (*models.DailyProgress, error) {
	outcomes, err := s.repo.Attempt().CompletedOutcomes(ctx, tx, studentID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	row := &models.DailyProgress{
		StudentID: studentID,
		Date:      datatypes.Date(dateKey(day)),
	}
	models.Aggregate(outcomes).ApplyDaily(row)
	if err := s.repo.Progress().UpsertDaily(ctx, tx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// recomputeOverall rebuilds the overall row from the full history.
// lastQuiz is the end time of the attempt that triggered the recompute.
func (s *progressService) recomputeOverall(ctx context.Context, tx *gorm.DB, studentID string, lastQuiz *time.Time) (*models.OverallProgress, error) {
	outcomes, err := s.repo.Attempt().CompletedOutcomes(ctx, tx, studentID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	row := &models.OverallProgress{
		StudentID:    studentID,
		LastQuizDate: lastQuiz,
	}
	models.Aggregate(outcomes).ApplyOverall(row)
	if err := s.repo.Progress().UpsertOverall(ctx, tx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// dateKey stores the local calendar date as a UTC midnight so the key does
// not depend on the database session time zone
func dateKey(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RebuildProgress recomputes every day the student has a row or an attempt
// for. Days whose attempts are gone end up zeroed.
func (s *progressService) RebuildProgress(ctx context.Context, caller models.Principal, studentID string) (*RebuildResult, error) {
	if err := requireAdmin(caller, "progress", studentID, "rebuild"); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, studentID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	if user.Role != models.RoleStudent {
		return nil, fmt.Errorf("%s is not a student: %w", studentID, ErrUserNotFound)
	}

	result := &RebuildResult{StudentID: studentID}
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Progress().LockStudent(ctx, tx, studentID); err != nil {
			return err
		}

		days, err := s.knownDays(ctx, tx, studentID)
		if err != nil {
			return err
		}
		for _, day := range days {
			if _, err := s.recomputeDay(ctx, tx, studentID, day); err != nil {
				return err
			}
		}
		result.DaysRecomputed = len(days)

		lastQuiz, err := s.lastCompletedEnd(ctx, tx, studentID)
		if err != nil {
			return err
		}
		result.Overall, err = s.recomputeOverall(ctx, tx, studentID, lastQuiz)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Progress rebuilt",
		"student_id", studentID,
		"days", result.DaysRecomputed,
		"admin_id", caller.UserID())
	return result, nil
}

// knownDays returns local midnights for every day with a stored row or a
// completed attempt, oldest first
func (s *progressService) knownDays(ctx context.Context, tx *gorm.DB, studentID string) ([]time.Time, error) {
	seen := make(map[string]time.Time)
	add := func(day time.Time) {
		seen[day.Format(chartDateLayout)] = day
	}

	rows, err := s.repo.Progress().ListDaily(ctx, tx, studentID, 0)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		y, m, d := time.Time(row.Date).UTC().Date()
		add(time.Date(y, m, d, 0, 0, 0, 0, s.location))
	}

	outcomes, err := s.repo.Attempt().CompletedOutcomes(ctx, tx, studentID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	for _, o := range outcomes {
		add(models.DayOf(o.StartTime, s.location))
	}

	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

func (s *progressService) lastCompletedEnd(ctx context.Context, tx *gorm.DB, studentID string) (*time.Time, error) {
	status := models.AttemptCompleted
	attempts, _, err := s.repo.Attempt().ListByStudent(ctx, tx, studentID, repositories.AttemptFilter{Status: &status})
	if err != nil {
		return nil, err
	}
	var last *time.Time
	for _, a := range attempts {
		if a.EndTime != nil && (last == nil || a.EndTime.After(*last)) {
			last = a.EndTime
		}
	}
	return last, nil
}

// ===== READS =====

// Overall returns a zero row, not stored, when nothing is completed yet
func (s *progressService) Overall(ctx context.Context, studentID string) (*models.OverallProgress, error) {
	overall, err := s.repo.Progress().GetOverall(ctx, nil, studentID)
	if repositories.IsNotFoundError(err) {
		return &models.OverallProgress{StudentID: studentID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load overall progress: %w", err)
	}
	return overall, nil
}

func (s *progressService) Daily(ctx context.Context, caller models.Principal, limit int) ([]*models.DailyProgress, error) {
	student, err := requireStudent(caller, "progress", nil, "view")
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Progress().ListDaily(ctx, nil, student.ID, dailyLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily progress: %w", err)
	}
	return rows, nil
}

// dailyLimit defaults an unset limit and caps large ones at a year of rows
func dailyLimit(limit int) int {
	switch {
	case limit <= 0:
		return dashboardDailyRows
	case limit > maxDailyRows:
		return maxDailyRows
	default:
		return limit
	}
}

func (s *progressService) Dashboard(ctx context.Context, caller models.Principal) (*StudentDashboardResponse, error) {
	student, err := requireStudent(caller, "dashboard", nil, "view")
	if err != nil {
		return nil, err
	}

	overall, err := s.Overall(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	daily, err := s.repo.Progress().ListDaily(ctx, nil, student.ID, dashboardDailyRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily progress: %w", err)
	}

	status := models.AttemptCompleted
	recent, _, err := s.repo.Attempt().ListByStudent(ctx, nil, student.ID, repositories.AttemptFilter{
		Status: &status,
		Limit:  dashboardRecentRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent attempts: %w", err)
	}

	available, _, err := s.repo.Quiz().List(ctx, nil, repositories.QuizFilter{
		ActiveOnly:         true,
		ExcludeAttemptedBy: &student.ID,
		Limit:              dashboardAvailableMax,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load available quizzes: %w", err)
	}
	ids := make([]uint, 0, len(available))
	for _, q := range available {
		ids = append(ids, q.ID)
	}
	totals, err := s.repo.Quiz().Totals(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz totals: %w", err)
	}
	availableResp := make([]QuizResponse, 0, len(available))
	for _, q := range available {
		availableResp = append(availableResp, toQuizResponse(q, totals[q.ID], false, false))
	}

	return &StudentDashboardResponse{
		Overall:        overall,
		Daily:          daily,
		RecentAttempts: toAttemptResponses(recent),
		AvailableQuiz:  availableResp,
		Chart:          chartSeries(daily),
	}, nil
}

// chartSeries takes newest-first rows and returns them oldest first
func chartSeries(daily []*models.DailyProgress) ChartSeries {
	series := ChartSeries{
		Labels: make([]string, 0, len(daily)),
		Values: make([]float64, 0, len(daily)),
	}
	for i := len(daily) - 1; i >= 0; i-- {
		series.Labels = append(series.Labels, time.Time(daily[i].Date).UTC().Format(chartDateLayout))
		series.Values = append(series.Values, daily[i].AveragePercentage)
	}
	return series
}
