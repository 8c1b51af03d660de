package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reportService struct {
	repo    repositories.Repository
	logger  *slog.Logger
	trainer TrainerService
}

func NewReportService(repo repositories.Repository, logger *slog.Logger, trainer TrainerService) ReportService {
	return &reportService{
		repo:    repo,
		logger:  logger,
		trainer: trainer,
	}
}

// ExportStudentPerformance writes the performance view as Overview, Daily and
// Attempts sheets. Access rules are those of StudentPerformance.
func (s *reportService) ExportStudentPerformance(ctx context.Context, caller models.Principal, studentID string) (*Export, error) {
	perf, err := s.trainer.StudentPerformance(ctx, caller, studentID)
	if err != nil {
		return nil, err
	}

	wb := newWorkbook("Overview")
	defer wb.close(s.logger)

	o := perf.Overall
	wb.rows("Overview", [][]interface{}{
		{"Field", "Value"},
		{"Student", perf.Student.FullName},
		{"Username", perf.Student.Username},
		{"Email", perf.Student.Email},
		{"Quizzes attempted", o.TotalQuizzesAttempted},
		{"Quizzes passed", o.TotalQuizzesPassed},
		{"Quizzes failed", o.TotalQuizzesFailed},
		{"Total score", o.TotalScore},
		{"Total marks", o.TotalMarks},
		{"Overall percentage", o.OverallPercentage},
		{"Highest percentage", o.HighestScore},
		{"Lowest percentage", o.LowestScore},
		{"Time spent (s)", o.TotalTimeSpent},
		{"Last quiz", formatTime(o.LastQuizDate)},
	})

	daily := [][]interface{}{{"Date", "Attempted", "Passed", "Failed", "Score", "Marks", "Average %", "Time spent (s)"}}
	for _, d := range perf.Daily {
		daily = append(daily, []interface{}{
			time.Time(d.Date).UTC().Format(chartDateLayout),
			d.QuizzesAttempted, d.QuizzesPassed, d.QuizzesFailed,
			d.TotalScore, d.TotalMarks, d.AveragePercentage, d.TimeSpent,
		})
	}
	wb.sheet("Daily", daily)

	attempts := [][]interface{}{{"Attempt", "Quiz", "Status", "Started", "Ended", "Score", "Marks", "Percentage", "Passed", "Time (s)"}}
	for _, a := range perf.Attempts {
		attempts = append(attempts, []interface{}{
			a.ID, a.QuizTitle, string(a.Status),
			a.StartTime.Format(time.RFC3339), formatTime(a.EndTime),
			a.Score, a.TotalMarks, a.Percentage, passedLabel(a.IsPassed), a.TimeTaken,
		})
	}
	wb.sheet("Attempts", attempts)

	data, err := wb.bytes()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student performance exported", "student_id", studentID, "user_id", caller.UserID())
	return &Export{
		Filename:    fmt.Sprintf("student_%s_performance.xlsx", studentID),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

// ExportQuizResults lists every completed attempt on a quiz the caller owns
func (s *reportService) ExportQuizResults(ctx context.Context, caller models.Principal, quizID uint) (*Export, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		return nil, mapNotFound(err, ErrQuizNotFound)
	}
	if err := requireQuizOwner(caller, quiz, "export results"); err != nil {
		return nil, err
	}

	status := models.AttemptCompleted
	attempts, err := s.repo.Attempt().ListByQuiz(ctx, nil, quizID, repositories.AttemptFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	rows := [][]interface{}{{"Attempt", "Student", "Username", "Started", "Ended", "Score", "Marks", "Percentage", "Passed", "Time (s)"}}
	for _, a := range attempts {
		name, username := a.StudentID, ""
		if user, err := s.repo.User().GetByID(ctx, nil, a.StudentID); err == nil {
			name, username = user.FullName, user.Username
		} else if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load student: %w", err)
		}
		rows = append(rows, []interface{}{
			a.ID, name, username,
			a.StartTime.Format(time.RFC3339), formatTime(a.EndTime),
			a.Score, a.TotalMarks, a.Percentage, passedLabel(boolPtr(a.IsPassed(quiz.PassPercentage))), a.TimeTaken,
		})
	}

	wb := newWorkbook("Results")
	defer wb.close(s.logger)
	wb.rows("Results", rows)

	data, err := wb.bytes()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz results exported", "quiz_id", quizID, "rows", len(attempts), "user_id", caller.UserID())
	return &Export{
		Filename:    fmt.Sprintf("quiz_%d_results.xlsx", quizID),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

// workbook remembers the first write error so callers can chain writes
type workbook struct {
	file *excelize.File
	bold int
	err  error
}

func newWorkbook(firstSheet string) *workbook {
	wb := &workbook{file: excelize.NewFile()}
	wb.err = wb.file.SetSheetName("Sheet1", firstSheet)
	if wb.err == nil {
		wb.bold, wb.err = wb.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	}
	return wb
}

func (wb *workbook) sheet(name string, rows [][]interface{}) {
	if wb.err != nil {
		return
	}
	if _, err := wb.file.NewSheet(name); err != nil {
		wb.err = err
		return
	}
	wb.rows(name, rows)
}

// rows writes rows from A1 down, the first one in bold
func (wb *workbook) rows(sheet string, rows [][]interface{}) {
	for i, row := range rows {
		if wb.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			wb.err = err
			return
		}
		r := row
		wb.err = wb.file.SetSheetRow(sheet, cell, &r)
	}
	if wb.err == nil && len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			wb.err = err
			return
		}
		wb.err = wb.file.SetCellStyle(sheet, "A1", last, wb.bold)
	}
}

func (wb *workbook) bytes() ([]byte, error) {
	if wb.err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", wb.err)
	}
	buf, err := wb.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (wb *workbook) close(logger *slog.Logger) {
	if err := wb.file.Close(); err != nil {
		logger.Warn("Failed to close workbook", "error", err)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func passedLabel(passed *bool) string {
	switch {
	case passed == nil:
		return ""
	case *passed:
		return "yes"
	default:
		return "no"
	}
}

func boolPtr(b bool) *bool {
	return &b
}
