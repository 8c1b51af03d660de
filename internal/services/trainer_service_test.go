package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestTrainerService_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	other := env.trainer(t, "trainer-2")
	for _, id := range []string{"student-1", "student-2"} {
		env.student(t, id)
		if _, err := env.accounts.AssignStudent(ctx, trainer, id, nil); err != nil {
			t.Fatalf("assign %s: %v", id, err)
		}
	}
	if _, err := env.accounts.SetStudentActive(ctx, testAdmin, "student-2", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	mine := env.quiz(t, trainer, 50, questionDef{1, "A"})
	env.quiz(t, trainer, 50, questionDef{1, "A"})
	theirs := env.quiz(t, other, 50, questionDef{1, "A"})
	student := env.principal(t, "student-1")
	env.take(t, student, mine, time.Minute, "A")
	env.take(t, student, theirs, time.Minute, "A")

	dash, err := env.trainers.Dashboard(ctx, trainer)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TotalStudents != 2 || dash.ActiveStudents != 1 {
		t.Errorf("students = %d/%d active, want 2/1", dash.TotalStudents, dash.ActiveStudents)
	}
	if dash.TotalQuizzes != 2 || dash.TotalAttempts != 1 {
		t.Errorf("quizzes/attempts = %d/%d, want 2/1", dash.TotalQuizzes, dash.TotalAttempts)
	}
	if len(dash.RecentAttempts) != 1 || dash.RecentAttempts[0].QuizID != mine.ID {
		t.Errorf("unexpected recent attempts: %+v", dash.RecentAttempts)
	}

	_, err = env.trainers.Dashboard(ctx, student)
	assertErrorIs(t, err, ErrPermissionDenied)
}

func TestTrainerService_StudentPerformanceAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.trainer(t, "trainer-1")
	stranger := env.trainer(t, "trainer-2")
	env.student(t, "student-1")
	if _, err := env.accounts.AssignStudent(ctx, owner, "student-1", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	quiz := env.quiz(t, owner, 50, questionDef{2, "A"})
	env.take(t, env.principal(t, "student-1"), quiz, time.Minute, "A")

	tests := []struct {
		name   string
		caller models.Principal
		target string
		want   error
	}{
		{"assigned trainer", owner, "student-1", nil},
		{"admin", testAdmin, "student-1", nil},
		{"other trainer", stranger, "student-1", ErrPermissionDenied},
		{"student", env.principal(t, "student-1"), "student-1", ErrPermissionDenied},
		{"not a student", testAdmin, owner.ID, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perf, err := env.trainers.StudentPerformance(ctx, tt.caller, tt.target)
			if tt.want != nil {
				assertErrorIs(t, err, tt.want)
				return
			}
			if err != nil {
				t.Fatalf("performance: %v", err)
			}
			if perf.Overall.TotalQuizzesAttempted != 1 || len(perf.Daily) != 1 || len(perf.Attempts) != 1 {
				t.Errorf("unexpected performance view: %+v", perf)
			}
		})
	}
}

func TestReportService_Exports(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.trainer(t, "trainer-1")
	stranger := env.trainer(t, "trainer-2")
	quiz := env.quiz(t, owner, 50, questionDef{1, "A"}, questionDef{1, "B"})
	for _, id := range []string{"student-1", "student-2"} {
		env.student(t, id)
		if _, err := env.accounts.AssignStudent(ctx, owner, id, nil); err != nil {
			t.Fatalf("assign %s: %v", id, err)
		}
		env.take(t, env.principal(t, id), quiz, time.Minute, "A", "B")
	}

	open := func(t *testing.T, export *Export) *excelize.File {
		t.Helper()
		if export.ContentType != xlsxContentType || len(export.Data) == 0 {
			t.Fatalf("unexpected export: %s, %d bytes", export.ContentType, len(export.Data))
		}
		f, err := excelize.OpenReader(bytes.NewReader(export.Data))
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		t.Cleanup(func() { _ = f.Close() })
		return f
	}

	t.Run("quiz results", func(t *testing.T) {
		export, err := env.reports.ExportQuizResults(ctx, owner, quiz.ID)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		rows, err := open(t, export).GetRows("Results")
		if err != nil {
			t.Fatalf("rows: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want header plus 2", len(rows))
		}
		if rows[1][1] != "User student-1" && rows[2][1] != "User student-1" {
			t.Errorf("student names missing: %v", rows)
		}

		_, err = env.reports.ExportQuizResults(ctx, stranger, quiz.ID)
		assertErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("student performance", func(t *testing.T) {
		export, err := env.reports.ExportStudentPerformance(ctx, owner, "student-1")
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		f := open(t, export)
		want := []string{"Overview", "Daily", "Attempts"}
		sheets := f.GetSheetList()
		if len(sheets) != len(want) {
			t.Fatalf("sheets = %v, want %v", sheets, want)
		}
		for i := range want {
			if sheets[i] != want[i] {
				t.Errorf("sheet %d = %s, want %s", i, sheets[i], want[i])
			}
		}
		attempts, err := f.GetRows("Attempts")
		if err != nil {
			t.Fatalf("rows: %v", err)
		}
		if len(attempts) != 2 {
			t.Errorf("attempt rows = %d, want header plus 1", len(attempts))
		}

		_, err = env.reports.ExportStudentPerformance(ctx, stranger, "student-1")
		assertErrorIs(t, err, ErrPermissionDenied)
	})
}
