package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestAccountService_ProvisionByRole(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		id         string
		role       models.UserRole
		wantPrefix string
		wantActive bool
	}{
		{"student-1", models.RoleStudent, "ST", true},
		{"trainer-1", models.RoleTrainer, "TR", false},
		{"admin-1", models.RoleAdmin, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			user := env.provision(t, tt.id, tt.role)

			switch tt.role {
			case models.RoleStudent:
				p := user.StudentProfile
				if p == nil {
					t.Fatal("student profile missing")
				}
				if want := fmt.Sprintf("ST%05d", p.ID); p.EnrollmentNumber != want {
					t.Errorf("enrollment number = %s, want %s", p.EnrollmentNumber, want)
				}
				if p.IsActive != tt.wantActive {
					t.Errorf("active = %v, want %v", p.IsActive, tt.wantActive)
				}
			case models.RoleTrainer:
				p := user.TrainerProfile
				if p == nil {
					t.Fatal("trainer profile missing")
				}
				if want := fmt.Sprintf("TR%05d", p.ID); p.EmployeeID != want {
					t.Errorf("employee id = %s, want %s", p.EmployeeID, want)
				}
				if p.IsActive != tt.wantActive {
					t.Errorf("active = %v, want %v", p.IsActive, tt.wantActive)
				}
			default:
				if user.StudentProfile != nil || user.TrainerProfile != nil {
					t.Errorf("admin should have no profile")
				}
			}

			p := env.principal(t, tt.id)
			if p.Role() != tt.role || p.UserID() != tt.id {
				t.Errorf("principal = %+v", p)
			}
		})
	}
}

func TestAccountService_ProvisionIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.provision(t, "student-1", models.RoleStudent)
	again, err := env.accounts.Provision(ctx, &Identity{
		ID:       "student-1",
		FullName: "Renamed Student",
		Role:     models.RoleTrainer,
	})
	if err != nil {
		t.Fatalf("second provision: %v", err)
	}
	if again.Role != models.RoleStudent {
		t.Errorf("stored role changed to %s", again.Role)
	}
	if again.FullName != "Renamed Student" || again.Username != first.Username {
		t.Errorf("display fields not synced: %+v", again)
	}
	if again.StudentProfile == nil || again.StudentProfile.EnrollmentNumber != first.StudentProfile.EnrollmentNumber {
		t.Errorf("profile replaced on second provision")
	}

	_, err = env.accounts.Provision(ctx, &Identity{ID: "x", Role: "guest"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
}

func TestAccountService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.student(t, "student-1")
	trainer := env.trainer(t, "trainer-1")
	phone := "0123456789"
	spec := "Networking"
	name := "New Name"

	user, err := env.accounts.UpdateProfile(ctx, student, &ProfileUpdateRequest{FullName: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("student update: %v", err)
	}
	if user.FullName != name || user.StudentProfile.Phone != phone {
		t.Errorf("student update not applied: %+v", user)
	}

	_, err = env.accounts.UpdateProfile(ctx, student, &ProfileUpdateRequest{Specialization: &spec})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("expected validation error for a trainer field, got %v", err)
	}

	user, err = env.accounts.UpdateProfile(ctx, trainer, &ProfileUpdateRequest{Specialization: &spec})
	if err != nil {
		t.Fatalf("trainer update: %v", err)
	}
	if user.TrainerProfile.Specialization != spec {
		t.Errorf("specialization = %q, want %q", user.TrainerProfile.Specialization, spec)
	}
}

func TestAccountService_TrainerActivation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.provision(t, "trainer-1", models.RoleTrainer)
	other := env.trainer(t, "trainer-2")

	_, err := env.accounts.SetTrainerActive(ctx, other, "trainer-1", true)
	assertErrorIs(t, err, ErrPermissionDenied)

	user, err := env.accounts.SetTrainerActive(ctx, testAdmin, "trainer-1", true)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !user.TrainerProfile.IsActive || user.TrainerProfile.AssignedByAdminID == nil || *user.TrainerProfile.AssignedByAdminID != testAdmin.ID {
		t.Errorf("unexpected trainer profile: %+v", user.TrainerProfile)
	}
	if p := env.principal(t, "trainer-1").(models.Trainer); !p.Active {
		t.Errorf("principal still inactive")
	}

	_, err = env.accounts.SetTrainerActive(ctx, testAdmin, "missing", true)
	assertErrorIs(t, err, ErrNotFound)

	trainers, err := env.accounts.ListTrainers(ctx, testAdmin)
	if err != nil {
		t.Fatalf("list trainers: %v", err)
	}
	if len(trainers) != 2 {
		t.Errorf("trainers = %d, want 2", len(trainers))
	}
}

func TestAccountService_AssignStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.trainer(t, "trainer-1")
	second := env.trainer(t, "trainer-2")
	env.student(t, "student-1")

	user, err := env.accounts.AssignStudent(ctx, first, "student-1", nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if id := user.StudentProfile.AssignedTrainerID; id == nil || *id != first.ID {
		t.Fatalf("assigned trainer = %v, want %s", id, first.ID)
	}

	// assigning again to the same trainer is harmless
	if _, err := env.accounts.AssignStudent(ctx, first, "student-1", nil); err != nil {
		t.Errorf("repeat assign: %v", err)
	}

	_, err = env.accounts.AssignStudent(ctx, second, "student-1", nil)
	var rule *BusinessRuleError
	if !errors.As(err, &rule) || rule.Rule != "student_already_assigned" {
		t.Fatalf("expected student_already_assigned, got %v", err)
	}

	_, err = env.accounts.AssignStudent(ctx, testAdmin, "student-1", &AssignStudentRequest{})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("expected admins to name a trainer, got %v", err)
	}
	_, err = env.accounts.AssignStudent(ctx, testAdmin, "student-1", &AssignStudentRequest{TrainerID: "student-1"})
	assertErrorIs(t, err, ErrNotFound)

	user, err = env.accounts.AssignStudent(ctx, testAdmin, "student-1", &AssignStudentRequest{TrainerID: second.ID})
	if err != nil {
		t.Fatalf("admin reassign: %v", err)
	}
	if id := user.StudentProfile.AssignedTrainerID; id == nil || *id != second.ID {
		t.Errorf("assigned trainer = %v, want %s", id, second.ID)
	}
}

func TestAccountService_ToggleStudentActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.trainer(t, "trainer-1")
	stranger := env.trainer(t, "trainer-2")
	env.student(t, "student-1")
	if _, err := env.accounts.AssignStudent(ctx, owner, "student-1", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := env.accounts.ToggleStudentActive(ctx, stranger, "student-1")
	assertErrorIs(t, err, ErrPermissionDenied)

	user, err := env.accounts.ToggleStudentActive(ctx, owner, "student-1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if user.StudentProfile.IsActive {
		t.Errorf("expected student to be deactivated")
	}

	// a deactivated student cannot start quizzes
	quiz := env.quiz(t, owner, 50, questionDef{1, "A"})
	_, err = env.attempts.Start(ctx, env.principal(t, "student-1"), quiz.ID)
	assertErrorIs(t, err, ErrInactiveAccount)

	user, err = env.accounts.ToggleStudentActive(ctx, testAdmin, "student-1")
	if err != nil {
		t.Fatalf("admin toggle: %v", err)
	}
	if !user.StudentProfile.IsActive {
		t.Errorf("expected student to be active again")
	}
}

func TestAccountService_ListStudents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	env.student(t, "student-2")
	env.student(t, "student-3")
	if _, err := env.accounts.AssignStudent(ctx, trainer, "student-1", nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	unassigned := false

	tests := []struct {
		name   string
		caller models.Principal
		query  StudentQuery
		want   int64
	}{
		{"trainer sees own students", trainer, StudentQuery{}, 1},
		{"trainer sees unassigned pool", trainer, StudentQuery{Assigned: &unassigned}, 2},
		{"admin sees everyone", testAdmin, StudentQuery{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := env.accounts.ListStudents(ctx, tt.caller, tt.query)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if list.Total != tt.want || int64(len(list.Students)) != tt.want {
				t.Errorf("students = %d (total %d), want %d", len(list.Students), list.Total, tt.want)
			}
		})
	}

	_, err := env.accounts.ListStudents(ctx, student, StudentQuery{})
	assertErrorIs(t, err, ErrPermissionDenied)
}
