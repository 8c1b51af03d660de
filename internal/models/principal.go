package models

import "fmt"

// Principal is the authenticated caller. Exactly one of Student, Trainer
// or Admin implements it for a given account.
type Principal interface {
	UserID() string
	Role() UserRole
	principal()
}

type Student struct {
	ID                string
	Active            bool
	AssignedTrainerID *string
}

type Trainer struct {
	ID             string
	Active         bool
	Specialization string
}

type Admin struct {
	ID string
}

func (s Student) UserID() string { return s.ID }
func (s Student) Role() UserRole { return RoleStudent }
func (Student) principal()       {}

func (t Trainer) UserID() string { return t.ID }
func (t Trainer) Role() UserRole { return RoleTrainer }
func (Trainer) principal()       {}

func (a Admin) UserID() string { return a.ID }
func (a Admin) Role() UserRole { return RoleAdmin }
func (Admin) principal()       {}

// IsStaff reports whether p may author quizzes and view other students' results
func IsStaff(p Principal) bool {
	switch p.(type) {
	case Trainer, Admin:
		return true
	}
	return false
}

// IsActive reports whether a student account may start quizzes
func IsActive(s Student) bool {
	return s.Active
}

// AssignedTrainer returns the trainer responsible for s, if any
func AssignedTrainer(s Student) (string, bool) {
	if s.AssignedTrainerID == nil || *s.AssignedTrainerID == "" {
		return "", false
	}
	return *s.AssignedTrainerID, true
}

// Principal converts a stored account into its role variant. The matching
// profile must be loaded for students and trainers.
func (u *User) Principal() (Principal, error) {
	switch u.Role {
	case RoleStudent:
		if u.StudentProfile == nil {
			return nil, fmt.Errorf("student %s has no profile", u.ID)
		}
		return Student{
			ID:                u.ID,
			Active:            u.StudentProfile.IsActive,
			AssignedTrainerID: u.StudentProfile.AssignedTrainerID,
		}, nil
	case RoleTrainer:
		if u.TrainerProfile == nil {
			return nil, fmt.Errorf("trainer %s has no profile", u.ID)
		}
		return Trainer{
			ID:             u.ID,
			Active:         u.TrainerProfile.IsActive,
			Specialization: u.TrainerProfile.Specialization,
		}, nil
	case RoleAdmin:
		return Admin{ID: u.ID}, nil
	default:
		return nil, fmt.Errorf("unknown role %q for user %s", u.Role, u.ID)
	}
}
