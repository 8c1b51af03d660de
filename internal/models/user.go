package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTrainer UserRole = "trainer"
	RoleAdmin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// User is the local mirror of an identity-provider account
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	Username string   `json:"username" gorm:"size:150;index"`
	FullName string   `json:"full_name" gorm:"size:150"`
	Email    string   `json:"email" gorm:"size:255;index"`
	Role     UserRole `json:"role" gorm:"size:20;not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StudentProfile *StudentProfile `json:"student_profile,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	TrainerProfile *TrainerProfile `json:"trainer_profile,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

type StudentProfile struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	UserID            string     `json:"user_id" gorm:"size:255;not null;uniqueIndex"`
	Phone             string     `json:"phone" gorm:"size:15"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	EnrollmentNumber  string     `json:"enrollment_number" gorm:"size:20;not null;uniqueIndex"`
	IsActive          bool       `json:"is_active" gorm:"not null"`
	AssignedTrainerID *string    `json:"assigned_trainer_id" gorm:"size:255;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TrainerProfile struct {
	ID                uint    `json:"id" gorm:"primaryKey"`
	UserID            string  `json:"user_id" gorm:"size:255;not null;uniqueIndex"`
	Phone             string  `json:"phone" gorm:"size:15"`
	Specialization    string  `json:"specialization" gorm:"size:100"`
	EmployeeID        string  `json:"employee_id" gorm:"size:20;not null;uniqueIndex"`
	IsActive          bool    `json:"is_active" gorm:"not null"`
	AssignedByAdminID *string `json:"assigned_by_admin_id" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
