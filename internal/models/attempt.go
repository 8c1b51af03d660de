package models

import (
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	// AttemptAbandoned is stored but nothing transitions into it yet
	AttemptAbandoned AttemptStatus = "abandoned"
)

// QuizAttempt is unique per (student, quiz) whatever its status
type QuizAttempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	StudentID string        `json:"student_id" gorm:"size:255;not null;uniqueIndex:idx_attempt_student_quiz"`
	QuizID    uint          `json:"quiz_id" gorm:"not null;uniqueIndex:idx_attempt_student_quiz;index"`
	Status    AttemptStatus `json:"status" gorm:"size:20;not null;index"`

	StartTime time.Time  `json:"start_time" gorm:"not null;index"`
	EndTime   *time.Time `json:"end_time"`
	TimeTaken int        `json:"time_taken"` // seconds

	Score      int     `json:"score"`
	TotalMarks int     `json:"total_marks"` // snapshot taken at start
	Percentage float64 `json:"percentage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Quiz    *Quiz           `json:"quiz,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
	Answers []StudentAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) IsPassed(passPercentage int) bool {
	return a.Percentage >= float64(passPercentage)
}

func (a *QuizAttempt) IsCompleted() bool {
	return a.Status == AttemptCompleted
}

// StudentAnswer is unique per (attempt, question). Marks is the question's
// marks at the time the answer was written.
type StudentAnswer struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	AttemptID      uint         `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID     uint         `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question;index"`
	SelectedAnswer OptionLetter `json:"selected_answer" gorm:"size:1;not null"`
	IsCorrect      bool         `json:"is_correct" gorm:"not null"`
	Marks          int          `json:"marks" gorm:"not null"`
	TimeTaken      int          `json:"time_taken"` // seconds
	AnsweredAt     time.Time    `json:"answered_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}

// AwardedMarks is zero for a wrong answer
func (a *StudentAnswer) AwardedMarks() int {
	if a.IsCorrect {
		return a.Marks
	}
	return 0
}

// Percentage returns 100*score/total, or 0 when total is not positive
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(score) / float64(total)
}
