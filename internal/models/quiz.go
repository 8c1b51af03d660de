package models

import (
	"time"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

const (
	DefaultPassPercentage = 50
	DefaultQuestionMarks  = 1
	DefaultTimeLimit      = 60 // seconds
)

type Quiz struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Title          string          `json:"title" gorm:"size:200;not null"`
	Description    string          `json:"description" gorm:"type:text"`
	CreatedBy      string          `json:"created_by" gorm:"size:255;not null;index"`
	Difficulty     DifficultyLevel `json:"difficulty" gorm:"size:10;not null;default:medium"`
	IsActive       bool            `json:"is_active" gorm:"not null;index"`
	PassPercentage int             `json:"pass_percentage" gorm:"not null"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// TotalQuestions requires Questions to be loaded
func (q *Quiz) TotalQuestions() int {
	return len(q.Questions)
}

// TotalMarks is the sum of question marks, 0 for an empty quiz
func (q *Quiz) TotalMarks() int {
	total := 0
	for i := range q.Questions {
		total += q.Questions[i].Marks
	}
	return total
}

// QuizTotals holds the derived counts of one quiz, computed in SQL
type QuizTotals struct {
	QuizID         uint `json:"quiz_id"`
	TotalQuestions int  `json:"total_questions"`
	TotalMarks     int  `json:"total_marks"`
}
