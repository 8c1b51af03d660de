package models

import (
	"strings"
	"time"
)

type OptionLetter string

const (
	OptionA OptionLetter = "A"
	OptionB OptionLetter = "B"
	OptionC OptionLetter = "C"
	OptionD OptionLetter = "D"
)

func (o OptionLetter) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// ParseOption accepts lower case letters as well
func ParseOption(s string) (OptionLetter, bool) {
	o := OptionLetter(strings.ToUpper(strings.TrimSpace(s)))
	return o, o.Valid()
}

type Question struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	QuizID        uint         `json:"quiz_id" gorm:"not null;index"`
	QuestionText  string       `json:"question_text" gorm:"type:text;not null"`
	OptionA       string       `json:"option_a" gorm:"size:500;not null"`
	OptionB       string       `json:"option_b" gorm:"size:500;not null"`
	OptionC       string       `json:"option_c" gorm:"size:500;not null"`
	OptionD       string       `json:"option_d" gorm:"size:500;not null"`
	CorrectAnswer OptionLetter `json:"correct_answer" gorm:"size:1;not null"`
	Marks         int          `json:"marks" gorm:"not null;default:1"`
	TimeLimit     int          `json:"time_limit" gorm:"not null;default:60"` // seconds
	Explanation   string       `json:"explanation" gorm:"type:text"`
	Order         int          `json:"order" gorm:"column:display_order;not null;default:0;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// IsCorrect is the only source of answer correctness
func (q *Question) IsCorrect(selected OptionLetter) bool {
	return selected == q.CorrectAnswer
}

func (q *Question) Option(letter OptionLetter) string {
	switch letter {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}
