package models

import (
	"time"

	"gorm.io/datatypes"
)

// DailyProgress is derived state, recomputed from completed attempts
type DailyProgress struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	StudentID         string         `json:"student_id" gorm:"size:255;not null;uniqueIndex:idx_daily_student_date"`
	Date              datatypes.Date `json:"date" gorm:"not null;uniqueIndex:idx_daily_student_date"`
	QuizzesAttempted  int            `json:"quizzes_attempted"`
	QuizzesPassed     int            `json:"quizzes_passed"`
	QuizzesFailed     int            `json:"quizzes_failed"`
	TotalScore        int            `json:"total_score"`
	TotalMarks        int            `json:"total_marks"`
	AveragePercentage float64        `json:"average_percentage"`
	TimeSpent         int            `json:"time_spent"` // seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DailyProgress) TableName() string {
	return "daily_progress"
}

// OverallProgress is derived state, recomputed from completed attempts
type OverallProgress struct {
	ID                    uint       `json:"id" gorm:"primaryKey"`
	StudentID             string     `json:"student_id" gorm:"size:255;not null;uniqueIndex"`
	TotalQuizzesAttempted int        `json:"total_quizzes_attempted"`
	TotalQuizzesPassed    int        `json:"total_quizzes_passed"`
	TotalQuizzesFailed    int        `json:"total_quizzes_failed"`
	TotalScore            int        `json:"total_score"`
	TotalMarks            int        `json:"total_marks"`
	OverallPercentage     float64    `json:"overall_percentage"`
	TotalTimeSpent        int        `json:"total_time_spent"` // seconds
	HighestScore          float64    `json:"highest_score"`    // best percentage
	LowestScore           float64    `json:"lowest_score"`     // worst percentage
	LastQuizDate          *time.Time `json:"last_quiz_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OverallProgress) TableName() string {
	return "overall_progress"
}

// AttemptOutcome is the slice of a completed attempt the rollups need
type AttemptOutcome struct {
	AttemptID      uint
	Score          int
	TotalMarks     int
	Percentage     float64
	PassPercentage int
	TimeTaken      int
	StartTime      time.Time
}

func (o AttemptOutcome) Passed() bool {
	return o.Percentage >= float64(o.PassPercentage)
}

// Rollup aggregates a set of completed attempts
type Rollup struct {
	Attempted  int
	Passed     int
	Failed     int
	TotalScore int
	TotalMarks int
	Percentage float64
	TimeSpent  int
	Highest    float64
	Lowest     float64
}

func Aggregate(outcomes []AttemptOutcome) Rollup {
	var r Rollup
	for i, o := range outcomes {
		r.Attempted++
		if o.Passed() {
			r.Passed++
		}
		r.TotalScore += o.Score
		r.TotalMarks += o.TotalMarks
		r.TimeSpent += o.TimeTaken
		if i == 0 || o.Percentage > r.Highest {
			r.Highest = o.Percentage
		}
		if i == 0 || o.Percentage < r.Lowest {
			r.Lowest = o.Percentage
		}
	}
	r.Failed = r.Attempted - r.Passed
	r.Percentage = Percentage(r.TotalScore, r.TotalMarks)
	return r
}

// ApplyDaily overwrites every derived field of p
func (r Rollup) ApplyDaily(p *DailyProgress) {
	p.QuizzesAttempted = r.Attempted
	p.QuizzesPassed = r.Passed
	p.QuizzesFailed = r.Failed
	p.TotalScore = r.TotalScore
	p.TotalMarks = r.TotalMarks
	p.AveragePercentage = r.Percentage
	p.TimeSpent = r.TimeSpent
}

func (r Rollup) ApplyOverall(p *OverallProgress) {
	p.TotalQuizzesAttempted = r.Attempted
	p.TotalQuizzesPassed = r.Passed
	p.TotalQuizzesFailed = r.Failed
	p.TotalScore = r.TotalScore
	p.TotalMarks = r.TotalMarks
	p.OverallPercentage = r.Percentage
	p.TotalTimeSpent = r.TimeSpent
	p.HighestScore = r.Highest
	p.LowestScore = r.Lowest
}

// DayOf truncates t to midnight in loc
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
