package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	AttemptStarted   EventType = "attempt.started"
	AttemptCompleted EventType = "attempt.completed"
	ProgressUpdated  EventType = "progress.updated"
)

const (
	eventSource  = "quiz-service"
	eventVersion = "1.0"
)

// Event is the envelope of every published message
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type AttemptStartedData struct {
	AttemptID  uint      `json:"attempt_id"`
	QuizID     uint      `json:"quiz_id"`
	StudentID  string    `json:"student_id"`
	TotalMarks int       `json:"total_marks"`
	StartTime  time.Time `json:"start_time"`
}

type AttemptCompletedData struct {
	AttemptID  uint      `json:"attempt_id"`
	QuizID     uint      `json:"quiz_id"`
	StudentID  string    `json:"student_id"`
	Score      int       `json:"score"`
	TotalMarks int       `json:"total_marks"`
	Percentage float64   `json:"percentage"`
	Passed     bool      `json:"passed"`
	TimeTaken  int       `json:"time_taken"`
	EndTime    time.Time `json:"end_time"`
}

type ProgressUpdatedData struct {
	StudentID         string    `json:"student_id"`
	Date              time.Time `json:"date"`
	DailyAttempted    int       `json:"daily_attempted"`
	DailyPercentage   float64   `json:"daily_percentage"`
	OverallAttempted  int       `json:"overall_attempted"`
	OverallPercentage float64   `json:"overall_percentage"`
}
