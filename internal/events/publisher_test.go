package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillEventPublisher_InProcess(t *testing.T) {
	publisher, pubSub := NewInProcessEventPublisher("quiz", testLogger())
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "quiz.attempt.completed")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	event := NewEvent(AttemptCompleted, AttemptCompletedData{AttemptID: 7, StudentID: "s1", Score: 1, TotalMarks: 3})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("message uuid = %s, want %s", msg.UUID, event.ID)
		}
		if msg.Metadata.Get("event_type") != string(AttemptCompleted) {
			t.Errorf("event_type metadata = %q", msg.Metadata.Get("event_type"))
		}
		var decoded struct {
			Type   EventType            `json:"type"`
			Source string               `json:"source"`
			Data   AttemptCompletedData `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if decoded.Source != "quiz-service" || decoded.Data.AttemptID != 7 || decoded.Data.TotalMarks != 3 {
			t.Errorf("decoded = %+v", decoded)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestWatermillEventPublisher_Topic(t *testing.T) {
	p := NewWatermillEventPublisher(nil, "", testLogger())
	if got := p.Topic(ProgressUpdated); got != "progress.updated" {
		t.Errorf("Topic() = %q", got)
	}
	p = NewWatermillEventPublisher(nil, "lms", testLogger())
	if got := p.Topic(AttemptStarted); got != "lms.attempt.started" {
		t.Errorf("Topic() = %q", got)
	}
}

func TestMockEventPublisher(t *testing.T) {
	m := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	_ = m.Publish(ctx, NewEvent(AttemptStarted, nil))
	_ = m.Publish(ctx, NewEvent(AttemptCompleted, nil))
	_ = m.Publish(ctx, NewEvent(AttemptCompleted, nil))

	if got := len(m.GetPublishedEvents()); got != 3 {
		t.Errorf("published = %d, want 3", got)
	}
	if got := len(m.EventsOfType(AttemptCompleted)); got != 2 {
		t.Errorf("completed = %d, want 2", got)
	}

	m.ClearEvents()
	m.Err = errors.New("broker down")
	if err := m.Publish(ctx, NewEvent(ProgressUpdated, nil)); err == nil {
		t.Error("expected injected error")
	}
	if len(m.GetPublishedEvents()) != 0 {
		t.Error("failed publish must not be recorded")
	}
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(ProgressUpdated, ProgressUpdatedData{StudentID: "s1"})
	if e.ID == "" || e.Version != "1.0" || e.Source != "quiz-service" || e.Timestamp.IsZero() {
		t.Errorf("NewEvent() = %+v", e)
	}
}
