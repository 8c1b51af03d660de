package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

func TestNewEventPublisher_InProcessFallbackIsLogged(t *testing.T) {
	var buf bytes.Buffer
	slogLogger := slog.New(slog.NewTextHandler(&buf, nil))

	publisher, err := newEventPublisher(&config.Config{EventTopicPrefix: "quiz"}, slogLogger, utils.NewSlogLogger(slogLogger))
	if err != nil {
		t.Fatalf("newEventPublisher() error = %v", err)
	}
	defer publisher.Close()

	if !strings.Contains(buf.String(), "Kafka not configured, events stay in-process") {
		t.Errorf("expected the fallback to be logged, got %q", buf.String())
	}
}
