package repositories

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsDuplicateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "sentinel", err: fmt.Errorf("create: %w", ErrDuplicateKey), want: true},
		{name: "gorm translated", err: gorm.ErrDuplicatedKey, want: true},
		{name: "postgres message", err: errors.New(`ERROR: duplicate key value violates unique constraint "idx_attempt_student_quiz"`), want: true},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: quiz_attempts.student_id, quiz_attempts.quiz_id"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateError(tt.err); got != tt.want {
				t.Errorf("IsDuplicateError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	if !IsNotFoundError(gorm.ErrRecordNotFound) {
		t.Error("gorm.ErrRecordNotFound should be not found")
	}
	if !IsNotFoundError(fmt.Errorf("quiz 7: %w", ErrNotFound)) {
		t.Error("wrapped ErrNotFound should be not found")
	}
	if IsNotFoundError(errors.New("boom")) {
		t.Error("unrelated error reported as not found")
	}
}
