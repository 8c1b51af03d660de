package validator

import (
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestValidator_QuizCreateRequest(t *testing.T) {
	v := New()
	valid := QuestionRequest{
		QuestionText:  "2 + 2?",
		OptionA:       "3",
		OptionB:       "4",
		OptionC:       "5",
		OptionD:       "22",
		CorrectAnswer: "B",
	}

	tests := []struct {
		name      string
		req       QuizCreateRequest
		wantField string
	}{
		{name: "valid", req: QuizCreateRequest{Title: "Math", PassPercentage: intPtr(0), Questions: []QuestionRequest{valid}}},
		{name: "missing title", req: QuizCreateRequest{}, wantField: "title"},
		{name: "bad difficulty", req: QuizCreateRequest{Title: "x", Difficulty: "extreme"}, wantField: "difficulty"},
		{name: "pass percentage over 100", req: QuizCreateRequest{Title: "x", PassPercentage: intPtr(101)}, wantField: "pass_percentage"},
		{
			name: "bad option letter",
			req: QuizCreateRequest{Title: "x", Questions: []QuestionRequest{func() QuestionRequest {
				q := valid
				q.CorrectAnswer = "E"
				return q
			}()}},
			wantField: "questions[0].correct_answer",
		},
		{
			name: "zero marks",
			req: QuizCreateRequest{Title: "x", Questions: []QuestionRequest{func() QuestionRequest {
				q := valid
				q.Marks = intPtr(0)
				return q
			}()}},
			wantField: "questions[0].marks",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want ValidationErrors", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidator_RecordAnswerRequest(t *testing.T) {
	v := New()
	if err := v.Validate(&RecordAnswerRequest{QuestionID: 1, SelectedAnswer: "c"}); err != nil {
		t.Errorf("lower case option should be accepted: %v", err)
	}
	if err := v.Validate(&RecordAnswerRequest{QuestionID: 1, SelectedAnswer: "Z"}); err == nil {
		t.Error("option Z should be rejected")
	}
	if err := v.Validate(&RecordAnswerRequest{SelectedAnswer: "A"}); err == nil {
		t.Error("missing question id should be rejected")
	}
	if err := v.Validate(&RecordAnswerRequest{QuestionID: 1, SelectedAnswer: "A", TimeTaken: -1}); err == nil {
		t.Error("negative time should be rejected")
	}
}

func TestValidator_SetActiveRequest(t *testing.T) {
	v := New()
	if err := v.Validate(&SetActiveRequest{}); err == nil {
		t.Error("missing is_active should be rejected")
	}
	f := false
	if err := v.Validate(&SetActiveRequest{IsActive: &f}); err != nil {
		t.Errorf("explicit false should pass: %v", err)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "validation failed" {
		t.Errorf("empty = %q", got)
	}
	if got := NewValidationError("title", "is required").Error(); got != "validation failed: title is required" {
		t.Errorf("single = %q", got)
	}
}
