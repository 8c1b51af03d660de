package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

func TestAttemptService_ScoresAgainstQuestionMarks(t *testing.T) {
	env := newTestEnv(t)
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 50, questionDef{1, "A"}, questionDef{2, "C"})

	attempt := env.start(t, student, quiz.ID)
	if attempt.Status != models.AttemptInProgress || attempt.TotalMarks != 3 {
		t.Fatalf("unexpected started attempt: %+v", attempt)
	}

	first := env.answer(t, student, attempt.ID, quiz.Questions[0].ID, "a")
	if !first.IsCorrect || first.SelectedAnswer != models.OptionA {
		t.Errorf("expected lower case a to be accepted as correct, got %+v", first)
	}
	if second := env.answer(t, student, attempt.ID, quiz.Questions[1].ID, "B"); second.IsCorrect {
		t.Errorf("expected B to be incorrect")
	}

	env.clock.Advance(95 * time.Second)
	done := env.finalize(t, student, attempt.ID)

	if done.Status != models.AttemptCompleted {
		t.Errorf("expected completed status, got %s", done.Status)
	}
	if done.Score != 1 || done.TotalMarks != 3 {
		t.Errorf("expected 1/3, got %d/%d", done.Score, done.TotalMarks)
	}
	if !approxEqual(done.Percentage, 100.0/3.0) {
		t.Errorf("expected 33.33%%, got %f", done.Percentage)
	}
	if done.TimeTaken != 95 {
		t.Errorf("expected 95s, got %d", done.TimeTaken)
	}
	if done.EndTime == nil || !done.EndTime.Equal(env.clock.Now()) {
		t.Errorf("expected end time %v, got %v", env.clock.Now(), done.EndTime)
	}
	if done.IsPassed == nil || *done.IsPassed {
		t.Errorf("expected attempt below 50%% to fail")
	}
}

func TestAttemptService_StartPreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	active := env.quiz(t, trainer, 50, questionDef{1, "A"})

	hidden := env.quiz(t, trainer, 50, questionDef{1, "A"})
	off := false
	if _, err := env.quizzes.Update(ctx, trainer, hidden.ID, &UpdateQuizRequest{IsActive: &off}); err != nil {
		t.Fatalf("deactivate quiz: %v", err)
	}

	env.student(t, "inactive")
	if _, err := env.accounts.SetStudentActive(ctx, testAdmin, "inactive", false); err != nil {
		t.Fatalf("deactivate student: %v", err)
	}
	inactive := env.principal(t, "inactive")
	student := env.student(t, "student-1")

	// resolved while active, deactivated before starting
	stale := env.student(t, "stale")
	if _, err := env.accounts.SetStudentActive(ctx, testAdmin, "stale", false); err != nil {
		t.Fatalf("deactivate student: %v", err)
	}

	tests := []struct {
		name   string
		caller models.Principal
		quizID uint
		want   error
	}{
		{"trainer cannot take quizzes", trainer, active.ID, ErrPermissionDenied},
		{"admin cannot take quizzes", testAdmin, active.ID, ErrPermissionDenied},
		{"inactive student", inactive, active.ID, ErrInactiveAccount},
		{"deactivated after sign-in", stale, active.ID, ErrInactiveAccount},
		{"unknown quiz", student, 9999, ErrNotFound},
		{"inactive quiz", student, hidden.ID, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.attempts.Start(ctx, tt.caller, tt.quizID)
			assertErrorIs(t, err, tt.want)
		})
	}

	if got := env.publisher.EventsOfType(events.AttemptStarted); len(got) != 0 {
		t.Errorf("expected no start events for rejected starts, got %d", len(got))
	}
}

func TestAttemptService_OneAttemptPerQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 50, questionDef{1, "A"})

	attempt := env.start(t, student, quiz.ID)

	_, err := env.attempts.Start(ctx, student, quiz.ID)
	assertErrorIs(t, err, ErrDuplicateAttempt)

	env.finalize(t, student, attempt.ID)
	_, err = env.attempts.Start(ctx, student, quiz.ID)
	assertErrorIs(t, err, ErrDuplicateAttempt)

	// another student is unaffected
	env.start(t, env.student(t, "student-2"), quiz.ID)
}

func TestAttemptService_FinalizeOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 50, questionDef{2, "B"})

	attempt := env.start(t, student, quiz.ID)
	env.answer(t, student, attempt.ID, quiz.Questions[0].ID, "B")
	env.clock.Advance(time.Minute)
	first := env.finalize(t, student, attempt.ID)

	env.clock.Advance(time.Hour)
	_, err := env.attempts.Finalize(ctx, student, attempt.ID)
	assertErrorIs(t, err, ErrInvalidState)

	_, err = env.attempts.RecordAnswer(ctx, student, attempt.ID, &RecordAnswerRequest{
		QuestionID:     quiz.Questions[0].ID,
		SelectedAnswer: "A",
	})
	assertErrorIs(t, err, ErrInvalidState)

	stored, err := env.repo.Attempt().GetByID(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("reload attempt: %v", err)
	}
	if stored.Score != first.Score || stored.TimeTaken != first.TimeTaken || !stored.EndTime.Equal(*first.EndTime) {
		t.Errorf("second finalize changed the attempt: %+v", stored)
	}

	overall, err := env.progress.Overall(ctx, student.ID)
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if overall.TotalQuizzesAttempted != 1 {
		t.Errorf("expected one counted attempt, got %d", overall.TotalQuizzesAttempted)
	}
}

func TestAttemptService_RecordAnswerOverwrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 50, questionDef{1, "A"}, questionDef{1, "D"})
	attempt := env.start(t, student, quiz.ID)
	q := quiz.Questions[0].ID

	for _, opt := range []string{"A", "B", "C", "A", "D"} {
		answer := env.answer(t, student, attempt.ID, q, opt)
		if want := opt == "A"; answer.IsCorrect != want {
			t.Errorf("option %s: expected correct=%v", opt, want)
		}
	}

	answers, err := env.repo.Answer().ListByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("expected a single stored answer, got %d", len(answers))
	}
	if answers[0].SelectedAnswer != models.OptionD || answers[0].IsCorrect {
		t.Errorf("expected the last selection to win, got %+v", answers[0])
	}

	done := env.finalize(t, student, attempt.ID)
	if done.Score != 0 {
		t.Errorf("expected score 0 after overwriting with a wrong answer, got %d", done.Score)
	}
}

func TestAttemptService_RecordAnswerRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	owner := env.student(t, "student-1")
	other := env.student(t, "student-2")
	quiz := env.quiz(t, trainer, 50, questionDef{1, "A"})
	foreign := env.quiz(t, trainer, 50, questionDef{1, "A"})
	attempt := env.start(t, owner, quiz.ID)

	tests := []struct {
		name      string
		caller    models.Principal
		attemptID uint
		req       *RecordAnswerRequest
		want      error
	}{
		{
			name:      "another student's attempt",
			caller:    other,
			attemptID: attempt.ID,
			req:       &RecordAnswerRequest{QuestionID: quiz.Questions[0].ID, SelectedAnswer: "A"},
			want:      ErrPermissionDenied,
		},
		{
			name:      "question from another quiz",
			caller:    owner,
			attemptID: attempt.ID,
			req:       &RecordAnswerRequest{QuestionID: foreign.Questions[0].ID, SelectedAnswer: "A"},
			want:      ErrNotFound,
		},
		{
			name:      "unknown attempt",
			caller:    owner,
			attemptID: 9999,
			req:       &RecordAnswerRequest{QuestionID: quiz.Questions[0].ID, SelectedAnswer: "A"},
			want:      ErrNotFound,
		},
		{
			name:      "option outside A to D",
			caller:    owner,
			attemptID: attempt.ID,
			req:       &RecordAnswerRequest{QuestionID: quiz.Questions[0].ID, SelectedAnswer: "E"},
			want:      nil,
		},
		{
			name:      "trainer",
			caller:    trainer,
			attemptID: attempt.ID,
			req:       &RecordAnswerRequest{QuestionID: quiz.Questions[0].ID, SelectedAnswer: "A"},
			want:      ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.attempts.RecordAnswer(ctx, tt.caller, tt.attemptID, tt.req)
			if tt.want == nil {
				var verrs ValidationErrors
				if !errors.As(err, &verrs) {
					t.Fatalf("expected validation errors, got %v", err)
				}
				return
			}
			assertErrorIs(t, err, tt.want)
		})
	}

	answers, err := env.repo.Answer().ListByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 0 {
		t.Errorf("rejected answers were stored: %d", len(answers))
	}
}

func TestAttemptService_EmptyQuizScoresZero(t *testing.T) {
	env := newTestEnv(t)
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 0)

	done := env.take(t, student, quiz, time.Second)
	if done.TotalMarks != 0 || done.Score != 0 || done.Percentage != 0 {
		t.Errorf("expected zeroed attempt, got %+v", done)
	}
	// a pass mark of 0 is met by 0%
	if done.IsPassed == nil || !*done.IsPassed {
		t.Errorf("expected pass with pass percentage 0")
	}
}

func TestAttemptService_ResultCountsUnanswered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 40,
		questionDef{2, "A"}, questionDef{1, "B"}, questionDef{1, "C"}, questionDef{1, "D"})

	attempt := env.start(t, student, quiz.ID)
	_, err := env.attempts.Result(ctx, student, attempt.ID)
	assertErrorIs(t, err, ErrInvalidState)

	env.answer(t, student, attempt.ID, quiz.Questions[0].ID, "A")
	env.answer(t, student, attempt.ID, quiz.Questions[1].ID, "C")
	env.finalize(t, student, attempt.ID)

	result, err := env.attempts.Result(ctx, student, attempt.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.CorrectCount != 1 || result.IncorrectCount != 1 || result.UnansweredCount != 2 || result.TotalIncorrect != 3 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if !result.IsPassed || result.PassPercentage != 40 {
		t.Errorf("expected 2/5 to pass at 40%%, got passed=%v", result.IsPassed)
	}
	if len(result.Items) != 4 {
		t.Fatalf("expected one item per question, got %d", len(result.Items))
	}
	if got := result.Items[0]; !got.IsCorrect || got.MarksAwarded != 2 || got.Question.CorrectAnswer != models.OptionA {
		t.Errorf("unexpected first item: %+v", got)
	}
	if got := result.Items[2]; got.Answer != nil || got.IsCorrect || got.MarksAwarded != 0 {
		t.Errorf("expected unanswered third item, got %+v", got)
	}

	// staff may read results, other students may not
	if _, err := env.attempts.Result(ctx, trainer, attempt.ID); err != nil {
		t.Errorf("trainer result: %v", err)
	}
	_, err = env.attempts.Result(ctx, env.student(t, "student-2"), attempt.ID)
	assertErrorIs(t, err, ErrPermissionDenied)
}

func TestAttemptService_GetHidesAnswerKeyUntilCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 50, questionDef{1, "C"})
	attempt := env.start(t, student, quiz.ID)
	env.answer(t, student, attempt.ID, quiz.Questions[0].ID, "B")

	detail, err := env.attempts.Get(ctx, student, attempt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Questions[0].CorrectAnswer != "" {
		t.Errorf("answer key leaked during the attempt")
	}
	if detail.Questions[0].SelectedAnswer != models.OptionB || detail.AnsweredCount != 1 {
		t.Errorf("expected the student's selection, got %+v", detail.Questions[0])
	}

	staff, err := env.attempts.Get(ctx, trainer, attempt.ID)
	if err != nil {
		t.Fatalf("get as trainer: %v", err)
	}
	if staff.Questions[0].CorrectAnswer != models.OptionC {
		t.Errorf("expected staff to see the answer key")
	}

	env.finalize(t, student, attempt.ID)
	detail, err = env.attempts.Get(ctx, student, attempt.ID)
	if err != nil {
		t.Fatalf("get after finalize: %v", err)
	}
	if detail.Questions[0].CorrectAnswer != models.OptionC {
		t.Errorf("expected answer key after completion")
	}
}

func TestAttemptService_ListMine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")

	for i := 0; i < 3; i++ {
		quiz := env.quiz(t, trainer, 50, questionDef{1, "A"})
		env.take(t, student, quiz, time.Minute, "A")
	}
	env.take(t, env.student(t, "student-2"), env.quiz(t, trainer, 50, questionDef{1, "A"}), time.Minute)

	list, err := env.attempts.ListMine(ctx, student, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 3 || len(list.Attempts) != 2 {
		t.Errorf("expected page of 2 out of 3, got %d of %d", len(list.Attempts), list.Total)
	}
	for _, a := range list.Attempts {
		if a.StudentID != student.ID {
			t.Errorf("listed another student's attempt: %+v", a)
		}
	}

	_, err = env.attempts.ListMine(ctx, trainer, 1, 10)
	assertErrorIs(t, err, ErrPermissionDenied)
}

func TestAttemptService_PublishesLifecycleEvents(t *testing.T) {
	env := newTestEnv(t)
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 50, questionDef{1, "A"})

	done := env.take(t, student, quiz, 30*time.Second, "A")

	started := env.publisher.EventsOfType(events.AttemptStarted)
	if len(started) != 1 {
		t.Fatalf("expected one start event, got %d", len(started))
	}
	completed := env.publisher.EventsOfType(events.AttemptCompleted)
	if len(completed) != 1 {
		t.Fatalf("expected one completion event, got %d", len(completed))
	}
	data, ok := completed[0].Data.(events.AttemptCompletedData)
	if !ok {
		t.Fatalf("unexpected payload type %T", completed[0].Data)
	}
	if data.AttemptID != done.ID || data.Score != 1 || !data.Passed || data.TimeTaken != 30 {
		t.Errorf("unexpected completion payload: %+v", data)
	}

	updated := env.publisher.EventsOfType(events.ProgressUpdated)
	if len(updated) != 1 {
		t.Fatalf("expected one progress event, got %d", len(updated))
	}
	progress := updated[0].Data.(events.ProgressUpdatedData)
	if progress.DailyAttempted != 1 || progress.OverallAttempted != 1 || !approxEqual(progress.OverallPercentage, 100) {
		t.Errorf("unexpected progress payload: %+v", progress)
	}
}

func TestAttemptService_PublishFailureDoesNotFailFinalize(t *testing.T) {
	env := newTestEnv(t)
	trainer := env.trainer(t, "trainer-1")
	student := env.student(t, "student-1")
	quiz := env.quiz(t, trainer, 50, questionDef{1, "A"})

	env.publisher.Err = errors.New("broker down")
	done := env.take(t, student, quiz, time.Second, "A")
	if done.Status != models.AttemptCompleted {
		t.Errorf("expected completed attempt despite publish failure")
	}
}
