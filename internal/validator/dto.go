package validator

import "time"

// QuestionRequest describes one question when creating a quiz or adding to it
type QuestionRequest struct {
	QuestionText  string `json:"question_text" validate:"required,max=2000"`
	OptionA       string `json:"option_a" validate:"required,max=500"`
	OptionB       string `json:"option_b" validate:"required,max=500"`
	OptionC       string `json:"option_c" validate:"required,max=500"`
	OptionD       string `json:"option_d" validate:"required,max=500"`
	CorrectAnswer string `json:"correct_answer" validate:"required,option_letter"`
	Marks         *int   `json:"marks" validate:"omitempty,question_marks"`
	TimeLimit     *int   `json:"time_limit" validate:"omitempty,min=5,max=3600"`
	Explanation   string `json:"explanation" validate:"max=2000"`
	Order         *int   `json:"order" validate:"omitempty,min=0"`
}

// QuestionUpdateRequest changes only the fields that are set
type QuestionUpdateRequest struct {
	QuestionText  *string `json:"question_text" validate:"omitempty,min=1,max=2000"`
	OptionA       *string `json:"option_a" validate:"omitempty,min=1,max=500"`
	OptionB       *string `json:"option_b" validate:"omitempty,min=1,max=500"`
	OptionC       *string `json:"option_c" validate:"omitempty,min=1,max=500"`
	OptionD       *string `json:"option_d" validate:"omitempty,min=1,max=500"`
	CorrectAnswer *string `json:"correct_answer" validate:"omitempty,option_letter"`
	Marks         *int    `json:"marks" validate:"omitempty,question_marks"`
	TimeLimit     *int    `json:"time_limit" validate:"omitempty,min=5,max=3600"`
	Explanation   *string `json:"explanation" validate:"omitempty,max=2000"`
	Order         *int    `json:"order" validate:"omitempty,min=0"`
}

type QuizCreateRequest struct {
	Title          string            `json:"title" validate:"required,max=200"`
	Description    string            `json:"description" validate:"max=5000"`
	Difficulty     string            `json:"difficulty" validate:"omitempty,difficulty_level"`
	IsActive       *bool             `json:"is_active"`
	PassPercentage *int              `json:"pass_percentage" validate:"omitempty,pass_percentage"`
	Questions      []QuestionRequest `json:"questions" validate:"omitempty,max=200,dive"`
}

type QuizUpdateRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string `json:"description" validate:"omitempty,max=5000"`
	Difficulty     *string `json:"difficulty" validate:"omitempty,difficulty_level"`
	IsActive       *bool   `json:"is_active"`
	PassPercentage *int    `json:"pass_percentage" validate:"omitempty,pass_percentage"`
}

type ReorderQuestionsRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1,dive,required"`
}

type RecordAnswerRequest struct {
	QuestionID     uint   `json:"question_id" validate:"required"`
	SelectedAnswer string `json:"selected_answer" validate:"required,option_letter"`
	TimeTaken      int    `json:"time_taken" validate:"min=0,max=86400"`
}

type ProfileUpdateRequest struct {
	FullName       *string    `json:"full_name" validate:"omitempty,min=1,max=150"`
	Phone          *string    `json:"phone" validate:"omitempty,max=15"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Specialization *string    `json:"specialization" validate:"omitempty,max=100"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AssignStudentRequest lets an admin pick the trainer; trainers assign to themselves
type AssignStudentRequest struct {
	TrainerID string `json:"trainer_id" validate:"omitempty,max=255"`
}
