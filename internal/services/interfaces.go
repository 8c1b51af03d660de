package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== REQUEST TYPES =====

type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest
type QuestionRequest = validator.QuestionRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type ReorderQuestionsRequest = validator.ReorderQuestionsRequest
type RecordAnswerRequest = validator.RecordAnswerRequest
type ProfileUpdateRequest = validator.ProfileUpdateRequest
type AssignStudentRequest = validator.AssignStudentRequest

// Identity is what the identity provider tells us about a caller
type Identity struct {
	ID       string
	Username string
	FullName string
	Email    string
	Role     models.UserRole
}

type StudentQuery struct {
	// Assigned=false lists unassigned students. Otherwise trainers see their
	// own students and admins see everyone.
	Assigned *bool
	Page     int
	Size     int
}

// ===== RESPONSE TYPES =====

type QuestionResponse struct {
	ID             uint                `json:"id"`
	QuizID         uint                `json:"quiz_id"`
	QuestionText   string              `json:"question_text"`
	OptionA        string              `json:"option_a"`
	OptionB        string              `json:"option_b"`
	OptionC        string              `json:"option_c"`
	OptionD        string              `json:"option_d"`
	CorrectAnswer  models.OptionLetter `json:"correct_answer,omitempty"`
	Marks          int                 `json:"marks"`
	TimeLimit      int                 `json:"time_limit"`
	Explanation    string              `json:"explanation,omitempty"`
	Order          int                 `json:"order"`
	SelectedAnswer models.OptionLetter `json:"selected_answer,omitempty"`
}

type QuizResponse struct {
	ID             uint                   `json:"id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	CreatedBy      string                 `json:"created_by"`
	Difficulty     models.DifficultyLevel `json:"difficulty"`
	IsActive       bool                   `json:"is_active"`
	PassPercentage int                    `json:"pass_percentage"`
	TotalQuestions int                    `json:"total_questions"`
	TotalMarks     int                    `json:"total_marks"`
	HasAttempted   *bool                  `json:"has_attempted,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Questions      []QuestionResponse     `json:"questions,omitempty"`
}

type QuizListResponse struct {
	Quizzes []QuizResponse `json:"quizzes"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
}

type AttemptResponse struct {
	ID         uint                 `json:"id"`
	QuizID     uint                 `json:"quiz_id"`
	QuizTitle  string               `json:"quiz_title,omitempty"`
	StudentID  string               `json:"student_id"`
	Status     models.AttemptStatus `json:"status"`
	StartTime  time.Time            `json:"start_time"`
	EndTime    *time.Time           `json:"end_time,omitempty"`
	TimeTaken  int                  `json:"time_taken"`
	Score      int                  `json:"score"`
	TotalMarks int                  `json:"total_marks"`
	Percentage float64              `json:"percentage"`
	IsPassed   *bool                `json:"is_passed,omitempty"`
}

type AttemptListResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
}

// AttemptDetailResponse shows an attempt with its questions. Correct answers
// are only filled in once the attempt is completed or for staff.
type AttemptDetailResponse struct {
	Attempt       AttemptResponse    `json:"attempt"`
	Questions     []QuestionResponse `json:"questions"`
	AnsweredCount int                `json:"answered_count"`
}

type AnswerResponse struct {
	AttemptID      uint                `json:"attempt_id"`
	QuestionID     uint                `json:"question_id"`
	SelectedAnswer models.OptionLetter `json:"selected_answer"`
	IsCorrect      bool                `json:"is_correct"`
	TimeTaken      int                 `json:"time_taken"`
	AnsweredAt     time.Time           `json:"answered_at"`
}

type ResultItem struct {
	Question     QuestionResponse `json:"question"`
	Answer       *AnswerResponse  `json:"answer"`
	IsCorrect    bool             `json:"is_correct"`
	MarksAwarded int              `json:"marks_awarded"`
}

type ResultResponse struct {
	Attempt         AttemptResponse `json:"attempt"`
	PassPercentage  int             `json:"pass_percentage"`
	IsPassed        bool            `json:"is_passed"`
	CorrectCount    int             `json:"correct_count"`
	IncorrectCount  int             `json:"incorrect_count"`
	UnansweredCount int             `json:"unanswered_count"`
	TotalIncorrect  int             `json:"total_incorrect"`
	Items           []ResultItem    `json:"items"`
}

// ProgressSnapshot is the pair of rows written by one recomputation
type ProgressSnapshot struct {
	Daily   *models.DailyProgress   `json:"daily"`
	Overall *models.OverallProgress `json:"overall"`
}

type ChartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type StudentDashboardResponse struct {
	Overall        *models.OverallProgress `json:"overall"`
	Daily          []*models.DailyProgress `json:"daily"`
	RecentAttempts []AttemptResponse       `json:"recent_attempts"`
	AvailableQuiz  []QuizResponse          `json:"available_quizzes"`
	Chart          ChartSeries             `json:"chart"`
}

type RebuildResult struct {
	StudentID      string                  `json:"student_id"`
	DaysRecomputed int                     `json:"days_recomputed"`
	Overall        *models.OverallProgress `json:"overall"`
}

type TrainerDashboardResponse struct {
	TotalStudents  int64             `json:"total_students"`
	ActiveStudents int64             `json:"active_students"`
	TotalQuizzes   int64             `json:"total_quizzes"`
	TotalAttempts  int64             `json:"total_attempts"`
	RecentAttempts []AttemptResponse `json:"recent_attempts"`
}

type StudentPerformanceResponse struct {
	Student  *models.User            `json:"student"`
	Overall  *models.OverallProgress `json:"overall"`
	Daily    []*models.DailyProgress `json:"daily"`
	Attempts []AttemptResponse       `json:"attempts"`
}

type StudentListResponse struct {
	Students []*models.User `json:"students"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	Size     int            `json:"size"`
}

// Export is a generated file ready to be streamed back
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ===== SERVICES =====

type AccountService interface {
	// Provision creates the local account and its profile on first sight
	Provision(ctx context.Context, identity *Identity) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Principal(ctx context.Context, id string) (models.Principal, error)
	UpdateProfile(ctx context.Context, caller models.Principal, req *ProfileUpdateRequest) (*models.User, error)

	ListStudents(ctx context.Context, caller models.Principal, query StudentQuery) (*StudentListResponse, error)
	ListTrainers(ctx context.Context, caller models.Principal) ([]*models.User, error)

	SetTrainerActive(ctx context.Context, caller models.Principal, trainerID string, active bool) (*models.User, error)
	SetStudentActive(ctx context.Context, caller models.Principal, studentID string, active bool) (*models.User, error)
	AssignStudent(ctx context.Context, caller models.Principal, studentID string, req *AssignStudentRequest) (*models.User, error)
	ToggleStudentActive(ctx context.Context, caller models.Principal, studentID string) (*models.User, error)
}

type QuizService interface {
	Create(ctx context.Context, caller models.Principal, req *CreateQuizRequest) (*QuizResponse, error)
	Get(ctx context.Context, caller models.Principal, id uint) (*QuizResponse, error)
	Update(ctx context.Context, caller models.Principal, id uint, req *UpdateQuizRequest) (*QuizResponse, error)
	Delete(ctx context.Context, caller models.Principal, id uint) error
	List(ctx context.Context, caller models.Principal, page, size int) (*QuizListResponse, error)

	AddQuestion(ctx context.Context, caller models.Principal, quizID uint, req *QuestionRequest) (*QuestionResponse, error)
	UpdateQuestion(ctx context.Context, caller models.Principal, questionID uint, req *UpdateQuestionRequest) (*QuestionResponse, error)
	DeleteQuestion(ctx context.Context, caller models.Principal, questionID uint) error
	ReorderQuestions(ctx context.Context, caller models.Principal, quizID uint, req *ReorderQuestionsRequest) (*QuizResponse, error)
}

type AttemptService interface {
	Start(ctx context.Context, caller models.Principal, quizID uint) (*AttemptResponse, error)
	RecordAnswer(ctx context.Context, caller models.Principal, attemptID uint, req *RecordAnswerRequest) (*AnswerResponse, error)
	Finalize(ctx context.Context, caller models.Principal, attemptID uint) (*AttemptResponse, error)
	Result(ctx context.Context, caller models.Principal, attemptID uint) (*ResultResponse, error)

	ListMine(ctx context.Context, caller models.Principal, page, size int) (*AttemptListResponse, error)
	Get(ctx context.Context, caller models.Principal, attemptID uint) (*AttemptDetailResponse, error)
}

type ProgressService interface {
	// RecomputeForAttempt rebuilds the daily row for the attempt's day and the
	// overall row from the full history. It must run inside tx.
	RecomputeForAttempt(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) (*ProgressSnapshot, error)

	Overall(ctx context.Context, studentID string) (*models.OverallProgress, error)
	Daily(ctx context.Context, caller models.Principal, limit int) ([]*models.DailyProgress, error)
	Dashboard(ctx context.Context, caller models.Principal) (*StudentDashboardResponse, error)
	RebuildProgress(ctx context.Context, caller models.Principal, studentID string) (*RebuildResult, error)
}

type TrainerService interface {
	Dashboard(ctx context.Context, caller models.Principal) (*TrainerDashboardResponse, error)
	StudentPerformance(ctx context.Context, caller models.Principal, studentID string) (*StudentPerformanceResponse, error)
}

type ReportService interface {
	ExportStudentPerformance(ctx context.Context, caller models.Principal, studentID string) (*Export, error)
	ExportQuizResults(ctx context.Context, caller models.Principal, quizID uint) (*Export, error)
}

type ServiceManager interface {
	Account() AccountService
	Quiz() QuizService
	Attempt() AttemptService
	Progress() ProgressService
	Trainer() TrainerService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
