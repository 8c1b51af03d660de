package models

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&StudentProfile{},
		&TrainerProfile{},
		&Quiz{},
		&Question{},
		&QuizAttempt{},
		&StudentAnswer{},
		&DailyProgress{},
		&OverallProgress{},
	}
}
