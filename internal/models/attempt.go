package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Scores are exchanged as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// AttemptStatus is derived from CompletedAt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// QuizAttempt is one user's run through a quiz.
type QuizAttempt struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	QuizID         int64           `json:"quiz_id"`
	Score          decimal.Decimal `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
}

// Status returns the lifecycle state of the attempt.
func (a *QuizAttempt) Status() AttemptStatus {
	if a.CompletedAt != nil {
		return AttemptCompleted
	}
	return AttemptInProgress
}

// UserAnswer is a graded answer to one question.
type UserAnswer struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	QuestionID       int64     `json:"question_id"`
	AnswerText       *string   `json:"answer_text"`
	SelectedOptionID *int64    `json:"selected_option_id"`
	IsCorrect        bool      `json:"is_correct"`
	AnsweredAt       time.Time `json:"answered_at"`
}

// LeaderboardEntry is a ranked completed attempt.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	QuizAttempt
}

// StartQuizInput is the body for starting an attempt.
type StartQuizInput struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
	QuizID int64 `json:"quiz_id" binding:"required,gt=0"`
}

// SubmitAnswerInput is the body for answering a question.
type SubmitAnswerInput struct {
	UserID           int64   `json:"user_id" binding:"required,gt=0"`
	QuestionID       int64   `json:"question_id" binding:"required,gt=0"`
	AnswerText       *string `json:"answer_text"`
	SelectedOptionID *int64  `json:"selected_option_id" binding:"omitempty,gt=0"`
}

// CompleteQuizInput is the optional body for completing an attempt.
type CompleteQuizInput struct {
	AttemptID int64 `json:"attempt_id" binding:"omitempty,gt=0"`
}
