// Package store declares the persistence contract shared by the postgres and memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aura-quiz/backend/internal/models"
)

var (
	// ErrNotFound is returned when a record or a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAlreadyCompleted is returned when completing an attempt that already has completed_at.
	ErrAlreadyCompleted = errors.New("attempt already completed")
)

// Store groups the repositories and runs units of work.
type Store interface {
	Users() UserRepository
	Quizzes() QuizRepository
	Questions() QuestionRepository
	Attempts() AttemptRepository
	Answers() AnswerRepository

	// WithTx runs fn against a transactional view of the store. Returning an
	// error rolls back every write made through that view. Calling WithTx on a
	// transactional view runs fn in the same transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type QuizRepository interface {
	Create(ctx context.Context, q *models.Quiz) error
	GetByID(ctx context.Context, id int64) (*models.Quiz, error)
	// List returns quizzes newest first.
	List(ctx context.Context) ([]models.Quiz, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id int64) (*models.Question, error)
	// ListByQuiz returns questions ordered by order_index.
	ListByQuiz(ctx context.Context, quizID int64) ([]models.Question, error)
	CountByQuiz(ctx context.Context, quizID int64) (int, error)

	CreateOption(ctx context.Context, o *models.AnswerOption) error
	GetOption(ctx context.Context, id int64) (*models.AnswerOption, error)
	// ListOptions returns options of one question ordered by order_index.
	ListOptions(ctx context.Context, questionID int64) ([]models.AnswerOption, error)
	// ListOptionsByQuiz returns options of every question of a quiz, ordered by question then order_index.
	ListOptionsByQuiz(ctx context.Context, quizID int64) ([]models.AnswerOption, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, a *models.QuizAttempt) error
	GetByID(ctx context.Context, id int64) (*models.QuizAttempt, error)
	// GetForUpdate reads the attempt and locks it until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.QuizAttempt, error)
	// Complete sets score and completed_at only if the attempt is still in progress.
	Complete(ctx context.Context, id int64, score decimal.Decimal, completedAt time.Time) (*models.QuizAttempt, error)
	// ListByUser returns a user's attempts, most recently started first.
	ListByUser(ctx context.Context, userID int64) ([]models.QuizAttempt, error)
	// GetInProgress returns the user's open attempt on a quiz, or ErrNotFound.
	GetInProgress(ctx context.Context, userID, quizID int64) (*models.QuizAttempt, error)
	// Leaderboard returns completed attempts ranked by score desc, completed_at asc, id asc.
	// A limit <= 0 returns every completed attempt.
	Leaderboard(ctx context.Context, quizID int64, limit int) ([]models.LeaderboardEntry, error)
}

type AnswerRepository interface {
	Create(ctx context.Context, a *models.UserAnswer) error
	// ListForQuiz returns the user's answers to questions of quizID answered within [from, to],
	// oldest first.
	ListForQuiz(ctx context.Context, userID, quizID int64, from, to time.Time) ([]models.UserAnswer, error)
}
