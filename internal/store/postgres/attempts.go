package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
)

const attemptColumns = `id, user_id, quiz_id, score, total_questions, started_at, completed_at`

type attemptRepo struct {
	q querier
}

func scanAttempt(row scanner) (*models.QuizAttempt, error) {
	var a models.QuizAttempt
	if err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.TotalQuestions, &a.StartedAt, &a.CompletedAt); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *attemptRepo) Create(ctx context.Context, a *models.QuizAttempt) error {
	const q = `INSERT INTO quiz_attempts (user_id, quiz_id, score, total_questions, started_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING ` + attemptColumns
	var startedAt *time.Time
	if !a.StartedAt.IsZero() {
		startedAt = &a.StartedAt
	}
	created, err := scanAttempt(r.q.QueryRow(ctx, q, a.UserID, a.QuizID, a.Score.String(), a.TotalQuestions, startedAt))
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

func (r *attemptRepo) GetByID(ctx context.Context, id int64) (*models.QuizAttempt, error) {
	const q = `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE id = $1`
	return scanAttempt(r.q.QueryRow(ctx, q, id))
}

func (r *attemptRepo) GetForUpdate(ctx context.Context, id int64) (*models.QuizAttempt, error) {
	const q = `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE id = $1 FOR UPDATE`
	return scanAttempt(r.q.QueryRow(ctx, q, id))
}

func (r *attemptRepo) Complete(ctx context.Context, id int64, score decimal.Decimal, completedAt time.Time) (*models.QuizAttempt, error) {
	const q = `UPDATE quiz_attempts SET score = $2, completed_at = $3
		WHERE id = $1 AND completed_at IS NULL
		RETURNING ` + attemptColumns
	a, err := scanAttempt(r.q.QueryRow(ctx, q, id, score.String(), completedAt))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, mapErr(err)
	}
	if exists {
		return nil, store.ErrAlreadyCompleted
	}
	return nil, store.ErrNotFound
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID int64) ([]models.QuizAttempt, error) {
	const q = `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE user_id = $1 ORDER BY started_at DESC, id DESC`
	rows, err := r.q.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var list []models.QuizAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, mapErr(rows.Err())
}

func (r *attemptRepo) GetInProgress(ctx context.Context, userID, quizID int64) (*models.QuizAttempt, error) {
	const q = `SELECT ` + attemptColumns + ` FROM quiz_attempts
		WHERE user_id = $1 AND quiz_id = $2 AND completed_at IS NULL`
	return scanAttempt(r.q.QueryRow(ctx, q, userID, quizID))
}

func (r *attemptRepo) Leaderboard(ctx context.Context, quizID int64, limit int) ([]models.LeaderboardEntry, error) {
	const q = `SELECT a.id, a.user_id, a.quiz_id, a.score, a.total_questions, a.started_at, a.completed_at,
			u.username,
			ROW_NUMBER() OVER (ORDER BY a.score DESC, a.completed_at ASC, a.id ASC) AS rank
		FROM quiz_attempts a
		JOIN users u ON u.id = a.user_id
		WHERE a.quiz_id = $1 AND a.completed_at IS NOT NULL
		ORDER BY a.score DESC, a.completed_at ASC, a.id ASC
		LIMIT $2`
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.q.Query(ctx, q, quizID, lim)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var list []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.QuizID, &e.Score, &e.TotalQuestions, &e.StartedAt, &e.CompletedAt,
			&e.Username, &e.Rank); err != nil {
			return nil, mapErr(err)
		}
		list = append(list, e)
	}
	return list, mapErr(rows.Err())
}
