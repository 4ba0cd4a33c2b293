package postgres

import (
	"context"
	"time"

	"github.com/aura-quiz/backend/internal/models"
)

const answerColumns = `id, user_id, question_id, answer_text, selected_option_id, is_correct, answered_at`

type answerRepo struct {
	q querier
}

func scanAnswer(row scanner) (*models.UserAnswer, error) {
	var a models.UserAnswer
	if err := row.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.AnswerText, &a.SelectedOptionID, &a.IsCorrect, &a.AnsweredAt); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *answerRepo) Create(ctx context.Context, a *models.UserAnswer) error {
	const q = `INSERT INTO user_answers (user_id, question_id, answer_text, selected_option_id, is_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING ` + answerColumns
	var answeredAt *time.Time
	if !a.AnsweredAt.IsZero() {
		answeredAt = &a.AnsweredAt
	}
	created, err := scanAnswer(r.q.QueryRow(ctx, q,
		a.UserID, a.QuestionID, a.AnswerText, a.SelectedOptionID, a.IsCorrect, answeredAt))
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

func (r *answerRepo) ListForQuiz(ctx context.Context, userID, quizID int64, from, to time.Time) ([]models.UserAnswer, error) {
	const q = `SELECT ua.id, ua.user_id, ua.question_id, ua.answer_text, ua.selected_option_id, ua.is_correct, ua.answered_at
		FROM user_answers ua
		JOIN questions q ON q.id = ua.question_id
		WHERE ua.user_id = $1 AND q.quiz_id = $2 AND ua.answered_at BETWEEN $3 AND $4
		ORDER BY ua.answered_at, ua.id`
	rows, err := r.q.Query(ctx, q, userID, quizID, from, to)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var list []models.UserAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, mapErr(rows.Err())
}
