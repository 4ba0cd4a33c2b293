package postgres

import (
	"context"

	"github.com/aura-quiz/backend/internal/models"
)

const quizColumns = `id, title, description, created_by, created_at, updated_at`

type quizRepo struct {
	q querier
}

func scanQuiz(row scanner) (*models.Quiz, error) {
	var qz models.Quiz
	if err := row.Scan(&qz.ID, &qz.Title, &qz.Description, &qz.CreatedBy, &qz.CreatedAt, &qz.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &qz, nil
}

func (r *quizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	const q = `INSERT INTO quizzes (title, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING ` + quizColumns
	created, err := scanQuiz(r.q.QueryRow(ctx, q, quiz.Title, quiz.Description, quiz.CreatedBy))
	if err != nil {
		return err
	}
	*quiz = *created
	return nil
}

func (r *quizRepo) GetByID(ctx context.Context, id int64) (*models.Quiz, error) {
	const q = `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1`
	return scanQuiz(r.q.QueryRow(ctx, q, id))
}

func (r *quizRepo) List(ctx context.Context) ([]models.Quiz, error) {
	const q = `SELECT ` + quizColumns + ` FROM quizzes ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	list := []models.Quiz{}
	for rows.Next() {
		qz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *qz)
	}
	return list, mapErr(rows.Err())
}
