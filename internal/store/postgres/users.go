package postgres

import (
	"context"

	"github.com/aura-quiz/backend/internal/models"
)

const userColumns = `id, username, email, password_hash, created_at, updated_at`

type userRepo struct {
	q querier
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	created, err := scanUser(r.q.QueryRow(ctx, q, u.Username, u.Email, u.PasswordHash))
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRow(ctx, q, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.q.QueryRow(ctx, q, email))
}
