package postgres

import (
	"context"

	"github.com/aura-quiz/backend/internal/models"
)

const (
	questionColumns = `id, quiz_id, question_text, question_type, order_index, created_at`
	optionColumns   = `id, question_id, option_text, is_correct, order_index`
)

type questionRepo struct {
	q querier
}

func scanQuestion(row scanner) (*models.Question, error) {
	var q models.Question
	var typ string
	if err := row.Scan(&q.ID, &q.QuizID, &q.QuestionText, &typ, &q.OrderIndex, &q.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	q.QuestionType = models.QuestionType(typ)
	return &q, nil
}

func scanOption(row scanner) (*models.AnswerOption, error) {
	var o models.AnswerOption
	if err := row.Scan(&o.ID, &o.QuestionID, &o.OptionText, &o.IsCorrect, &o.OrderIndex); err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *questionRepo) Create(ctx context.Context, question *models.Question) error {
	const q = `INSERT INTO questions (quiz_id, question_text, question_type, order_index)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + questionColumns
	created, err := scanQuestion(r.q.QueryRow(ctx, q,
		question.QuizID, question.QuestionText, string(question.QuestionType), question.OrderIndex))
	if err != nil {
		return err
	}
	*question = *created
	return nil
}

func (r *questionRepo) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	const q = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	return scanQuestion(r.q.QueryRow(ctx, q, id))
}

func (r *questionRepo) ListByQuiz(ctx context.Context, quizID int64) ([]models.Question, error) {
	const q = `SELECT ` + questionColumns + ` FROM questions WHERE quiz_id = $1 ORDER BY order_index, id`
	rows, err := r.q.Query(ctx, q, quizID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var list []models.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *question)
	}
	return list, mapErr(rows.Err())
}

func (r *questionRepo) CountByQuiz(ctx context.Context, quizID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE quiz_id = $1`, quizID).Scan(&n)
	return n, mapErr(err)
}

func (r *questionRepo) CreateOption(ctx context.Context, o *models.AnswerOption) error {
	const q = `INSERT INTO answer_options (question_id, option_text, is_correct, order_index)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + optionColumns
	created, err := scanOption(r.q.QueryRow(ctx, q, o.QuestionID, o.OptionText, o.IsCorrect, o.OrderIndex))
	if err != nil {
		return err
	}
	*o = *created
	return nil
}

func (r *questionRepo) GetOption(ctx context.Context, id int64) (*models.AnswerOption, error) {
	const q = `SELECT ` + optionColumns + ` FROM answer_options WHERE id = $1`
	return scanOption(r.q.QueryRow(ctx, q, id))
}

func (r *questionRepo) ListOptions(ctx context.Context, questionID int64) ([]models.AnswerOption, error) {
	const q = `SELECT ` + optionColumns + ` FROM answer_options WHERE question_id = $1 ORDER BY order_index, id`
	return r.listOptions(ctx, q, questionID)
}

func (r *questionRepo) ListOptionsByQuiz(ctx context.Context, quizID int64) ([]models.AnswerOption, error) {
	const q = `SELECT o.id, o.question_id, o.option_text, o.is_correct, o.order_index
		FROM answer_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.quiz_id = $1
		ORDER BY q.order_index, q.id, o.order_index, o.id`
	return r.listOptions(ctx, q, quizID)
}

func (r *questionRepo) listOptions(ctx context.Context, q string, arg int64) ([]models.AnswerOption, error) {
	rows, err := r.q.Query(ctx, q, arg)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var list []models.AnswerOption
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, mapErr(rows.Err())
}
