package models

import "time"

// QuestionType is the kind of answer a question expects.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionText           QuestionType = "text"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionText:
		return true
	}
	return false
}

// IsChoice reports whether answers are given by selecting an option.
func (t QuestionType) IsChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// Quiz is an authored set of questions.
type Quiz struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Question belongs to a quiz and is positioned by OrderIndex.
type Question struct {
	ID           int64        `json:"id"`
	QuizID       int64        `json:"quiz_id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	OrderIndex   int          `json:"order_index"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AnswerOption is a selectable answer. For text questions, options marked
// correct are the accepted free-text answers.
type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
	OrderIndex int    `json:"order_index"`
}

// QuestionWithOptions is a question with its options ordered by OrderIndex.
type QuestionWithOptions struct {
	Question
	AnswerOptions []AnswerOption `json:"answer_options"`
}

// QuizWithQuestions is the full read model of a quiz.
type QuizWithQuestions struct {
	Quiz
	Questions []QuestionWithOptions `json:"questions"`
}

// CreateQuizInput is the body for quiz creation.
type CreateQuizInput struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description"`
	CreatedBy   int64   `json:"created_by" binding:"required,gt=0"`
}

// AnswerOptionInput describes one option of a new question.
type AnswerOptionInput struct {
	OptionText string `json:"option_text" yaml:"option_text" binding:"required,min=1"`
	IsCorrect  bool   `json:"is_correct" yaml:"is_correct"`
	OrderIndex int    `json:"order_index" yaml:"order_index" binding:"min=0"`
}

// CreateQuestionInput is the body for question creation.
type CreateQuestionInput struct {
	QuizID        int64               `json:"quiz_id" binding:"required,gt=0"`
	QuestionText  string              `json:"question_text" binding:"required,min=1"`
	QuestionType  QuestionType        `json:"question_type" binding:"required,oneof=multiple_choice true_false text"`
	OrderIndex    int                 `json:"order_index" binding:"min=0"`
	AnswerOptions []AnswerOptionInput `json:"answer_options" binding:"omitempty,dive"`
}

// QuizDocument is the portable form of a quiz used by export and seed files.
type QuizDocument struct {
	Title       string             `json:"title" yaml:"title" binding:"required,min=1,max=200"`
	Description *string            `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []QuestionDocument `json:"questions" yaml:"questions" binding:"dive"`
}

// QuestionDocument is a question inside a QuizDocument.
type QuestionDocument struct {
	QuestionText  string              `json:"question_text" yaml:"question_text" binding:"required,min=1"`
	QuestionType  QuestionType        `json:"question_type" yaml:"question_type" binding:"required,oneof=multiple_choice true_false text"`
	OrderIndex    int                 `json:"order_index" yaml:"order_index" binding:"min=0"`
	AnswerOptions []AnswerOptionInput `json:"answer_options" yaml:"answer_options" binding:"omitempty,dive"`
}
