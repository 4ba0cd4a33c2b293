// Package quizzes implements quiz authoring, quiz reads and portable quiz documents.
package quizzes

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/apperr"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
	"github.com/aura-quiz/backend/pkg/validate"
)

// Service owns quiz and question writes and the quiz read models.
type Service struct {
	store   store.Store
	exports ExportStore
	logger  *zap.Logger
}

// NewService creates a quiz service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// CreateQuiz creates an empty quiz owned by in.CreatedBy.
func (s *Service) CreateQuiz(ctx context.Context, in models.CreateQuizInput) (*models.Quiz, error) {
	quiz, err := createQuiz(ctx, s.store, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("quiz created", zap.Int64("quiz_id", quiz.ID), zap.Int64("created_by", quiz.CreatedBy))
	return quiz, nil
}

// CreateQuestion adds a question and its options to a quiz in one transaction.
func (s *Service) CreateQuestion(ctx context.Context, in models.CreateQuestionInput) (*models.QuestionWithOptions, error) {
	var created *models.QuestionWithOptions
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		created, err = createQuestion(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("question created",
		zap.Int64("quiz_id", created.QuizID),
		zap.Int64("question_id", created.ID),
		zap.Int("options", len(created.AnswerOptions)),
	)
	return created, nil
}

// ListQuizzes returns every quiz, newest first.
func (s *Service) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	list, err := s.store.Quizzes().List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list quizzes")
	}
	if list == nil {
		list = []models.Quiz{}
	}
	return list, nil
}

// GetQuiz returns the quiz record without questions.
func (s *Service) GetQuiz(ctx context.Context, id int64) (*models.Quiz, error) {
	return getQuiz(ctx, s.store, id)
}

// GetQuizWithQuestions returns the quiz with questions and options ordered by order_index.
func (s *Service) GetQuizWithQuestions(ctx context.Context, id int64) (*models.QuizWithQuestions, error) {
	quiz, err := getQuiz(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.Questions().ListByQuiz(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list questions")
	}
	options, err := s.store.Questions().ListOptionsByQuiz(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list answer options")
	}

	byQuestion := make(map[int64][]models.AnswerOption, len(questions))
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	out := &models.QuizWithQuestions{Quiz: *quiz, Questions: make([]models.QuestionWithOptions, 0, len(questions))}
	for _, q := range questions {
		opts := byQuestion[q.ID]
		if opts == nil {
			opts = []models.AnswerOption{}
		}
		out.Questions = append(out.Questions, models.QuestionWithOptions{Question: q, AnswerOptions: opts})
	}
	return out, nil
}

func getQuiz(ctx context.Context, st store.Store, id int64) (*models.Quiz, error) {
	quiz, err := st.Quizzes().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("quiz %d not found", id)
		}
		return nil, apperr.Internal(err, "failed to load quiz")
	}
	return quiz, nil
}

func createQuiz(ctx context.Context, st store.Store, in models.CreateQuizInput) (*models.Quiz, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	quiz := &models.Quiz{Title: in.Title, Description: in.Description, CreatedBy: in.CreatedBy}
	if err := st.Quizzes().Create(ctx, quiz); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user %d not found", in.CreatedBy)
		}
		return nil, apperr.Internal(err, "failed to create quiz")
	}
	return quiz, nil
}

// createQuestion must run inside a transaction so a failed option insert
// leaves no question behind.
func createQuestion(ctx context.Context, tx store.Store, in models.CreateQuestionInput) (*models.QuestionWithOptions, error) {
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := checkOptions(in.QuestionType, in.AnswerOptions); err != nil {
		return nil, err
	}
	if _, err := getQuiz(ctx, tx, in.QuizID); err != nil {
		return nil, err
	}

	q := models.Question{
		QuizID:       in.QuizID,
		QuestionText: in.QuestionText,
		QuestionType: in.QuestionType,
		OrderIndex:   in.OrderIndex,
	}
	if err := tx.Questions().Create(ctx, &q); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "order_index %d is already used in quiz %d", in.OrderIndex, in.QuizID)
		}
		return nil, apperr.Internal(err, "failed to create question")
	}

	out := &models.QuestionWithOptions{Question: q, AnswerOptions: make([]models.AnswerOption, 0, len(in.AnswerOptions))}
	for _, oi := range in.AnswerOptions {
		o := models.AnswerOption{
			QuestionID: q.ID,
			OptionText: strings.TrimSpace(oi.OptionText),
			IsCorrect:  oi.IsCorrect,
			OrderIndex: oi.OrderIndex,
		}
		if err := tx.Questions().CreateOption(ctx, &o); err != nil {
			return nil, apperr.Internal(err, "failed to create answer option")
		}
		out.AnswerOptions = append(out.AnswerOptions, o)
	}
	sortOptions(out.AnswerOptions)
	return out, nil
}

// checkOptions enforces the option rules per question type: choice questions
// need at least two options with exactly one correct (true_false at most two),
// text questions may only carry accepted answers.
func checkOptions(typ models.QuestionType, options []models.AnswerOptionInput) error {
	seen := make(map[int]bool, len(options))
	correct := 0
	for _, o := range options {
		if seen[o.OrderIndex] {
			return apperr.Validation("duplicate answer option order_index %d", o.OrderIndex)
		}
		seen[o.OrderIndex] = true
		if strings.TrimSpace(o.OptionText) == "" {
			return apperr.Validation("answer option text is required")
		}
		if o.IsCorrect {
			correct++
		}
	}

	switch typ {
	case models.QuestionMultipleChoice, models.QuestionTrueFalse:
		if len(options) < 2 {
			return apperr.Validation("%s questions need at least two answer options", typ)
		}
		if typ == models.QuestionTrueFalse && len(options) > 2 {
			return apperr.Validation("true_false questions take exactly two answer options")
		}
		if correct != 1 {
			return apperr.Validation("%s questions need exactly one correct answer option, got %d", typ, correct)
		}
	case models.QuestionText:
		if correct != len(options) {
			return apperr.Validation("answer options of text questions are accepted answers and must be marked correct")
		}
	default:
		return apperr.Validation("unknown question_type %q", typ)
	}
	return nil
}

func sortOptions(opts []models.AnswerOption) {
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].OrderIndex < opts[j].OrderIndex })
}

func sortQuestions(qs []models.QuestionWithOptions) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].OrderIndex < qs[j].OrderIndex })
}
