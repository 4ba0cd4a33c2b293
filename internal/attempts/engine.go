// Package attempts runs the attempt lifecycle: start, answer, complete and score.
package attempts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/apperr"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
	"github.com/aura-quiz/backend/pkg/validate"
)

// CompletionListener is notified after an attempt completion is committed.
type CompletionListener interface {
	AttemptCompleted(ctx context.Context, attempt *models.QuizAttempt)
}

// Engine owns attempt state transitions.
type Engine struct {
	store     store.Store
	now       func() time.Time
	listeners []CompletionListener
	logger    *zap.Logger
}

// NewEngine creates an attempt engine.
func NewEngine(st store.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: st, now: time.Now, logger: logger}
}

// OnComplete registers a listener for committed completions.
func (e *Engine) OnComplete(l CompletionListener) {
	e.listeners = append(e.listeners, l)
}

// SetClock overrides the engine clock.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) stamp() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

// Start opens a new in-progress attempt. total_questions is fixed at start.
// A user holds at most one open attempt per quiz; if one exists it is returned
// unchanged, so answers are never credited to two attempts.
func (e *Engine) Start(ctx context.Context, in models.StartQuizInput) (*models.QuizAttempt, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	var (
		attempt *models.QuizAttempt
		resumed bool
	)
	err := e.store.WithTx(ctx, func(tx store.Store) error {
		if err := requireUser(ctx, tx, in.UserID); err != nil {
			return err
		}
		if _, err := tx.Quizzes().GetByID(ctx, in.QuizID); err != nil {
			return notFoundOr(err, "quiz %d not found", in.QuizID)
		}
		open, err := tx.Attempts().GetInProgress(ctx, in.UserID, in.QuizID)
		if err == nil {
			attempt, resumed = open, true
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return apperr.Internal(err, "failed to check attempts")
		}
		total, err := tx.Questions().CountByQuiz(ctx, in.QuizID)
		if err != nil {
			return apperr.Internal(err, "failed to count questions")
		}
		attempt = &models.QuizAttempt{
			UserID:         in.UserID,
			QuizID:         in.QuizID,
			Score:          decimal.Zero,
			TotalQuestions: total,
			StartedAt:      e.stamp(),
		}
		if err := tx.Attempts().Create(ctx, attempt); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Wrap(apperr.KindConflict, err, "an attempt on quiz %d is already in progress", in.QuizID)
			}
			return notFoundOr(err, "user or quiz not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resumed {
		e.logger.Info("attempt resumed", zap.Int64("attempt_id", attempt.ID), zap.Int64("user_id", attempt.UserID), zap.Int64("quiz_id", attempt.QuizID))
		return attempt, nil
	}
	e.logger.Info("attempt started",
		zap.Int64("attempt_id", attempt.ID),
		zap.Int64("user_id", attempt.UserID),
		zap.Int64("quiz_id", attempt.QuizID),
		zap.Int("total_questions", attempt.TotalQuestions),
	)
	return attempt, nil
}

// SubmitAnswer grades and stores an answer. The user must have an attempt in
// progress on the question's quiz. A selected option takes precedence over text.
func (e *Engine) SubmitAnswer(ctx context.Context, in models.SubmitAnswerInput) (*models.UserAnswer, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if in.SelectedOptionID == nil && in.AnswerText == nil {
		return nil, apperr.Validation("either selected_option_id or answer_text is required")
	}

	q, err := e.store.Questions().GetByID(ctx, in.QuestionID)
	if err != nil {
		return nil, notFoundOr(err, "question %d not found", in.QuestionID)
	}
	if err := requireUser(ctx, e.store, in.UserID); err != nil {
		return nil, err
	}
	if _, err := e.store.Attempts().GetInProgress(ctx, in.UserID, q.QuizID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Conflict("no attempt in progress for quiz %d", q.QuizID)
		}
		return nil, apperr.Internal(err, "failed to check attempts")
	}

	answer := &models.UserAnswer{
		UserID:           in.UserID,
		QuestionID:       q.ID,
		AnswerText:       in.AnswerText,
		SelectedOptionID: in.SelectedOptionID,
	}
	if in.SelectedOptionID != nil {
		opt, err := e.store.Questions().GetOption(ctx, *in.SelectedOptionID)
		if err != nil {
			return nil, notFoundOr(err, "answer option %d not found", *in.SelectedOptionID)
		}
		if opt.QuestionID != q.ID {
			return nil, apperr.Validation("answer option %d does not belong to question %d", opt.ID, q.ID)
		}
		answer.IsCorrect = opt.IsCorrect
	} else {
		if q.QuestionType.IsChoice() {
			return nil, apperr.Validation("%s questions are answered with selected_option_id", q.QuestionType)
		}
		if strings.TrimSpace(*in.AnswerText) == "" {
			return nil, apperr.Validation("answer_text must not be empty")
		}
		accepted, err := e.store.Questions().ListOptions(ctx, q.ID)
		if err != nil {
			return nil, apperr.Internal(err, "failed to load accepted answers")
		}
		answer.IsCorrect = gradeText(*in.AnswerText, accepted)
	}

	answer.AnsweredAt = e.stamp()
	if err := e.store.Answers().Create(ctx, answer); err != nil {
		return nil, notFoundOr(err, "user, question or option not found")
	}
	e.logger.Debug("answer recorded",
		zap.Int64("user_id", answer.UserID),
		zap.Int64("question_id", answer.QuestionID),
		zap.Bool("correct", answer.IsCorrect),
	)
	return answer, nil
}

// Complete scores the attempt and marks it completed. An attempt completes at
// most once; a second call is a Conflict.
func (e *Engine) Complete(ctx context.Context, attemptID int64) (*models.QuizAttempt, error) {
	if attemptID <= 0 {
		return nil, apperr.Validation("attempt_id must be positive")
	}

	var done *models.QuizAttempt
	var correct int
	err := e.store.WithTx(ctx, func(tx store.Store) error {
		a, err := tx.Attempts().GetForUpdate(ctx, attemptID)
		if err != nil {
			return notFoundOr(err, "attempt %d not found", attemptID)
		}
		if a.CompletedAt != nil {
			return apperr.Wrap(apperr.KindConflict, store.ErrAlreadyCompleted, "attempt %d is already completed", attemptID)
		}

		now := e.stamp()
		answers, err := tx.Answers().ListForQuiz(ctx, a.UserID, a.QuizID, a.StartedAt, now)
		if err != nil {
			return apperr.Internal(err, "failed to load answers")
		}
		correct = countCorrect(answers)
		done, err = tx.Attempts().Complete(ctx, a.ID, Score(correct, a.TotalQuestions), now)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyCompleted) {
				return apperr.Wrap(apperr.KindConflict, err, "attempt %d is already completed", attemptID)
			}
			return notFoundOr(err, "attempt %d not found", attemptID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("attempt completed",
		zap.Int64("attempt_id", done.ID),
		zap.Int64("quiz_id", done.QuizID),
		zap.Int("correct", correct),
		zap.Int("total_questions", done.TotalQuestions),
		zap.String("score", done.Score.StringFixed(2)),
	)
	for _, l := range e.listeners {
		l.AttemptCompleted(ctx, done)
	}
	return done, nil
}

// Get returns one attempt.
func (e *Engine) Get(ctx context.Context, attemptID int64) (*models.QuizAttempt, error) {
	a, err := e.store.Attempts().GetByID(ctx, attemptID)
	if err != nil {
		return nil, notFoundOr(err, "attempt %d not found", attemptID)
	}
	return a, nil
}

// ListByUser returns the user's attempts, newest first.
func (e *Engine) ListByUser(ctx context.Context, userID int64) ([]models.QuizAttempt, error) {
	if err := requireUser(ctx, e.store, userID); err != nil {
		return nil, err
	}
	list, err := e.store.Attempts().ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list attempts")
	}
	if list == nil {
		list = []models.QuizAttempt{}
	}
	return list, nil
}

func requireUser(ctx context.Context, st store.Store, id int64) error {
	if _, err := st.Users().GetByID(ctx, id); err != nil {
		return notFoundOr(err, "user %d not found", id)
	}
	return nil
}

// notFoundOr maps store.ErrNotFound to a NotFound error and anything else to Internal.
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Internal(err, "storage failure")
}
