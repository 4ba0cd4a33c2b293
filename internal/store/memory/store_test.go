package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
)

func seed(t *testing.T, s *Store) (models.User, models.Quiz) {
	t.Helper()
	ctx := context.Background()
	u := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := s.Users().Create(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	q := models.Quiz{Title: "Go basics", CreatedBy: u.ID}
	if err := s.Quizzes().Create(ctx, &q); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return u, q
}

func TestUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s)

	dup := models.User{Username: "bob", Email: "ALICE@example.com"}
	if err := s.Users().Create(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for email, got %v", err)
	}
	dup = models.User{Username: "alice", Email: "other@example.com"}
	if err := s.Users().Create(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for username, got %v", err)
	}
	if _, err := s.Users().GetByEmail(ctx, "Alice@Example.com"); err != nil {
		t.Fatalf("lookup by email: %v", err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, quiz := seed(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		q := models.Question{QuizID: quiz.ID, QuestionText: "?", QuestionType: models.QuestionMultipleChoice}
		if err := tx.Questions().Create(ctx, &q); err != nil {
			return err
		}
		if err := tx.Questions().CreateOption(ctx, &models.AnswerOption{QuestionID: q.ID, OptionText: "a"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	n, _ := s.Questions().CountByQuiz(ctx, quiz.ID)
	if n != 0 {
		t.Fatalf("expected rollback, found %d questions", n)
	}
	opts, _ := s.Questions().ListOptionsByQuiz(ctx, quiz.ID)
	if len(opts) != 0 {
		t.Fatalf("expected rollback, found %d options", len(opts))
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, quiz := seed(t, s)

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("expected the panic to propagate, got %v", r)
			}
		}()
		_ = s.WithTx(ctx, func(tx store.Store) error {
			q := models.Question{QuizID: quiz.ID, QuestionText: "?", QuestionType: models.QuestionMultipleChoice}
			if err := tx.Questions().Create(ctx, &q); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	n, err := s.Questions().CountByQuiz(ctx, quiz.ID)
	if err != nil || n != 0 {
		t.Fatalf("expected rollback after panic, found %d questions (%v)", n, err)
	}
	q := models.Question{QuizID: quiz.ID, QuestionText: "again", QuestionType: models.QuestionText}
	if err := s.WithTx(ctx, func(tx store.Store) error { return tx.Questions().Create(ctx, &q) }); err != nil {
		t.Fatalf("store unusable after panic: %v", err)
	}
}

func TestQuestionOrderIndexUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, quiz := seed(t, s)

	q1 := models.Question{QuizID: quiz.ID, QuestionText: "one", QuestionType: models.QuestionText, OrderIndex: 1}
	if err := s.Questions().Create(ctx, &q1); err != nil {
		t.Fatalf("create: %v", err)
	}
	q2 := models.Question{QuizID: quiz.ID, QuestionText: "two", QuestionType: models.QuestionText, OrderIndex: 1}
	if err := s.Questions().Create(ctx, &q2); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	missing := models.Question{QuizID: 999, QuestionText: "x", QuestionType: models.QuestionText}
	if err := s.Questions().Create(ctx, &missing); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteIsCompareAndSwap(t *testing.T) {
	s := New()
	ctx := context.Background()
	user, quiz := seed(t, s)

	a := models.QuizAttempt{UserID: user.ID, QuizID: quiz.ID, TotalQuestions: 4}
	if err := s.Attempts().Create(ctx, &a); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	done, err := s.Attempts().Complete(ctx, a.ID, decimal.RequireFromString("75"), time.Now())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status() != models.AttemptCompleted || !done.Score.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected attempt %+v", done)
	}
	if _, err := s.Attempts().Complete(ctx, a.ID, decimal.Zero, time.Now()); !errors.Is(err, store.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if _, err := s.Attempts().Complete(ctx, 12345, decimal.Zero, time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	user, quiz := seed(t, s)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	complete := func(score string, at time.Time) int64 {
		a := models.QuizAttempt{UserID: user.ID, QuizID: quiz.ID}
		if err := s.Attempts().Create(ctx, &a); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.Attempts().Complete(ctx, a.ID, decimal.RequireFromString(score), at); err != nil {
			t.Fatalf("complete: %v", err)
		}
		return a.ID
	}
	late := complete("80", base.Add(time.Minute))
	early := complete("80", base)
	top := complete("95.5", base.Add(time.Hour))
	inProgress := models.QuizAttempt{UserID: user.ID, QuizID: quiz.ID}
	_ = s.Attempts().Create(ctx, &inProgress)

	entries, err := s.Attempts().Leaderboard(ctx, quiz.ID, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []int64{top, early, late}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, id := range want {
		if entries[i].ID != id || entries[i].Rank != i+1 || entries[i].Username != "alice" {
			t.Fatalf("entry %d = %+v, want attempt %d", i, entries[i], id)
		}
	}

	limited, _ := s.Attempts().Leaderboard(ctx, quiz.ID, 1)
	if len(limited) != 1 || limited[0].ID != top {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestOneOpenAttemptPerQuiz(t *testing.T) {
	s := New()
	ctx := context.Background()
	user, quiz := seed(t, s)

	if _, err := s.Attempts().GetInProgress(ctx, user.ID, quiz.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no open attempt, got %v", err)
	}
	first := models.QuizAttempt{UserID: user.ID, QuizID: quiz.ID}
	if err := s.Attempts().Create(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := models.QuizAttempt{UserID: user.ID, QuizID: quiz.ID}
	if err := s.Attempts().Create(ctx, &second); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	open, err := s.Attempts().GetInProgress(ctx, user.ID, quiz.ID)
	if err != nil || open.ID != first.ID {
		t.Fatalf("open attempt = %+v, %v", open, err)
	}
	if _, err := s.Attempts().Complete(ctx, first.ID, decimal.Zero, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.Attempts().Create(ctx, &second); err != nil {
		t.Fatalf("create after completion: %v", err)
	}
}
