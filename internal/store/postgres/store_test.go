package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
	"github.com/aura-quiz/backend/pkg/database"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()

	logger := zap.NewNop()
	pool, err := database.NewPostgresPool(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Migrations must be re-runnable.
	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("migrate twice: %v", err)
	}
	s := New(pool)

	t.Run("users", func(t *testing.T) { testUsers(t, ctx, s) })
	t.Run("questions in tx", func(t *testing.T) { testQuestionsTx(t, ctx, s, pool) })
	t.Run("attempts", func(t *testing.T) { testAttempts(t, ctx, s) })
}

func testUsers(t *testing.T, ctx context.Context, s *Store) {
	u := models.User{Username: "pg-alice", Email: "pg-alice@example.com", PasswordHash: "hash"}
	if err := s.Users().Create(ctx, &u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 || u.CreatedAt.IsZero() {
		t.Fatalf("expected generated fields, got %+v", u)
	}
	dup := models.User{Username: "pg-other", Email: "PG-ALICE@example.com", PasswordHash: "hash"}
	if err := s.Users().Create(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := s.Users().GetByEmail(ctx, "Pg-Alice@Example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("get by email: %v %+v", err, got)
	}
	if _, err := s.Users().GetByID(ctx, -1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testQuestionsTx(t *testing.T, ctx context.Context, s *Store, pool *pgxpool.Pool) {
	owner := models.User{Username: "pg-author", Email: "pg-author@example.com", PasswordHash: "hash"}
	if err := s.Users().Create(ctx, &owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	quiz := models.Quiz{Title: "Capitals", CreatedBy: owner.ID}
	if err := s.Quizzes().Create(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	missingOwner := models.Quiz{Title: "Orphan", CreatedBy: 987654}
	if err := s.Quizzes().Create(ctx, &missingOwner); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing owner, got %v", err)
	}

	err := s.WithTx(ctx, func(tx store.Store) error {
		q := models.Question{QuizID: quiz.ID, QuestionText: "Capital of France?", QuestionType: models.QuestionMultipleChoice, OrderIndex: 0}
		if err := tx.Questions().Create(ctx, &q); err != nil {
			return err
		}
		for i, text := range []string{"Paris", "Lyon"} {
			o := models.AnswerOption{QuestionID: q.ID, OptionText: text, IsCorrect: i == 0, OrderIndex: 1 - i}
			if err := tx.Questions().CreateOption(ctx, &o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	err = s.WithTx(ctx, func(tx store.Store) error {
		q := models.Question{QuizID: quiz.ID, QuestionText: "Rolled back", QuestionType: models.QuestionText, OrderIndex: 5}
		if err := tx.Questions().Create(ctx, &q); err != nil {
			return err
		}
		dup := models.Question{QuizID: quiz.ID, QuestionText: "Same slot", QuestionType: models.QuestionText, OrderIndex: 0}
		return tx.Questions().Create(ctx, &dup)
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE quiz_id = $1`, quiz.ID).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected rolled back insert, found %d questions", n)
	}

	opts, err := s.Questions().ListOptionsByQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(opts) != 2 || opts[0].OptionText != "Lyon" || opts[1].OptionText != "Paris" || !opts[1].IsCorrect {
		t.Fatalf("unexpected options order: %+v", opts)
	}
}

func testAttempts(t *testing.T, ctx context.Context, s *Store) {
	player := models.User{Username: "pg-player", Email: "pg-player@example.com", PasswordHash: "hash"}
	if err := s.Users().Create(ctx, &player); err != nil {
		t.Fatalf("create user: %v", err)
	}
	quiz := models.Quiz{Title: "Scores", CreatedBy: player.ID}
	if err := s.Quizzes().Create(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	start := time.Now().UTC().Truncate(time.Microsecond)
	first := models.QuizAttempt{UserID: player.ID, QuizID: quiz.ID, TotalQuestions: 3, StartedAt: start}
	second := models.QuizAttempt{UserID: player.ID, QuizID: quiz.ID, TotalQuestions: 3, StartedAt: start}
	if err := s.Attempts().Create(ctx, &first); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if err := s.Attempts().Create(ctx, &second); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("second open attempt: expected ErrDuplicate, got %v", err)
	}
	open, err := s.Attempts().GetInProgress(ctx, player.ID, quiz.ID)
	if err != nil || open.ID != first.ID {
		t.Fatalf("expected in-progress attempt %d: %+v %v", first.ID, open, err)
	}

	err = s.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.Attempts().GetForUpdate(ctx, first.ID); err != nil {
			return err
		}
		_, err := tx.Attempts().Complete(ctx, first.ID, decimal.RequireFromString("66.67"), start.Add(time.Second))
		return err
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := s.Attempts().Complete(ctx, first.ID, decimal.Zero, time.Now()); !errors.Is(err, store.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if _, err := s.Attempts().GetInProgress(ctx, player.ID, quiz.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no open attempt, got %v", err)
	}
	if err := s.Attempts().Create(ctx, &second); err != nil {
		t.Fatalf("create second attempt: %v", err)
	}
	if _, err := s.Attempts().Complete(ctx, second.ID, decimal.NewFromInt(100), start.Add(2*time.Second)); err != nil {
		t.Fatalf("complete second: %v", err)
	}

	board, err := s.Attempts().Leaderboard(ctx, quiz.ID, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].ID != second.ID || board[0].Rank != 1 || board[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard: %+v", board)
	}
	if !board[1].Score.Equal(decimal.RequireFromString("66.67")) {
		t.Fatalf("score = %s", board[1].Score)
	}
	if board[0].Username != "pg-player" {
		t.Fatalf("username = %q", board[0].Username)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
