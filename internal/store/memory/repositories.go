package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	defer r.s.lock()()
	st := r.s.state()
	for _, existing := range st.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	now := r.s.stamp()
	u.ID = st.id()
	u.CreatedAt, u.UpdatedAt = now, now
	st.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.state().users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.state().users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

type quizRepo struct{ s *Store }

func (r quizRepo) Create(_ context.Context, q *models.Quiz) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.users[q.CreatedBy]; !ok {
		return store.ErrNotFound
	}
	now := r.s.stamp()
	q.ID = st.id()
	q.CreatedAt, q.UpdatedAt = now, now
	st.quizzes[q.ID] = *q
	return nil
}

func (r quizRepo) GetByID(_ context.Context, id int64) (*models.Quiz, error) {
	defer r.s.lock()()
	q, ok := r.s.state().quizzes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &q, nil
}

func (r quizRepo) List(_ context.Context) ([]models.Quiz, error) {
	defer r.s.lock()()
	list := make([]models.Quiz, 0, len(r.s.state().quizzes))
	for _, q := range r.s.state().quizzes {
		list = append(list, q)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

type questionRepo struct{ s *Store }

func (r questionRepo) Create(_ context.Context, q *models.Question) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.quizzes[q.QuizID]; !ok {
		return store.ErrNotFound
	}
	for _, existing := range st.questions {
		if existing.QuizID == q.QuizID && existing.OrderIndex == q.OrderIndex {
			return store.ErrDuplicate
		}
	}
	q.ID = st.id()
	q.CreatedAt = r.s.stamp()
	st.questions[q.ID] = *q
	return nil
}

func (r questionRepo) GetByID(_ context.Context, id int64) (*models.Question, error) {
	defer r.s.lock()()
	q, ok := r.s.state().questions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &q, nil
}

func (r questionRepo) ListByQuiz(_ context.Context, quizID int64) ([]models.Question, error) {
	defer r.s.lock()()
	return r.s.state().questionsOf(quizID), nil
}

func (r questionRepo) CountByQuiz(_ context.Context, quizID int64) (int, error) {
	defer r.s.lock()()
	return len(r.s.state().questionsOf(quizID)), nil
}

func (r questionRepo) CreateOption(_ context.Context, o *models.AnswerOption) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.questions[o.QuestionID]; !ok {
		return store.ErrNotFound
	}
	o.ID = st.id()
	st.options[o.ID] = *o
	return nil
}

func (r questionRepo) GetOption(_ context.Context, id int64) (*models.AnswerOption, error) {
	defer r.s.lock()()
	o, ok := r.s.state().options[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (r questionRepo) ListOptions(_ context.Context, questionID int64) ([]models.AnswerOption, error) {
	defer r.s.lock()()
	var list []models.AnswerOption
	for _, o := range r.s.state().options {
		if o.QuestionID == questionID {
			list = append(list, o)
		}
	}
	sortOptions(list)
	return list, nil
}

func (r questionRepo) ListOptionsByQuiz(_ context.Context, quizID int64) ([]models.AnswerOption, error) {
	defer r.s.lock()()
	st := r.s.state()
	var list []models.AnswerOption
	for _, q := range st.questionsOf(quizID) {
		var opts []models.AnswerOption
		for _, o := range st.options {
			if o.QuestionID == q.ID {
				opts = append(opts, o)
			}
		}
		sortOptions(opts)
		list = append(list, opts...)
	}
	return list, nil
}

func (st *state) questionsOf(quizID int64) []models.Question {
	var list []models.Question
	for _, q := range st.questions {
		if q.QuizID == quizID {
			list = append(list, q)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].OrderIndex != list[j].OrderIndex {
			return list[i].OrderIndex < list[j].OrderIndex
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func sortOptions(list []models.AnswerOption) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].OrderIndex != list[j].OrderIndex {
			return list[i].OrderIndex < list[j].OrderIndex
		}
		return list[i].ID < list[j].ID
	})
}

type attemptRepo struct{ s *Store }

func (r attemptRepo) Create(_ context.Context, a *models.QuizAttempt) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.users[a.UserID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := st.quizzes[a.QuizID]; !ok {
		return store.ErrNotFound
	}
	if _, open := st.openAttempt(a.UserID, a.QuizID); open && a.CompletedAt == nil {
		return store.ErrDuplicate
	}
	a.ID = st.id()
	if a.StartedAt.IsZero() {
		a.StartedAt = r.s.stamp()
	}
	st.attempts[a.ID] = *a
	return nil
}

func (st *state) openAttempt(userID, quizID int64) (models.QuizAttempt, bool) {
	for _, a := range st.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.CompletedAt == nil {
			return a, true
		}
	}
	return models.QuizAttempt{}, false
}

func (r attemptRepo) GetByID(_ context.Context, id int64) (*models.QuizAttempt, error) {
	defer r.s.lock()()
	a, ok := r.s.state().attempts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

// GetForUpdate needs no extra locking: transactions already hold the store mutex.
func (r attemptRepo) GetForUpdate(ctx context.Context, id int64) (*models.QuizAttempt, error) {
	return r.GetByID(ctx, id)
}

func (r attemptRepo) Complete(_ context.Context, id int64, score decimal.Decimal, completedAt time.Time) (*models.QuizAttempt, error) {
	defer r.s.lock()()
	st := r.s.state()
	a, ok := st.attempts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.CompletedAt != nil {
		return nil, store.ErrAlreadyCompleted
	}
	at := completedAt
	a.Score = score
	a.CompletedAt = &at
	st.attempts[id] = a
	return &a, nil
}

func (r attemptRepo) ListByUser(_ context.Context, userID int64) ([]models.QuizAttempt, error) {
	defer r.s.lock()()
	var list []models.QuizAttempt
	for _, a := range r.s.state().attempts {
		if a.UserID == userID {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r attemptRepo) GetInProgress(_ context.Context, userID, quizID int64) (*models.QuizAttempt, error) {
	defer r.s.lock()()
	if a, ok := r.s.state().openAttempt(userID, quizID); ok {
		return &a, nil
	}
	return nil, store.ErrNotFound
}

func (r attemptRepo) Leaderboard(_ context.Context, quizID int64, limit int) ([]models.LeaderboardEntry, error) {
	defer r.s.lock()()
	st := r.s.state()
	var entries []models.LeaderboardEntry
	for _, a := range st.attempts {
		if a.QuizID != quizID || a.CompletedAt == nil {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{Username: st.users[a.UserID].Username, QuizAttempt: a})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := a.Score.Cmp(b.Score); c != 0 {
			return c > 0
		}
		if !a.CompletedAt.Equal(*b.CompletedAt) {
			return a.CompletedAt.Before(*b.CompletedAt)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

type answerRepo struct{ s *Store }

func (r answerRepo) Create(_ context.Context, a *models.UserAnswer) error {
	defer r.s.lock()()
	st := r.s.state()
	if _, ok := st.users[a.UserID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := st.questions[a.QuestionID]; !ok {
		return store.ErrNotFound
	}
	if a.SelectedOptionID != nil {
		if _, ok := st.options[*a.SelectedOptionID]; !ok {
			return store.ErrNotFound
		}
	}
	a.ID = st.id()
	if a.AnsweredAt.IsZero() {
		a.AnsweredAt = r.s.stamp()
	}
	st.answers[a.ID] = *a
	return nil
}

func (r answerRepo) ListForQuiz(_ context.Context, userID, quizID int64, from, to time.Time) ([]models.UserAnswer, error) {
	defer r.s.lock()()
	st := r.s.state()
	var list []models.UserAnswer
	for _, a := range st.answers {
		if a.UserID != userID || a.AnsweredAt.Before(from) || a.AnsweredAt.After(to) {
			continue
		}
		if q, ok := st.questions[a.QuestionID]; !ok || q.QuizID != quizID {
			continue
		}
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].AnsweredAt.Equal(list[j].AnsweredAt) {
			return list[i].AnsweredAt.Before(list[j].AnsweredAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}
