// Package memory is an in-process implementation of store.Store used by tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
)

type state struct {
	users     map[int64]models.User
	quizzes   map[int64]models.Quiz
	questions map[int64]models.Question
	options   map[int64]models.AnswerOption
	attempts  map[int64]models.QuizAttempt
	answers   map[int64]models.UserAnswer
	nextID    int64
}

func newState() *state {
	return &state{
		users:     make(map[int64]models.User),
		quizzes:   make(map[int64]models.Quiz),
		questions: make(map[int64]models.Question),
		options:   make(map[int64]models.AnswerOption),
		attempts:  make(map[int64]models.QuizAttempt),
		answers:   make(map[int64]models.UserAnswer),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:     make(map[int64]models.User, len(s.users)),
		quizzes:   make(map[int64]models.Quiz, len(s.quizzes)),
		questions: make(map[int64]models.Question, len(s.questions)),
		options:   make(map[int64]models.AnswerOption, len(s.options)),
		attempts:  make(map[int64]models.QuizAttempt, len(s.attempts)),
		answers:   make(map[int64]models.UserAnswer, len(s.answers)),
		nextID:    s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range s.questions {
		c.questions[k] = v
	}
	for k, v := range s.options {
		c.options[k] = v
	}
	for k, v := range s.attempts {
		c.attempts[k] = v
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

type db struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// Store keeps every record in maps guarded by a single mutex. Transactions
// hold the mutex for their whole duration and restore a snapshot on error.
type Store struct {
	db   *db
	inTx bool
}

// New returns an empty store.
func New() *Store {
	return &Store{db: &db{st: newState(), now: time.Now}}
}

// SetClock overrides the clock used for default timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.now = now
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

func (s *Store) state() *state { return s.db.st }

func (s *Store) stamp() time.Time { return s.db.now().UTC().Truncate(time.Microsecond) }

func (s *Store) Users() store.UserRepository         { return userRepo{s} }
func (s *Store) Quizzes() store.QuizRepository       { return quizRepo{s} }
func (s *Store) Questions() store.QuestionRepository { return questionRepo{s} }
func (s *Store) Attempts() store.AttemptRepository   { return attemptRepo{s} }
func (s *Store) Answers() store.AnswerRepository     { return answerRepo{s} }

// WithTx implements store.Store.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	// Anything short of a nil return, a panic included, restores the snapshot.
	snapshot := s.db.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.db.st = snapshot
		}
	}()
	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

var _ store.Store = (*Store)(nil)
