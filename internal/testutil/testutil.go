// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
	"github.com/aura-quiz/backend/internal/store/memory"
)

// Option describes an answer option to seed.
type Option struct {
	Text    string
	Correct bool
}

// QuestionSpec describes a question to seed. Options get order_index by position.
type QuestionSpec struct {
	Text    string
	Type    models.QuestionType
	Options []Option
}

// NewStore returns an empty memory store.
func NewStore() *memory.Store {
	return memory.New()
}

// SeedUser inserts a user with a placeholder credential.
func SeedUser(t *testing.T, st store.Store, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: "not-a-hash"}
	if err := st.Users().Create(context.Background(), &u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// SeedQuiz inserts a quiz owned by ownerID with the given questions in order.
func SeedQuiz(t *testing.T, st store.Store, ownerID int64, title string, specs ...QuestionSpec) (models.Quiz, []models.QuestionWithOptions) {
	t.Helper()
	ctx := context.Background()
	quiz := models.Quiz{Title: title, CreatedBy: ownerID}
	if err := st.Quizzes().Create(ctx, &quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	questions := make([]models.QuestionWithOptions, 0, len(specs))
	for i, spec := range specs {
		q := models.Question{QuizID: quiz.ID, QuestionText: spec.Text, QuestionType: spec.Type, OrderIndex: i}
		if err := st.Questions().Create(ctx, &q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
		qw := models.QuestionWithOptions{Question: q}
		for j, o := range spec.Options {
			opt := models.AnswerOption{QuestionID: q.ID, OptionText: o.Text, IsCorrect: o.Correct, OrderIndex: j}
			if err := st.Questions().CreateOption(ctx, &opt); err != nil {
				t.Fatalf("seed option: %v", err)
			}
			qw.AnswerOptions = append(qw.AnswerOptions, opt)
		}
		questions = append(questions, qw)
	}
	return quiz, questions
}

// Choice returns a multiple-choice question with the option at correct marked correct.
func Choice(text string, correct int, options ...string) QuestionSpec {
	spec := QuestionSpec{Text: text, Type: models.QuestionMultipleChoice}
	for i, o := range options {
		spec.Options = append(spec.Options, Option{Text: o, Correct: i == correct})
	}
	return spec
}

// CorrectOption returns the id of the first correct option.
func CorrectOption(q models.QuestionWithOptions) int64 {
	for _, o := range q.AnswerOptions {
		if o.IsCorrect {
			return o.ID
		}
	}
	panic(fmt.Sprintf("question %d has no correct option", q.ID))
}

// WrongOption returns the id of the first incorrect option.
func WrongOption(q models.QuestionWithOptions) int64 {
	for _, o := range q.AnswerOptions {
		if !o.IsCorrect {
			return o.ID
		}
	}
	panic(fmt.Sprintf("question %d has no incorrect option", q.ID))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// DoJSON serves a request with an optional JSON body and bearer token.
func DoJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Envelope mirrors the API response body with raw data for decoding.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
}

// Decode unmarshals the response envelope and, if out is non-nil, its data.
func Decode(t *testing.T, w *httptest.ResponseRecorder, out any) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", w.Body.String(), err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data %q: %v", env.Data, err)
		}
	}
	return env
}
