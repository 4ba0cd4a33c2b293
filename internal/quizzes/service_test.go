package quizzes

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/apperr"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store/memory"
	"github.com/aura-quiz/backend/internal/testutil"
)

func newService(t *testing.T) (*Service, *memory.Store, models.User) {
	t.Helper()
	st := testutil.NewStore()
	owner := testutil.SeedUser(t, st, "author")
	return NewService(st, zap.NewNop()), st, owner
}

func TestCreateQuestionReadsBackOrderedOptions(t *testing.T) {
	svc, _, owner := newService(t)
	ctx := context.Background()

	quiz, err := svc.CreateQuiz(ctx, models.CreateQuizInput{Title: "  Capitals ", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.Title != "Capitals" {
		t.Fatalf("title not trimmed: %q", quiz.Title)
	}

	in := models.CreateQuestionInput{
		QuizID:       quiz.ID,
		QuestionText: "Capital of France?",
		QuestionType: models.QuestionMultipleChoice,
		OrderIndex:   0,
		AnswerOptions: []models.AnswerOptionInput{
			{OptionText: "Lyon", OrderIndex: 2},
			{OptionText: "Paris", IsCorrect: true, OrderIndex: 0},
			{OptionText: "Nice", OrderIndex: 1},
		},
	}
	created, err := svc.CreateQuestion(ctx, in)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if len(created.AnswerOptions) != 3 {
		t.Fatalf("expected 3 options, got %d", len(created.AnswerOptions))
	}

	full, err := svc.GetQuizWithQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(full.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(full.Questions))
	}
	opts := full.Questions[0].AnswerOptions
	want := []struct {
		text    string
		correct bool
	}{{"Paris", true}, {"Nice", false}, {"Lyon", false}}
	if len(opts) != len(want) {
		t.Fatalf("expected %d options, got %d", len(want), len(opts))
	}
	for i, w := range want {
		if opts[i].OptionText != w.text || opts[i].IsCorrect != w.correct || opts[i].OrderIndex != i {
			t.Fatalf("option %d = %+v, want %s/%v", i, opts[i], w.text, w.correct)
		}
	}
}

func TestGetQuizOrdersQuestions(t *testing.T) {
	svc, _, owner := newService(t)
	ctx := context.Background()
	quiz, err := svc.CreateQuiz(ctx, models.CreateQuizInput{Title: "Order", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for _, idx := range []int{2, 0, 1} {
		_, err := svc.CreateQuestion(ctx, models.CreateQuestionInput{
			QuizID: quiz.ID, QuestionText: "q", QuestionType: models.QuestionText, OrderIndex: idx,
		})
		if err != nil {
			t.Fatalf("create question %d: %v", idx, err)
		}
	}
	full, err := svc.GetQuizWithQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	for i, q := range full.Questions {
		if q.OrderIndex != i {
			t.Fatalf("question %d has order_index %d", i, q.OrderIndex)
		}
		if q.AnswerOptions == nil {
			t.Fatalf("options should be an empty list, not nil")
		}
	}
}

func TestCreateQuestionRules(t *testing.T) {
	svc, _, owner := newService(t)
	ctx := context.Background()
	quiz, err := svc.CreateQuiz(ctx, models.CreateQuizInput{Title: "Rules", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	opt := func(text string, correct bool, idx int) models.AnswerOptionInput {
		return models.AnswerOptionInput{OptionText: text, IsCorrect: correct, OrderIndex: idx}
	}

	tests := []struct {
		name string
		in   models.CreateQuestionInput
		kind apperr.Kind
	}{
		{"missing quiz", models.CreateQuestionInput{QuizID: 999, QuestionText: "q", QuestionType: models.QuestionText}, apperr.KindNotFound},
		{"empty text", models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "  ", QuestionType: models.QuestionText}, apperr.KindValidation},
		{"unknown type", models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "q", QuestionType: "essay"}, apperr.KindValidation},
		{"one option", models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "q", QuestionType: models.QuestionMultipleChoice,
			AnswerOptions: []models.AnswerOptionInput{opt("a", true, 0)}}, apperr.KindValidation},
		{"two correct", models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "q", QuestionType: models.QuestionMultipleChoice,
			AnswerOptions: []models.AnswerOptionInput{opt("a", true, 0), opt("b", true, 1)}}, apperr.KindValidation},
		{"three true_false", models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "q", QuestionType: models.QuestionTrueFalse,
			AnswerOptions: []models.AnswerOptionInput{opt("t", true, 0), opt("f", false, 1), opt("x", false, 2)}}, apperr.KindValidation},
		{"duplicate option index", models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "q", QuestionType: models.QuestionMultipleChoice,
			AnswerOptions: []models.AnswerOptionInput{opt("a", true, 0), opt("b", false, 0)}}, apperr.KindValidation},
		{"wrong text answer", models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "q", QuestionType: models.QuestionText,
			AnswerOptions: []models.AnswerOptionInput{opt("a", false, 0)}}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateQuestion(ctx, tt.in)
			if apperr.KindOf(err) != tt.kind {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}

	full, err := svc.GetQuizWithQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(full.Questions) != 0 {
		t.Fatalf("rejected questions must not be stored, got %d", len(full.Questions))
	}
}

func TestCreateQuestionDuplicateOrderIndexConflicts(t *testing.T) {
	svc, _, owner := newService(t)
	ctx := context.Background()
	quiz, err := svc.CreateQuiz(ctx, models.CreateQuizInput{Title: "Dup", CreatedBy: owner.ID})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	in := models.CreateQuestionInput{QuizID: quiz.ID, QuestionText: "q", QuestionType: models.QuestionText, OrderIndex: 3}
	if _, err := svc.CreateQuestion(ctx, in); err != nil {
		t.Fatalf("first question: %v", err)
	}
	if _, err := svc.CreateQuestion(ctx, in); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateQuizUnknownOwner(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.CreateQuiz(context.Background(), models.CreateQuizInput{Title: "Orphan", CreatedBy: 999})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListQuizzesEmpty(t *testing.T) {
	svc, _, _ := newService(t)
	list, err := svc.ListQuizzes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
}
