package attempts

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/aura-quiz/backend/internal/auth"
	"github.com/aura-quiz/backend/internal/middleware"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/testutil"
)

func newRouter(t *testing.T, f *fixture) (*gin.Engine, string, string) {
	t.Helper()
	jwtSvc := auth.NewJWTService("secret", 1)
	token, err := jwtSvc.Generate(f.user.ID, f.user.Username, f.user.Email)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	intruder := testutil.SeedUser(t, f.store, "intruder")
	intruderToken, err := jwtSvc.Generate(intruder.ID, intruder.Username, intruder.Email)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(f.engine)
	r.GET("/users/:id/attempts", h.ListByUser)
	api := r.Group("")
	api.Use(middleware.JWT(jwtSvc))
	api.POST("/attempts", h.Start)
	api.GET("/attempts/:id", h.Get)
	api.POST("/attempts/:id/complete", h.Complete)
	api.POST("/answers", h.SubmitAnswer)
	return r, token, intruderToken
}

func TestHandlerAttemptFlow(t *testing.T) {
	f := newFixture(t, fourChoices()...)
	r, token, intruder := newRouter(t, f)

	w := testutil.DoJSON(t, r, http.MethodPost, "/attempts", intruder, gin.H{"user_id": f.user.ID, "quiz_id": f.quiz.ID})
	if w.Code != http.StatusForbidden {
		t.Fatalf("start for another user status = %d", w.Code)
	}
	w = testutil.DoJSON(t, r, http.MethodPost, "/attempts", token, gin.H{"user_id": f.user.ID, "quiz_id": f.quiz.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var attempt models.QuizAttempt
	testutil.Decode(t, w, &attempt)
	if attempt.TotalQuestions != 4 || attempt.CompletedAt != nil {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	path := "/attempts/" + strconv.FormatInt(attempt.ID, 10)

	for i, q := range f.questions {
		opt := testutil.CorrectOption(q)
		if i == 3 {
			opt = testutil.WrongOption(q)
		}
		w = testutil.DoJSON(t, r, http.MethodPost, "/answers", token, gin.H{"user_id": f.user.ID, "question_id": q.ID, "selected_option_id": opt})
		if w.Code != http.StatusCreated {
			t.Fatalf("answer status = %d: %s", w.Code, w.Body.String())
		}
	}
	w = testutil.DoJSON(t, r, http.MethodPost, "/answers", token, gin.H{"user_id": f.user.ID, "question_id": f.questions[0].ID})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty answer status = %d", w.Code)
	}

	w = testutil.DoJSON(t, r, http.MethodPost, path+"/complete", intruder, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("complete by intruder status = %d", w.Code)
	}
	w = testutil.DoJSON(t, r, http.MethodPost, path+"/complete", token, gin.H{"attempt_id": attempt.ID + 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("mismatched body status = %d", w.Code)
	}
	w = testutil.DoJSON(t, r, http.MethodPost, path+"/complete", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", w.Code, w.Body.String())
	}
	var done struct {
		Score       float64 `json:"score"`
		CompletedAt *string `json:"completed_at"`
	}
	testutil.Decode(t, w, &done)
	if done.Score != 75 || done.CompletedAt == nil {
		t.Fatalf("unexpected completion %+v", done)
	}

	w = testutil.DoJSON(t, r, http.MethodPost, path+"/complete", token, gin.H{"attempt_id": attempt.ID})
	if w.Code != http.StatusConflict {
		t.Fatalf("second complete status = %d", w.Code)
	}

	w = testutil.DoJSON(t, r, http.MethodGet, path, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	w = testutil.DoJSON(t, r, http.MethodGet, path, intruder, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("get by intruder status = %d", w.Code)
	}

	w = testutil.DoJSON(t, r, http.MethodGet, "/users/"+strconv.FormatInt(f.user.ID, 10)+"/attempts", "", nil)
	var list []models.QuizAttempt
	testutil.Decode(t, w, &list)
	if w.Code != http.StatusOK || len(list) != 1 || list[0].ID != attempt.ID {
		t.Fatalf("history status = %d, %+v", w.Code, list)
	}
	w = testutil.DoJSON(t, r, http.MethodGet, "/users/999/attempts", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown user history status = %d", w.Code)
	}
}

func TestHandlerAnswerBeforeStartConflicts(t *testing.T) {
	f := newFixture(t, fourChoices()...)
	r, token, _ := newRouter(t, f)
	w := testutil.DoJSON(t, r, http.MethodPost, "/answers", token, gin.H{
		"user_id": f.user.ID, "question_id": f.questions[0].ID, "selected_option_id": testutil.CorrectOption(f.questions[0]),
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}
