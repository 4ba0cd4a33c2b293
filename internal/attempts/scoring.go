package attempts

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aura-quiz/backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Score returns round(100*correct/total, 2). An empty quiz scores 0.
func Score(correct, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	if correct > total {
		correct = total
	}
	return decimal.NewFromInt(int64(correct)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// countCorrect counts questions whose latest answer is correct. answers must
// be ordered oldest first.
func countCorrect(answers []models.UserAnswer) int {
	latest := make(map[int64]bool, len(answers))
	for _, a := range answers {
		latest[a.QuestionID] = a.IsCorrect
	}
	n := 0
	for _, ok := range latest {
		if ok {
			n++
		}
	}
	return n
}

// gradeText matches free text against the accepted answers of a text question.
func gradeText(answer string, accepted []models.AnswerOption) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	for _, o := range accepted {
		if o.IsCorrect && strings.EqualFold(answer, strings.TrimSpace(o.OptionText)) {
			return true
		}
	}
	return false
}
