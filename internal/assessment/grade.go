package assessment

import (
	"math"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

// PassMark is the minimum percentage that earns a certificate.
const PassMark = 80

// Unanswered marks a question the user skipped. It never matches a key.
const Unanswered = -1

var (
	ErrNoQuestions = apperror.Validation("assessment has no questions")
	ErrAnswerCount = apperror.Validation("number of answers does not match number of questions")
	ErrAnswerIndex = apperror.Validation("answer index out of range")
)

// Grade returns the rounded percentage of correct answers.
func Grade(a *Assessment, selected []int) (int, error) {
	if a == nil || len(a.Questions) == 0 {
		return 0, ErrNoQuestions
	}
	if len(selected) != len(a.Questions) {
		return 0, ErrAnswerCount
	}

	correct := 0
	for i, q := range a.Questions {
		s := selected[i]
		if s < Unanswered || s >= len(q.Options) {
			return 0, ErrAnswerIndex
		}
		if s == q.CorrectAnswer {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(a.Questions)))), nil
}

// Eligible reports whether a percentage meets the pass mark.
func Eligible(percentage int) bool {
	return percentage >= PassMark
}

// ReviewItem shows the outcome of one question after grading.
type ReviewItem struct {
	Selected      int    `json:"selected"`
	CorrectAnswer int    `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// Review is a graded attempt.
type Review struct {
	Percentage     int          `json:"percentage"`
	Eligible       bool         `json:"eligible"`
	CorrectAnswers int          `json:"correctAnswers"`
	Items          []ReviewItem `json:"items"`
}

// Evaluate grades selected and returns the per-question breakdown.
func Evaluate(a *Assessment, selected []int) (Review, error) {
	pct, err := Grade(a, selected)
	if err != nil {
		return Review{}, err
	}

	r := Review{
		Percentage: pct,
		Eligible:   Eligible(pct),
		Items:      make([]ReviewItem, len(a.Questions)),
	}
	for i, q := range a.Questions {
		ok := selected[i] == q.CorrectAnswer
		if ok {
			r.CorrectAnswers++
		}
		r.Items[i] = ReviewItem{
			Selected:      selected[i],
			CorrectAnswer: q.CorrectAnswer,
			Correct:       ok,
			Explanation:   q.Explanation,
		}
	}
	return r, nil
}
