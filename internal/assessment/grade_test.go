package assessment

import (
	"errors"
	"testing"
)

func fiveQuestions(keys ...int) *Assessment {
	a := &Assessment{}
	for _, k := range keys {
		a.Questions = append(a.Questions, Question{
			Question:      "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: k,
			Explanation:   "e",
		})
	}
	return a
}

func TestGrade(t *testing.T) {
	a := fiveQuestions(0, 1, 2, 3, 1)

	tests := []struct {
		name     string
		selected []int
		want     int
		eligible bool
	}{
		{"all correct", []int{0, 1, 2, 3, 1}, 100, true},
		{"four of five", []int{0, 1, 2, 0, 1}, 80, true},
		{"three of five", []int{0, 1, 2, 0, 0}, 60, false},
		{"none", []int{1, 0, 0, 0, 0}, 0, false},
		{"unanswered counts wrong", []int{0, 1, 2, 3, Unanswered}, 80, true},
		{"all unanswered", []int{-1, -1, -1, -1, -1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Grade(a, tt.selected)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Grade() = %d, want %d", got, tt.want)
			}
			if Eligible(got) != tt.eligible {
				t.Errorf("Eligible(%d) = %v, want %v", got, Eligible(got), tt.eligible)
			}
		})
	}
}

func TestGrade_Rounding(t *testing.T) {
	// 2 of 3 = 66.67 -> 67; 1 of 3 = 33.33 -> 33
	a := &Assessment{Questions: fiveQuestions(0, 0, 0).Questions}
	if got, _ := Grade(a, []int{0, 0, 1}); got != 67 {
		t.Errorf("Grade(2/3) = %d, want 67", got)
	}
	if got, _ := Grade(a, []int{0, 1, 1}); got != 33 {
		t.Errorf("Grade(1/3) = %d, want 33", got)
	}
}

func TestEligible_Boundary(t *testing.T) {
	if Eligible(79) {
		t.Error("Eligible(79) = true, want false")
	}
	if !Eligible(80) {
		t.Error("Eligible(80) = false, want true")
	}
}

func TestGrade_Errors(t *testing.T) {
	tests := []struct {
		name     string
		a        *Assessment
		selected []int
		want     error
	}{
		{"nil assessment", nil, []int{0}, ErrNoQuestions},
		{"no questions", &Assessment{}, nil, ErrNoQuestions},
		{"too few answers", fiveQuestions(0, 0, 0, 0, 0), []int{0, 0}, ErrAnswerCount},
		{"too many answers", fiveQuestions(0), []int{0, 0}, ErrAnswerCount},
		{"index too high", fiveQuestions(0), []int{4}, ErrAnswerIndex},
		{"index too low", fiveQuestions(0), []int{-2}, ErrAnswerIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Grade(tt.a, tt.selected); !errors.Is(err, tt.want) {
				t.Errorf("Grade() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	r, err := Evaluate(fiveQuestions(0, 1, 2, 3, 1), []int{0, 1, 2, 0, 1})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.Percentage != 80 || !r.Eligible || r.CorrectAnswers != 4 {
		t.Errorf("Evaluate() = %+v", r)
	}
	if r.Items[3].Correct || r.Items[3].CorrectAnswer != 3 || r.Items[3].Selected != 0 {
		t.Errorf("item 3 = %+v", r.Items[3])
	}
}

func TestSession_Passed(t *testing.T) {
	pass, fail := 80, 79
	tests := []struct {
		name string
		pct  *int
		want bool
	}{
		{"ungraded", nil, false},
		{"passed", &pass, true},
		{"failed", &fail, false},
	}
	for _, tt := range tests {
		s := &Session{Percentage: tt.pct}
		if got := s.Passed(); got != tt.want {
			t.Errorf("%s: Passed() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
