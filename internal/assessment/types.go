// Package assessment turns learning material into a graded multiple-choice
// assessment and decides certificate eligibility.
package assessment

import "time"

const (
	// QuestionCount is the number of questions in every assessment.
	QuestionCount = 5
	// OptionCount is the number of options per question.
	OptionCount = 4
)

// Question is one multiple-choice item.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// LearningUnit describes the material. Level, ReadingTime, KIU and
// CPDPoints are always the locally computed values.
type LearningUnit struct {
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Level       string  `json:"level"`
	ReadingTime int     `json:"readingTime"`
	KIU         float64 `json:"kiu"`
	CPDPoints   int     `json:"cpdPoints"`
}

// Assessment is the generated bundle for one piece of material.
type Assessment struct {
	Questions    []Question   `json:"questions"`
	OriginalText string       `json:"originalText"`
	Accuracy     string       `json:"accuracy"`
	LearningUnit LearningUnit `json:"learningUnit"`

	// Tokens is the generation usage across all calls.
	Tokens int `json:"-"`
}

// Source types for material.
const (
	SourceText    = "text"
	SourceYouTube = "youtube"
	SourceWebsite = "website"
)

// Source records where material came from.
type Source struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Session is the assessment a user is currently working on. Submitting new
// material replaces it.
type Session struct {
	UserID     string     `json:"userId"`
	Assessment Assessment `json:"assessment"`
	Source     Source     `json:"source"`
	Percentage *int       `json:"percentage,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Passed reports whether the session has been graded at or above the pass mark.
func (s *Session) Passed() bool {
	return s.Percentage != nil && Eligible(*s.Percentage)
}
