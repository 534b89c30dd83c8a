// Package kiu scores learning material in Knowledge Impact Units.
//
// The score is a readability heuristic: average word length and average
// sentence length select a complexity tier, and the tier's KIU-per-hour rate
// is multiplied by the learning time of the text. Issued certificates store
// the result, so the arithmetic here must stay stable.
package kiu

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

const (
	// WordsPerMinute is the assumed reading speed.
	WordsPerMinute = 200
	// MinutesPerLearningHour is how many reading minutes count as one learning hour.
	MinutesPerLearningHour = 12
)

// ErrEmptyText is returned when the text has no words to score.
var ErrEmptyText = apperror.Validation("text is empty")

// Level is the academic level a text is classified at.
type Level string

const (
	LevelMiddleSchool  Level = "Middle School Level"
	LevelHighSchool    Level = "High School Level"
	LevelUndergraduate Level = "Undergraduate Level"
	LevelMasters       Level = "Master's Level"
	LevelPhD           Level = "PhD Level"
)

// Result is the derived KIU score of a text.
type Result struct {
	MaterialComplexity float64 `json:"materialComplexity"`
	BaselineKnowledge  float64 `json:"baselineKnowledge"`
	GraduatedScore     float64 `json:"graduatedScore"`
	Level              Level   `json:"level"`
}

// tier is one row of the classification table.
type tier struct {
	minWordLength     float64
	minSentenceLength float64
	level             Level
	complexity        float64
}

// tiers is checked in order; the first row whose thresholds are both
// strictly exceeded wins. Rows are not mutually exclusive.
var tiers = []tier{
	{7, 25, LevelPhD, 10},
	{6, 20, LevelMasters, 7},
	{5, 15, LevelUndergraduate, 5},
	{4, 12, LevelHighSchool, 2},
}

var fallbackTier = tier{level: LevelMiddleSchool, complexity: 1}

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// Score classifies text and computes its graduated KIU score.
func Score(text string) (Result, error) {
	words := WordCount(text)
	if words == 0 {
		return Result{}, ErrEmptyText
	}

	avgWordLength := float64(charCount(text)) / float64(words)
	avgSentenceLength := float64(words) / float64(sentenceCount(text))

	t := classify(avgWordLength, avgSentenceLength)
	hours := float64(words) / WordsPerMinute / MinutesPerLearningHour

	return Result{
		MaterialComplexity: t.complexity,
		BaselineKnowledge:  0,
		GraduatedScore:     Round2(t.complexity * hours),
		Level:              t.level,
	}, nil
}

func classify(avgWordLength, avgSentenceLength float64) tier {
	for _, t := range tiers {
		if avgWordLength > t.minWordLength && avgSentenceLength > t.minSentenceLength {
			return t
		}
	}
	return fallbackTier
}

// WordCount returns the number of whitespace-separated tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTimeMinutes is the whole-minute reading time of a text of the given
// word count.
func ReadingTimeMinutes(words int) int {
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

// CPDPoints converts whole-minute reading time into continuing professional
// development points.
func CPDPoints(readingTimeMinutes int) int {
	return int(math.Ceil(float64(readingTimeMinutes) / MinutesPerLearningHour))
}

// Round2 rounds half up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// sentenceCount is the number of pieces produced by splitting on runs of
// terminal punctuation, so it is never below one.
func sentenceCount(text string) int {
	return len(sentenceBreak.FindAllStringIndex(text, -1)) + 1
}

// charCount measures length in UTF-16 code units.
func charCount(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}
