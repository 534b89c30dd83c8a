package kiu

import (
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

// buildText returns sentences sentences of wordsPer copies of word, each
// sentence terminated by a period.
func buildText(word string, wordsPer, sentences int) string {
	sentence := strings.TrimSpace(strings.Repeat(word+" ", wordsPer)) + "."
	parts := make([]string, sentences)
	for i := range parts {
		parts[i] = sentence
	}
	return strings.Join(parts, " ")
}

func TestScore_PhDExample(t *testing.T) {
	// 2400 words, ~8 chars per word, ~30 words per sentence.
	text := buildText("abcdefg", 30, 80)

	got, err := Score(text)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got.Level != LevelPhD {
		t.Errorf("Level = %q, want %q", got.Level, LevelPhD)
	}
	if got.MaterialComplexity != 10 {
		t.Errorf("MaterialComplexity = %v, want 10", got.MaterialComplexity)
	}
	if got.GraduatedScore != 10 {
		t.Errorf("GraduatedScore = %v, want 10", got.GraduatedScore)
	}
	if got.BaselineKnowledge != 0 {
		t.Errorf("BaselineKnowledge = %v, want 0", got.BaselineKnowledge)
	}
}

func TestScore_WordLengthBoundaryIsStrict(t *testing.T) {
	// 240 six-letter words and a single trailing period: (1440+239+1)/240 = 7.0
	// exactly, 240/2 = 120 words per sentence.
	text := strings.TrimSpace(strings.Repeat("abcdef ", 240)) + "."

	got, err := Score(text)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got.Level != LevelMasters {
		t.Errorf("Level = %q, want %q (7.0 must not pass the > 7 threshold)", got.Level, LevelMasters)
	}
	if got.MaterialComplexity != 7 {
		t.Errorf("MaterialComplexity = %v, want 7", got.MaterialComplexity)
	}
	if got.GraduatedScore != 0.7 {
		t.Errorf("GraduatedScore = %v, want 0.7", got.GraduatedScore)
	}
}

func TestScore_Levels(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		level      Level
		complexity float64
	}{
		{
			name:       "short words",
			text:       "The cat sat.",
			level:      LevelMiddleSchool,
			complexity: 1,
		},
		{
			name:       "high school",
			text:       strings.TrimSpace(strings.Repeat("abcd ", 13)),
			level:      LevelHighSchool,
			complexity: 2,
		},
		{
			// Long words but short sentences: only the high school row matches.
			name:       "long words short sentences",
			text:       buildText("abcdefghij", 16, 4),
			level:      LevelHighSchool,
			complexity: 2,
		},
		{
			// Satisfies both the undergraduate and high school rows; the higher wins.
			name:       "undergraduate over high school",
			text:       buildText("abcd", 30, 4),
			level:      LevelUndergraduate,
			complexity: 5,
		},
		{
			name:       "masters",
			text:       buildText("abcde", 25, 10),
			level:      LevelMasters,
			complexity: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.text)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if got.Level != tt.level {
				t.Errorf("Level = %q, want %q", got.Level, tt.level)
			}
			if got.MaterialComplexity != tt.complexity {
				t.Errorf("MaterialComplexity = %v, want %v", got.MaterialComplexity, tt.complexity)
			}
		})
	}
}

func TestScore_GraduatedScoreFormula(t *testing.T) {
	texts := []string{
		"The cat sat.",
		buildText("abcdefg", 30, 80),
		buildText("abcde", 30, 4),
		strings.Repeat("word ", 1234),
	}
	for _, text := range texts {
		got, err := Score(text)
		if err != nil {
			t.Fatalf("Score() error = %v", err)
		}
		want := Round2(got.MaterialComplexity * (float64(WordCount(text)) / 200 / 12))
		if got.GraduatedScore != want {
			t.Errorf("GraduatedScore = %v, want %v", got.GraduatedScore, want)
		}
		if got.GraduatedScore < 0 {
			t.Errorf("GraduatedScore = %v, want >= 0", got.GraduatedScore)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	text := buildText("determinism", 17, 9)
	first, err := Score(text)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := Score(text)
		if again != first {
			t.Fatalf("Score() = %+v on call %d, want %+v", again, i, first)
		}
	}
}

func TestScore_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := Score(text)
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("Score(%q) error = %v, want ErrEmptyText", text, err)
		}
		if apperror.KindOf(err) != apperror.KindValidation {
			t.Errorf("Score(%q) kind = %v, want validation", text, apperror.KindOf(err))
		}
	}
}

func TestReadingTimeAndCPD(t *testing.T) {
	tests := []struct {
		words   int
		minutes int
		cpd     int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{200, 1, 1},
		{201, 2, 1},
		{2400, 12, 1},
		{2401, 13, 2},
	}
	for _, tt := range tests {
		minutes := ReadingTimeMinutes(tt.words)
		if minutes != tt.minutes {
			t.Errorf("ReadingTimeMinutes(%d) = %d, want %d", tt.words, minutes, tt.minutes)
		}
		if cpd := CPDPoints(minutes); cpd != tt.cpd {
			t.Errorf("CPDPoints(%d) = %d, want %d", minutes, cpd, tt.cpd)
		}
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.125, 0.13},
		{0.00125, 0},
		{10, 10},
		{2.3333333, 2.33},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCharCount_UTF16(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"abc", 3},
		{"café", 4},
		{"a😀", 3},
	}
	for _, tt := range tests {
		if got := charCount(tt.in); got != tt.want {
			t.Errorf("charCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSentenceCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"no terminal punctuation", 1},
		{"One. Two.", 3},
		{"Really?! Yes...", 3},
	}
	for _, tt := range tests {
		if got := sentenceCount(tt.in); got != tt.want {
			t.Errorf("sentenceCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
