// Package certificate composes, renders, stores and exports certificates of
// achievement for passed assessments.
package certificate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/p-n-ai/pai-kiu/internal/kiu"
)

const (
	maxTitleLength   = 100
	maxDisplayLength = 60
	displayCut       = 57

	// DateLayout is the issue date format printed on certificates.
	DateLayout = "January 2, 2006"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// DeriveTitle is the first sentence of the material (text before the first
// "."), cut to 100 UTF-16 code units and trimmed.
func DeriveTitle(originalText string) string {
	first, _, _ := strings.Cut(originalText, ".")
	return strings.TrimSpace(truncateUTF16(first, maxTitleLength))
}

// Filename is the download name for a certificate with the given title.
func Filename(title string) string {
	slug := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		return "certificate.pdf"
	}
	return slug + "-certificate.pdf"
}

// DisplayTitle shortens titles longer than 60 UTF-16 code units to 57
// plus "...".
func DisplayTitle(title string) string {
	if utf16Len(title) <= maxDisplayLength {
		return title
	}
	return truncateUTF16(title, displayCut) + "..."
}

// Summary is the sentence printed under the score.
func Summary(r kiu.Result) string {
	return "This assessment evaluated comprehension and knowledge of key concepts at " +
		string(r.Level) + " (" + formatNumber(r.GraduatedScore) + " KIU). " +
		"The material demonstrated a complexity score of " + formatNumber(r.MaterialComplexity) +
		" with a baseline knowledge requirement of " + formatNumber(r.BaselineKnowledge) + " KIU."
}

// Input is what a certificate is composed from.
type Input struct {
	Name     string
	Title    string
	Score    int
	Summary  string // empty uses Summary(KIU)
	KIU      kiu.Result
	IssuedAt time.Time
}

// Document is the textual content of a certificate.
type Document struct {
	Name             string
	Title            string
	Score            int
	KIU              float64
	Level            string
	Summary          string
	IssuedOn         string
	IssuedAt         time.Time
	VerificationCode string
}

// Composer builds certificate documents.
type Composer struct {
	key []byte
}

// NewComposer creates a composer whose verification codes are keyed with key.
func NewComposer(key []byte) *Composer {
	return &Composer{key: key}
}

// Compose returns the document for in and its download filename.
func (c *Composer) Compose(in Input) (Document, string) {
	issued := in.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	summary := in.Summary
	if summary == "" {
		summary = Summary(in.KIU)
	}

	doc := Document{
		Name:             in.Name,
		Title:            DisplayTitle(in.Title),
		Score:            in.Score,
		KIU:              in.KIU.GraduatedScore,
		Level:            string(in.KIU.Level),
		Summary:          summary,
		IssuedOn:         issued.Format(DateLayout),
		IssuedAt:         issued,
		VerificationCode: VerificationCode(c.key, in.Name, in.Title, in.Score, issued),
	}
	return doc, Filename(in.Title)
}

// Verify reports whether code is the verification code of in.
func (c *Composer) Verify(code string, in Input) bool {
	return Verify(c.key, code, in.Name, in.Title, in.Score, in.IssuedAt)
}

// truncateUTF16 cuts s to at most n UTF-16 code units. A surrogate pair
// that would straddle the limit is dropped whole.
func truncateUTF16(s string, n int) string {
	units := 0
	for i, r := range s {
		units += utf16.RuneLen(r)
		if units > n {
			return s[:i]
		}
	}
	return s
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
