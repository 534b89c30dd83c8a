// Package transcript turns timed caption segments into continuous text.
package transcript

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

// ErrNoContent is returned when nothing readable is left after cleanup.
var ErrNoContent = apperror.NoContent("No readable transcript content found")

// Segment is one timed caption line.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Progress is a snapshot emitted after each minute of video is processed.
type Progress struct {
	CurrentMinute int    `json:"currentMinute"`
	TotalMinutes  int    `json:"totalMinutes"`
	Text          string `json:"text"`
}

// ProgressFunc receives progress snapshots in strictly increasing minute order.
type ProgressFunc func(Progress)

var (
	speakerTag     = regexp.MustCompile(`\[[^\]]*\]:\s*`)
	timestamp      = regexp.MustCompile(`\(\d{1,2}:\d{2}\)`)
	annotation     = regexp.MustCompile(`\[.*?\]|\(.*?\)`)
	glyphs         = regexp.MustCompile(`[♪♫►]`)
	fillers        = regexp.MustCompile(`(?i)\b(?:um|uh|ah|er|mm|hmm)\b`)
	noiseTags      = regexp.MustCompile(`(?i)\[Music\]|\[Applause\]|\[Laughter\]|\[Background Noise\]`)
	emptyParens    = regexp.MustCompile(`\(\s*\)`)
	whitespace     = regexp.MustCompile(`\s+`)
	missingSpace   = regexp.MustCompile(`([.!?])\s*([A-Z])`)
	repeatedEnders = regexp.MustCompile(`[.!?]{2,}`)
)

// Normalizer assembles transcripts. The zero value is ready to use.
type Normalizer struct {
	// Pace is slept between minute buckets so a consumer rendering progress
	// can keep up. Zero disables it.
	Pace time.Duration
}

// Normalize assembles segments with a zero-value Normalizer.
func Normalize(segments []Segment, onProgress ProgressFunc) (string, error) {
	return Normalizer{}.Normalize(context.Background(), segments, onProgress)
}

// Normalize cleans each segment, joins them into whole sentences and reports
// progress once per minute of video. onProgress may be nil.
func (n Normalizer) Normalize(ctx context.Context, segments []Segment, onProgress ProgressFunc) (string, error) {
	byMinute := make(map[int][]Segment)
	var end float64
	for _, seg := range segments {
		minute := int(math.Floor(seg.Start / 60))
		byMinute[minute] = append(byMinute[minute], seg)
		end = math.Max(end, seg.Start+seg.Duration)
	}
	totalMinutes := int(math.Ceil(end / 60))

	var text, buffer strings.Builder
	flush := func() {
		if buffer.Len() == 0 {
			return
		}
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(buffer.String())
		buffer.Reset()
	}

	for minute := 0; minute <= totalMinutes; minute++ {
		for _, seg := range byMinute[minute] {
			cleaned := CleanSegment(seg.Text)
			if cleaned == "" {
				continue
			}
			if buffer.Len() > 0 {
				buffer.WriteByte(' ')
			}
			buffer.WriteString(cleaned)
			if endsSentence(cleaned) {
				flush()
			}
		}

		if onProgress != nil {
			onProgress(Progress{
				CurrentMinute: minute + 1,
				TotalMinutes:  totalMinutes,
				Text:          text.String(),
			})
		}

		if n.Pace > 0 && minute < totalMinutes {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(n.Pace):
			}
		}
	}
	flush()

	transcript := FinalCleanup(text.String())
	if transcript == "" {
		return "", ErrNoContent
	}
	return transcript, nil
}

// CleanSegment strips speaker tags, timestamps, annotations, music glyphs,
// filler words and noise tags from a single caption line.
func CleanSegment(s string) string {
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)
	s = speakerTag.ReplaceAllString(s, "")
	s = timestamp.ReplaceAllString(s, "")
	s = annotation.ReplaceAllString(s, "")
	s = glyphs.ReplaceAllString(s, "")
	s = fillers.ReplaceAllString(s, "")
	s = noiseTags.ReplaceAllString(s, "")
	s = emptyParens.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FinalCleanup fixes spacing after terminal punctuation, collapses repeated
// terminal punctuation to its last character and collapses whitespace.
// Applying it to its own output is a no-op.
func FinalCleanup(s string) string {
	s = missingSpace.ReplaceAllString(s, "$1 $2")
	s = repeatedEnders.ReplaceAllStringFunc(s, func(run string) string {
		return run[len(run)-1:]
	})
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func endsSentence(s string) bool {
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
