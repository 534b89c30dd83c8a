package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

// Caption track variants offered by the transcript service.
const (
	TypeManual = "manual"
	TypeAuto   = "auto"
)

var (
	ErrVideoIDRequired = apperror.Validation("Video ID is required")
	ErrInvalidVideo    = apperror.Validation("Could not find a YouTube video id in the input")
	ErrNoTranscript    = apperror.NoContent("No transcript available for this video")
)

// Source fetches the caption segments of a video. An empty result with a nil
// error means the requested variant does not exist.
type Source interface {
	Transcript(ctx context.Context, videoID, kind string) ([]Segment, error)
}

// Result is a fetched and normalized transcript.
type Result struct {
	VideoID string `json:"videoId"`
	Text    string `json:"text"`
}

// Service fetches transcripts and normalizes them.
type Service struct {
	source     Source
	normalizer Normalizer
}

// NewService creates a transcript service. pace is forwarded to the Normalizer.
func NewService(source Source, pace time.Duration) *Service {
	return &Service{
		source:     source,
		normalizer: Normalizer{Pace: pace},
	}
}

// Fetch resolves input to a video id, fetches its manual transcript (falling
// back to the auto-generated one) and normalizes it.
func (s *Service) Fetch(ctx context.Context, input string, onProgress ProgressFunc) (Result, error) {
	if input == "" {
		return Result{}, ErrVideoIDRequired
	}
	videoID, ok := ExtractVideoID(input)
	if !ok {
		return Result{}, ErrInvalidVideo
	}

	segments, err := s.source.Transcript(ctx, videoID, TypeManual)
	if err != nil {
		return Result{}, fmt.Errorf("fetch manual transcript: %w", err)
	}
	if len(segments) == 0 {
		slog.Debug("manual transcript unavailable, trying auto-generated", "video_id", videoID)
		segments, err = s.source.Transcript(ctx, videoID, TypeAuto)
		if err != nil {
			return Result{}, fmt.Errorf("fetch auto transcript: %w", err)
		}
	}
	if len(segments) == 0 {
		return Result{}, ErrNoTranscript
	}

	text, err := s.normalizer.Normalize(ctx, segments, onProgress)
	if err != nil {
		return Result{}, err
	}

	slog.Info("transcript fetched",
		"video_id", videoID,
		"segments", len(segments),
		"text_len", len(text),
	)
	return Result{VideoID: videoID, Text: text}, nil
}
