package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/events"
	"github.com/p-n-ai/pai-kiu/internal/kiu"
	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
	"github.com/p-n-ai/pai-kiu/internal/platform/identity"
	"github.com/p-n-ai/pai-kiu/internal/platform/metrics"
)

var (
	ErrOneSource         = apperror.Validation("Provide exactly one of text, videoUrl or websiteUrl")
	ErrSourceUnavailable = apperror.New(apperror.KindExternalService, "This material source is not available")
)

type scoreRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := kiu.Score(strings.TrimSpace(req.Text))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createAssessmentRequest struct {
	Text       string `json:"text"`
	VideoURL   string `json:"videoUrl"`
	WebsiteURL string `json:"websiteUrl"`
}

type questionView struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// assessmentView is an assessment with its answer keys withheld.
type assessmentView struct {
	Questions    []questionView          `json:"questions"`
	OriginalText string                  `json:"originalText"`
	Accuracy     string                  `json:"accuracy"`
	LearningUnit assessment.LearningUnit `json:"learningUnit"`
	Source       assessment.Source       `json:"source"`
}

func newAssessmentView(a *assessment.Assessment, src assessment.Source) assessmentView {
	v := assessmentView{
		Questions:    make([]questionView, len(a.Questions)),
		OriginalText: a.OriginalText,
		Accuracy:     a.Accuracy,
		LearningUnit: a.LearningUnit,
		Source:       src,
	}
	for i, q := range a.Questions {
		v.Questions[i] = questionView{Question: q.Question, Options: q.Options}
	}
	return v
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	var req createAssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	if s.Budget != nil {
		ok, err := s.Budget.Check(ctx, id.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeError(w, r, ErrBudgetExceeded)
			return
		}
	}

	text, src, err := s.resolveMaterial(ctx, id.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	a, err := s.Pipeline.Generate(ctx, text)
	if err != nil {
		s.Metrics.AssessmentsFailed.WithLabelValues(apperror.KindOf(err).String()).Inc()
		s.logEvent(ctx, id.UserID, events.AssessmentFailed, map[string]any{
			"source": src.Type,
			"error":  err.Error(),
		})
		writeError(w, r, err)
		return
	}
	s.Metrics.ObserveGeneration(time.Since(start), a.Tokens)

	if s.Budget != nil {
		if err := s.Budget.Record(ctx, id.UserID, a.Tokens); err != nil {
			slog.Warn("budget record failed", "user_id", id.UserID, "error", err)
		}
	}

	if err := s.Sessions.Save(ctx, assessment.Session{UserID: id.UserID, Assessment: *a, Source: src}); err != nil {
		writeError(w, r, err)
		return
	}

	s.logEvent(ctx, id.UserID, events.AssessmentGenerated, map[string]any{
		"source": src.Type,
		"level":  a.LearningUnit.Level,
		"kiu":    a.LearningUnit.KIU,
		"tokens": a.Tokens,
	})
	writeJSON(w, http.StatusCreated, newAssessmentView(a, src))
}

// resolveMaterial turns the request into learning text and its source.
func (s *Server) resolveMaterial(ctx context.Context, userID string, req createAssessmentRequest) (string, assessment.Source, error) {
	text := strings.TrimSpace(req.Text)
	videoURL := strings.TrimSpace(req.VideoURL)
	websiteURL := strings.TrimSpace(req.WebsiteURL)

	given := 0
	for _, v := range []string{text, videoURL, websiteURL} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return "", assessment.Source{}, ErrOneSource
	}

	switch {
	case videoURL != "":
		if s.Transcripts == nil {
			return "", assessment.Source{}, ErrSourceUnavailable
		}
		res, err := s.Transcripts.Fetch(ctx, videoURL, nil)
		s.observeTranscript(ctx, userID, res.VideoID, err)
		if err != nil {
			return "", assessment.Source{}, err
		}
		return res.Text, assessment.Source{Type: assessment.SourceYouTube, ID: res.VideoID, URL: videoURL}, nil

	case websiteURL != "":
		if s.Websites == nil {
			return "", assessment.Source{}, ErrSourceUnavailable
		}
		body, err := s.Websites.WebsiteText(ctx, websiteURL)
		if err != nil {
			return "", assessment.Source{}, err
		}
		return body, assessment.Source{Type: assessment.SourceWebsite, URL: websiteURL}, nil

	default:
		return text, assessment.Source{Type: assessment.SourceText}, nil
	}
}

func (s *Server) observeTranscript(ctx context.Context, userID, videoID string, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeFailed
	}
	s.Metrics.TranscriptFetches.WithLabelValues(outcome).Inc()
	if err == nil {
		s.logEvent(ctx, userID, events.TranscriptFetched, map[string]any{"video_id": videoID})
	}
}

type gradeRequest struct {
	Answers []int `json:"answers"`
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	var req gradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	sess, err := s.Sessions.Get(ctx, id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sess.Percentage != nil {
		writeError(w, r, assessment.ErrAlreadyGraded)
		return
	}

	review, err := assessment.Evaluate(&sess.Assessment, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Sessions.SetPercentage(ctx, id.UserID, review.Percentage); err != nil {
		writeError(w, r, err)
		return
	}

	s.Metrics.ObserveGrade(review.Eligible)
	s.logEvent(ctx, id.UserID, events.AssessmentGraded, map[string]any{
		"percentage": review.Percentage,
		"eligible":   review.Eligible,
	})
	writeJSON(w, http.StatusOK, review)
}
