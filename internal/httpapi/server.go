// Package httpapi serves the assessment, certificate and learning material
// API over HTTP/JSON, plus a WebSocket stream of transcript progress.
package httpapi

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/account"
	"github.com/p-n-ai/pai-kiu/internal/ai"
	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/certificate"
	"github.com/p-n-ai/pai-kiu/internal/events"
	"github.com/p-n-ai/pai-kiu/internal/material"
	"github.com/p-n-ai/pai-kiu/internal/platform/identity"
	"github.com/p-n-ai/pai-kiu/internal/platform/metrics"
	"github.com/p-n-ai/pai-kiu/internal/transcript"
)

// Generator produces an assessment for a learning text.
type Generator interface {
	Generate(ctx context.Context, text string) (*assessment.Assessment, error)
}

// TranscriptFetcher fetches and normalizes a video transcript.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, input string, onProgress transcript.ProgressFunc) (transcript.Result, error)
}

// WebsiteReader composes learning text for a website.
type WebsiteReader interface {
	WebsiteText(ctx context.Context, rawURL string) (string, error)
}

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators of the API. Budget, Profiles, Events and
// Metrics are optional.
type Deps struct {
	Verifier     *identity.Verifier
	Pipeline     Generator
	Sessions     assessment.SessionStore
	Transcripts  TranscriptFetcher
	Websites     WebsiteReader
	Certificates *certificate.Service
	Materials    *material.Service
	Profiles     account.Store
	Budget       ai.BudgetChecker
	Events       events.Logger
	Metrics      *metrics.Metrics

	// Checks are probed in order by /readyz.
	Checks []NamedCheck
	// OriginPatterns are extra origins allowed to open the transcript stream.
	OriginPatterns []string
}

// NamedCheck pairs a readiness probe with its name.
type NamedCheck struct {
	Name    string
	Checker HealthChecker
}

// Server routes API requests.
type Server struct {
	Deps
}

// New creates a server. Missing optional collaborators get no-op defaults.
func New(d Deps) *Server {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	return &Server{Deps: d}
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", s.Metrics.Handler())

	mux.HandleFunc("POST /v1/kiu", s.handleScore)

	mux.HandleFunc("POST /v1/assessments", s.authed(s.handleCreateAssessment))
	mux.HandleFunc("POST /v1/assessments/grade", s.authed(s.handleGrade))

	mux.HandleFunc("POST /v1/certificates", s.authed(s.handleIssueCertificate))
	mux.HandleFunc("GET /v1/certificates", s.authed(s.handleListCertificates))
	mux.HandleFunc("GET /v1/certificates/export.xlsx", s.authed(s.handleExportCertificates))
	mux.HandleFunc("GET /v1/certificates/{id}/pdf", s.authed(s.handleDownloadCertificate))
	mux.HandleFunc("GET /v1/certificates/{id}/verify", s.handleVerifyCertificate)

	mux.HandleFunc("POST /v1/materials", s.authed(s.handleSaveMaterial))
	mux.HandleFunc("GET /v1/materials", s.authed(s.handleListMaterials))

	mux.HandleFunc("GET /v1/profile", s.authed(s.handleGetProfile))
	mux.HandleFunc("PUT /v1/profile", s.authed(s.handleUpdateProfile))

	mux.HandleFunc("GET /v1/transcripts/stream", s.authedWith(s.Verifier.AuthenticateUpgrade, s.handleTranscriptStream))

	return logRequests(mux)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, id identity.Identity)

// authed verifies the bearer token, records the login on the caller's
// profile and passes the caller on.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return s.authedWith(s.Verifier.Authenticate, next)
}

// authedWith is authed with a custom token lookup. Only the WebSocket
// stream accepts a query-string token.
func (s *Server) authedWith(authenticate func(*http.Request) (identity.Identity, error), next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := authenticate(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if s.Profiles != nil && id.Email != "" {
			if _, err := s.Profiles.Touch(r.Context(), id.UserID, id.Email); err != nil {
				slog.Warn("profile touch failed", "user_id", id.UserID, "error", err)
			}
		}
		next(w, r, id)
	}
}

// logEvent records an analytics event. Failures are logged, never surfaced.
func (s *Server) logEvent(ctx context.Context, userID, eventType string, data map[string]any) {
	if err := s.Events.Log(ctx, events.Event{UserID: userID, Type: eventType, Data: data}); err != nil {
		slog.Warn("event log failed", "type", eventType, "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the WebSocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
			return
		}
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
