package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/certificate"
	"github.com/p-n-ai/pai-kiu/internal/events"
	"github.com/p-n-ai/pai-kiu/internal/platform/identity"
)

const (
	pdfType  = "application/pdf"
	xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type issueCertificateRequest struct {
	Name string `json:"name"`
}

// handleIssueCertificate issues a certificate for the caller's graded
// session and consumes the session. The name defaults to the profile name.
func (s *Server) handleIssueCertificate(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	var req issueCertificateRequest
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
	if !sess.Passed() {
		writeError(w, r, certificate.ErrNotEligible)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" && s.Profiles != nil {
		if p, err := s.Profiles.Get(ctx, id.UserID); err == nil {
			name = p.FullName()
		}
	}

	src := sess.Source
	issued, err := s.Certificates.Issue(ctx, certificate.IssueRequest{
		UserID:        id.UserID,
		Name:          name,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Score:         *sess.Percentage,
		OriginalText:  sess.Assessment.OriginalText,
		Source:        &src,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	// One certificate per graded session.
	if err := s.Sessions.Delete(ctx, id.UserID); err != nil {
		slog.Warn("session delete failed", "user_id", id.UserID, "error", err)
	}

	s.Metrics.CertificatesIssued.Inc()
	s.logEvent(ctx, id.UserID, events.CertificateIssued, map[string]any{
		"certificate_id": issued.Record.ID,
		"score":          issued.Record.Score,
		"kiu":            issued.Record.KIU.GraduatedScore,
	})

	w.Header().Set("X-Certificate-Id", issued.Record.ID)
	w.Header().Set("X-Verification-Code", issued.Record.VerificationCode)
	writeFile(w, http.StatusCreated, pdfType, issued.Filename, issued.PDF)
}

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	records, err := s.Certificates.List(r.Context(), id.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"certificates": records})
}

func (s *Server) handleDownloadCertificate(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	issued, err := s.Certificates.Download(r.Context(), r.PathValue("id"), id.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, http.StatusOK, pdfType, issued.Filename, issued.PDF)
}

func (s *Server) handleExportCertificates(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	data, err := s.Certificates.Export(r.Context(), id.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, http.StatusOK, xlsxType, "certificates-"+time.Now().UTC().Format("2006-01-02")+".xlsx", data)
}

type verifyResponse struct {
	Valid bool      `json:"valid"`
	Name  string    `json:"name,omitempty"`
	Title string    `json:"title,omitempty"`
	Score int       `json:"score,omitempty"`
	Date  time.Time `json:"date,omitzero"`
}

// handleVerifyCertificate is public: anyone holding a certificate id and its
// printed code can confirm it was issued here.
func (s *Server) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	rec, ok, err := s.Certificates.Verify(r.Context(), r.PathValue("id"), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, verifyResponse{})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Valid: true,
		Name:  rec.Name,
		Title: rec.Title,
		Score: rec.Score,
		Date:  rec.Date,
	})
}
