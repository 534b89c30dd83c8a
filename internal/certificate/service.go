package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/kiu"
	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

var (
	ErrEmailNotVerified = apperror.Auth("Please verify your email before downloading certificates")
	ErrNotEligible      = apperror.Validation("A score of at least 80% is required for a certificate")
	ErrNameRequired     = apperror.Validation("Name is required")
)

// IssueRequest carries everything needed to issue a certificate.
type IssueRequest struct {
	UserID        string
	Name          string
	Email         string
	EmailVerified bool
	Score         int
	OriginalText  string
	Source        *assessment.Source
}

// Issued is a saved certificate with its rendered document.
type Issued struct {
	Record   Record
	PDF      []byte
	Filename string
}

// Service issues and retrieves certificates.
type Service struct {
	store    Store
	composer *Composer
	now      func() time.Time
}

// NewService creates a certificate service.
func NewService(store Store, composer *Composer) *Service {
	return &Service{store: store, composer: composer, now: time.Now}
}

// Issue scores the material, persists the record and renders its PDF.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (Issued, error) {
	if !req.EmailVerified {
		return Issued{}, ErrEmailNotVerified
	}
	if !assessment.Eligible(req.Score) {
		return Issued{}, ErrNotEligible
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Issued{}, ErrNameRequired
	}
	email := NormalizeEmail(req.Email)
	if email == "" {
		return Issued{}, ErrEmailRequired
	}

	score, err := kiu.Score(req.OriginalText)
	if err != nil {
		return Issued{}, err
	}

	title := DeriveTitle(req.OriginalText)
	issuedAt := s.now().UTC()
	doc, filename := s.composer.Compose(Input{
		Name:     name,
		Title:    title,
		Score:    req.Score,
		KIU:      score,
		IssuedAt: issuedAt,
	})

	rec := Record{
		UserID:           req.UserID,
		Name:             name,
		Email:            email,
		Title:            title,
		Score:            req.Score,
		Date:             issuedAt,
		OriginalText:     req.OriginalText,
		KIU:              score,
		Source:           req.Source,
		VerificationCode: doc.VerificationCode,
	}

	pdf, err := Render(doc)
	if err != nil {
		return Issued{}, err
	}

	id, err := s.store.Save(ctx, rec)
	if err != nil {
		return Issued{}, fmt.Errorf("save certificate: %w", err)
	}
	rec.ID = id

	slog.Info("certificate issued",
		"id", id,
		"user_id", req.UserID,
		"score", req.Score,
		"kiu", score.GraduatedScore,
	)
	return Issued{Record: rec, PDF: pdf, Filename: filename}, nil
}

// List returns the certificates issued to email, newest first.
func (s *Service) List(ctx context.Context, email string) ([]Record, error) {
	if NormalizeEmail(email) == "" {
		return nil, ErrEmailRequired
	}
	return s.store.ListByEmail(ctx, email)
}

// Download re-renders a stored certificate owned by email.
func (s *Service) Download(ctx context.Context, id, email string) (Issued, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Issued{}, err
	}
	if rec.Email != NormalizeEmail(email) {
		return Issued{}, ErrNotFound
	}

	doc, filename := s.composer.Compose(Input{
		Name:     rec.Name,
		Title:    rec.Title,
		Score:    rec.Score,
		KIU:      rec.KIU,
		IssuedAt: rec.Date,
	})
	pdf, err := Render(doc)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Record: *rec, PDF: pdf, Filename: filename}, nil
}

// Verify looks up certificate id and checks code against it. Unknown ids
// return ErrNotFound.
func (s *Service) Verify(ctx context.Context, id, code string) (*Record, bool, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	ok := s.composer.Verify(strings.TrimSpace(code), Input{
		Name:     rec.Name,
		Title:    rec.Title,
		Score:    rec.Score,
		IssuedAt: rec.Date,
	})
	return rec, ok, nil
}

// Export returns the XLSX ledger of certificates issued to email.
func (s *Service) Export(ctx context.Context, email string) ([]byte, error) {
	records, err := s.List(ctx, email)
	if err != nil {
		return nil, err
	}
	return ExportLedger(records)
}
