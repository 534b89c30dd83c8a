package certificate

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/kiu"
	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

var (
	ErrEmailRequired = apperror.Validation("Email is required")
	ErrNotFound      = apperror.NoContent("Certificate not found")
)

// Record is a persisted certificate. It is immutable once saved.
type Record struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId,omitempty"`
	Name             string             `json:"name"`
	Email            string             `json:"email"`
	Title            string             `json:"title"`
	Score            int                `json:"score"`
	Date             time.Time          `json:"date"`
	OriginalText     string             `json:"originalText"`
	KIU              kiu.Result         `json:"kiu"`
	Source           *assessment.Source `json:"source,omitempty"`
	VerificationCode string             `json:"verificationCode"`
}

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Store persists certificate records.
type Store interface {
	Save(ctx context.Context, r Record) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	ListByEmail(ctx context.Context, email string) ([]Record, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	records map[string]Record
	mu      sync.RWMutex
}

// NewMemoryStore creates an in-memory certificate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, r Record) (string, error) {
	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" {
		return "", ErrEmailRequired
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Date.IsZero() {
		r.Date = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
	return r.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ListByEmail(_ context.Context, email string) ([]Record, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, r := range s.records {
		if r.Email == email {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
