// Package material stores the learning materials a user has studied.
package material

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/certificate"
	"github.com/p-n-ai/pai-kiu/internal/kiu"
	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

var (
	ErrUserRequired = apperror.Validation("User id is required")
	ErrBadSource    = apperror.Validation("Source type must be text, youtube or website")
)

// Material is a saved piece of learning material.
type Material struct {
	ID     string            `json:"id"`
	UserID string            `json:"userId"`
	Text   string            `json:"text"`
	Title  string            `json:"title"`
	Date   time.Time         `json:"date"`
	KIU    kiu.Result        `json:"kiu"`
	Source assessment.Source `json:"source"`
}

// Store persists materials.
type Store interface {
	Save(ctx context.Context, m Material) (string, error)
	ListByUser(ctx context.Context, userID string) ([]Material, error)
}

// Service validates and scores materials before saving them.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a material service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Save scores the text and stores it for the user. An empty title falls
// back to the first sentence of the text.
func (s *Service) Save(ctx context.Context, m Material) (Material, error) {
	if strings.TrimSpace(m.UserID) == "" {
		return Material{}, ErrUserRequired
	}
	switch m.Source.Type {
	case "":
		m.Source.Type = assessment.SourceText
	case assessment.SourceText, assessment.SourceYouTube, assessment.SourceWebsite:
	default:
		return Material{}, ErrBadSource
	}

	score, err := kiu.Score(m.Text)
	if err != nil {
		return Material{}, err
	}
	m.KIU = score
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		m.Title = certificate.DeriveTitle(m.Text)
	}
	m.Date = s.now().UTC()

	id, err := s.store.Save(ctx, m)
	if err != nil {
		return Material{}, fmt.Errorf("save material: %w", err)
	}
	m.ID = id
	return m, nil
}

// List returns the user's materials, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Material, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	return s.store.ListByUser(ctx, userID)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	materials []Material
	mu        sync.RWMutex
}

// NewMemoryStore creates an in-memory material store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, m Material) (string, error) {
	m.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials = append(s.materials, m)
	return m.ID, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Material{}
	for _, m := range s.materials {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
