// Package account keeps the profile of each signed-in user.
package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

var (
	ErrNotFound      = apperror.NoContent("Profile not found")
	ErrEmailRequired = apperror.Validation("Email is required")
	ErrIDRequired    = apperror.Validation("User id is required")
)

// Profile is a user's account record.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Store persists profiles.
type Store interface {
	// Touch creates the profile on first sight and records the login time.
	Touch(ctx context.Context, id, email string) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	// Update replaces email and names of an existing profile.
	Update(ctx context.Context, p Profile) (*Profile, error)
}

// Clean normalizes user-editable fields.
func Clean(p Profile) (Profile, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.ID == "" {
		return p, ErrIDRequired
	}
	if p.Email == "" {
		return p, ErrEmailRequired
	}
	return p, nil
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	profiles map[string]Profile
	now      func() time.Time
	mu       sync.Mutex
}

// NewMemoryStore creates an in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile), now: time.Now}
}

func (s *MemoryStore) Touch(_ context.Context, id, email string) (*Profile, error) {
	clean, err := Clean(Profile{ID: id, Email: email})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p, ok := s.profiles[clean.ID]
	if !ok {
		p = Profile{ID: clean.ID, Email: clean.Email, CreatedAt: now}
	}
	p.LastLoginAt = now
	s.profiles[clean.ID] = p
	return &p, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) Update(_ context.Context, update Profile) (*Profile, error) {
	clean, err := Clean(update)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[clean.ID]
	if !ok {
		return nil, ErrNotFound
	}
	p.Email = clean.Email
	p.FirstName = clean.FirstName
	p.LastName = clean.LastName
	s.profiles[clean.ID] = p
	return &p, nil
}
