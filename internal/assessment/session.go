package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

// ErrNoSession is returned when the user has no assessment in progress.
var ErrNoSession = apperror.NoContent("No assessment in progress. Submit material first.")

// ErrAlreadyGraded is returned when a session is graded a second time.
var ErrAlreadyGraded = apperror.Validation("Assessment already graded. Submit new material to try again.")

// SessionStore keeps the current assessment of each user.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, userID string) (*Session, error)
	// SetPercentage records the grade once; later calls fail with
	// ErrAlreadyGraded until new material replaces the session.
	SetPercentage(ctx context.Context, userID string, percentage int) error
	Delete(ctx context.Context, userID string) error
}

// MemorySessionStore is an in-memory SessionStore with expiry.
type MemorySessionStore struct {
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
}

type memorySession struct {
	session   Session
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory session store. A zero ttl
// keeps sessions until replaced.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Save(_ context.Context, sess Session) error {
	if sess.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = memorySession{session: sess, expiresAt: expiresAt}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, userID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.sessions[userID]
	if !ok || (!m.expiresAt.IsZero() && s.now().After(m.expiresAt)) {
		return nil, ErrNoSession
	}
	sess := m.session
	return &sess, nil
}

func (s *MemorySessionStore) SetPercentage(_ context.Context, userID string, percentage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.sessions[userID]
	if !ok || (!m.expiresAt.IsZero() && s.now().After(m.expiresAt)) {
		return ErrNoSession
	}
	if m.session.Percentage != nil {
		return ErrAlreadyGraded
	}
	m.session.Percentage = &percentage
	s.sessions[userID] = m
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// RedisSessionStore keeps sessions in Redis so any instance can grade them.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(userID string) string {
	return "kiu:session:" + userID
}

func (s *RedisSessionStore) Save(ctx context.Context, sess Session) error {
	if sess.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, userID string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) SetPercentage(ctx context.Context, userID string, percentage int) error {
	key := sessionKey(userID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if sess.Percentage != nil {
			return ErrAlreadyGraded
		}
		sess.Percentage = &percentage
		if data, err = json.Marshal(sess); err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another request graded or replaced the session first.
		return ErrAlreadyGraded
	}
	return err
}

func (s *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
