package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BudgetChecker tracks daily generation token usage per user. The limit is
// soft: requests that pass Check concurrently may each record a full
// generation, so usage can end the day above the limit.
type BudgetChecker interface {
	// Check returns true if the user has budget remaining today.
	Check(ctx context.Context, userID string) (bool, error)
	// Record adds token usage for the user to today's total.
	Record(ctx context.Context, userID string, tokens int) error
	// Usage returns today's usage and the daily limit (0 = unlimited).
	Usage(ctx context.Context, userID string) (used int64, limit int64, err error)
}

// InMemoryBudget is a process-local daily budget for development and tests.
type InMemoryBudget struct {
	mu    sync.RWMutex
	limit int64
	usage map[string]int64 // day:user -> tokens used
	now   func() time.Time
}

// NewInMemoryBudget creates a budget tracker with the given daily token limit.
// A limit of zero disables enforcement.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit: limit,
		usage: make(map[string]int64),
		now:   time.Now,
	}
}

func (b *InMemoryBudget) Check(_ context.Context, userID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[budgetKey(b.now(), userID)] < b.limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[budgetKey(b.now(), userID)] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, userID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[budgetKey(b.now(), userID)], b.limit, nil
}

// RedisBudget shares daily usage counters across server instances.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

// NewRedisBudget creates a Redis-backed budget tracker.
func NewRedisBudget(client *redis.Client, limit int64) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, now: time.Now}
}

func (b *RedisBudget) Check(ctx context.Context, userID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, _, err := b.Usage(ctx, userID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := "kiu:budget:" + budgetKey(b.now(), userID)

	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record budget usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, userID string) (int64, int64, error) {
	raw, err := b.client.Get(ctx, "kiu:budget:"+budgetKey(b.now(), userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, b.limit, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read budget usage: %w", err)
	}
	used, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse budget usage: %w", err)
	}
	return used, b.limit, nil
}

func budgetKey(now time.Time, userID string) string {
	return now.UTC().Format("2006-01-02") + ":" + userID
}
