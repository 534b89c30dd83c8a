package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/platform/database/dbtest"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	first, err := store.Touch(ctx, "uid-1", " Ada@Example.com ")
	if err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if first.Email != "ada@example.com" || first.CreatedAt.IsZero() {
		t.Errorf("Touch() = %+v", first)
	}

	second, err := store.Touch(ctx, "uid-1", "changed@example.com")
	if err != nil {
		t.Fatalf("second Touch() error = %v", err)
	}
	if second.Email != "ada@example.com" {
		t.Errorf("Touch() must not overwrite email, got %q", second.Email)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("CreatedAt should be stable across logins")
	}

	updated, err := store.Update(ctx, Profile{ID: "uid-1", Email: "NEW@example.com", FirstName: " Ada ", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Email != "new@example.com" || updated.FullName() != "Ada Lovelace" {
		t.Errorf("Update() = %+v", updated)
	}

	got, err := store.Get(ctx, "uid-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FirstName != "Ada" {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := store.Get(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nobody) error = %v, want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, Profile{ID: "nobody", Email: "x@y.z"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(nobody) error = %v, want ErrNotFound", err)
	}
	if _, err := store.Touch(ctx, "uid-2", ""); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("Touch() without email error = %v, want ErrEmailRequired", err)
	}
	if _, err := store.Touch(ctx, "", "a@b.c"); !errors.Is(err, ErrIDRequired) {
		t.Errorf("Touch() without id error = %v, want ErrIDRequired", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_LastLogin(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _ = store.Touch(context.Background(), "u", "u@x.y")
	now = now.Add(time.Hour)
	p, _ := store.Touch(context.Background(), "u", "u@x.y")

	if !p.LastLoginAt.Equal(now) || p.CreatedAt.Equal(now) {
		t.Errorf("profile = %+v", p)
	}
}

func TestPostgresStore(t *testing.T) {
	store, err := NewPostgresStore(dbtest.NewPool(t))
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	exerciseStore(t, store)
}

func TestFullName(t *testing.T) {
	tests := []struct {
		p    Profile
		want string
	}{
		{Profile{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{Profile{FirstName: "Ada"}, "Ada"},
		{Profile{}, ""},
	}
	for _, tt := range tests {
		if got := tt.p.FullName(); got != tt.want {
			t.Errorf("FullName() = %q, want %q", got, tt.want)
		}
	}
}
