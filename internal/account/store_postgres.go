package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed profile Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed profile store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

const profileColumns = `id, email, first_name, last_name, created_at, last_login_at`

func (s *PostgresStore) Touch(ctx context.Context, id, email string) (*Profile, error) {
	clean, err := Clean(Profile{ID: id, Email: email})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET last_login_at = now()
		 RETURNING `+profileColumns,
		clean.ID,
		clean.Email,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("touch profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, update Profile) (*Profile, error) {
	clean, err := Clean(update)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProfile(s.pool.QueryRow(ctx,
		`UPDATE users SET email = $2, first_name = $3, last_name = $4
		 WHERE id = $1
		 RETURNING `+profileColumns,
		clean.ID,
		clean.Email,
		clean.FirstName,
		clean.LastName,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.CreatedAt, &p.LastLoginAt); err != nil {
		return nil, err
	}
	return &p, nil
}
