package certificate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore keeps certificate documents in a JSONB column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed certificate store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, r Record) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" {
		return "", ErrEmailRequired
	}
	if r.Date.IsZero() {
		r.Date = time.Now()
	}
	r.ID = ""

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal certificate: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO certificates (user_id, email, issued_at, data)
		 VALUES ($1, $2, $3, $4::jsonb)
		 RETURNING id::text`,
		nullIfEmpty(r.UserID),
		r.Email,
		r.Date,
		string(data),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert certificate: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	id = uid.String()

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var data []byte
	err = s.pool.QueryRow(ctx,
		`SELECT data FROM certificates WHERE id = $1`,
		id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate: %w", err)
	}

	r, err := decodeRecord(id, data)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListByEmail(ctx context.Context, email string) ([]Record, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, data FROM certificates
		 WHERE email = $1
		 ORDER BY issued_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		r, err := decodeRecord(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

func decodeRecord(id string, data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal certificate %s: %w", id, err)
	}
	r.ID = id
	return r, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
