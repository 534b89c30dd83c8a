package material

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore keeps materials in a JSONB column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed material store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, m Material) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m.ID = ""
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal material: %w", err)
	}

	var id string
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO learning_materials (user_id, created_at, data)
		 VALUES ($1, $2, $3::jsonb)
		 RETURNING id::text`,
		m.UserID,
		m.Date,
		string(data),
	).Scan(&id); err != nil {
		return "", fmt.Errorf("insert material: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Material, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, data FROM learning_materials
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	out := []Material{}
	for rows.Next() {
		var (
			id   string
			data []byte
			m    Material
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal material %s: %w", id, err)
		}
		m.ID = id
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return out, nil
}
