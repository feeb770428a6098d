package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditStore implements domain.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log appends one line to the analysis audit trail.
func (s *AuditStore) Log(ctx context.Context, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (message) VALUES ($1)`, message)
	if err != nil {
		return fmt.Errorf("postgres: log audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit lines, oldest first.
func (s *AuditStore) ListRecent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT message FROM (
			SELECT id, message FROM audit_log ORDER BY id DESC LIMIT $1
		) recent ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit entries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list audit entries rows: %w", err)
	}
	return out, nil
}
