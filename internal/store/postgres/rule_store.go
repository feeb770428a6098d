package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/overtop/tradebrain/internal/domain"
)

// RuleStore implements domain.RuleStore using PostgreSQL.
type RuleStore struct {
	pool *pgxpool.Pool
}

// NewRuleStore creates a new RuleStore backed by the given connection pool.
func NewRuleStore(pool *pgxpool.Pool) *RuleStore {
	return &RuleStore{pool: pool}
}

// Upsert writes a rule with the same version gate as the in-memory
// repository: an existing row is replaced only when the incoming version is
// strictly greater. A stale write is a silent no-op, so replaying the whole
// rule set after a restart is safe.
func (s *RuleStore) Upsert(ctx context.Context, rule domain.Rule) error {
	triggersJSON, err := json.Marshal(rule.Triggers)
	if err != nil {
		return fmt.Errorf("postgres: marshal rule triggers: %w", err)
	}
	actionJSON, err := json.Marshal(rule.Action)
	if err != nil {
		return fmt.Errorf("postgres: marshal rule action: %w", err)
	}

	const query = `
		INSERT INTO rules (
			rule_id, version, description, triggers, action,
			priority, enabled, source, hits, wins_after, losses_after,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			NOW(), NOW()
		)
		ON CONFLICT (rule_id) DO UPDATE SET
			version      = EXCLUDED.version,
			description  = EXCLUDED.description,
			triggers     = EXCLUDED.triggers,
			action       = EXCLUDED.action,
			priority     = EXCLUDED.priority,
			enabled      = EXCLUDED.enabled,
			source       = EXCLUDED.source,
			updated_at   = NOW()
		WHERE rules.version < EXCLUDED.version`

	_, err = s.pool.Exec(ctx, query,
		rule.ID, rule.Version, rule.Description, triggersJSON, actionJSON,
		rule.Priority, rule.Enabled, rule.Source,
		rule.Hits, rule.WinsAfter, rule.LossesAfter,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert rule %s: %w", rule.ID, err)
	}
	return nil
}

// ListEnabled returns all enabled rules ordered by priority then id.
func (s *RuleStore) ListEnabled(ctx context.Context) ([]domain.Rule, error) {
	const query = `
		SELECT rule_id, version, description, triggers, action,
		       priority, enabled, source, hits, wins_after, losses_after,
		       created_at, updated_at
		FROM rules
		WHERE enabled
		ORDER BY priority ASC, rule_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list enabled rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		var r domain.Rule
		var triggersJSON, actionJSON []byte
		if err := rows.Scan(
			&r.ID, &r.Version, &r.Description, &triggersJSON, &actionJSON,
			&r.Priority, &r.Enabled, &r.Source,
			&r.Hits, &r.WinsAfter, &r.LossesAfter,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan rule: %w", err)
		}
		if err := json.Unmarshal(triggersJSON, &r.Triggers); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal triggers for %s: %w", r.ID, err)
		}
		if err := json.Unmarshal(actionJSON, &r.Action); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal action for %s: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list enabled rules rows: %w", err)
	}
	return rules, nil
}

// Disable marks a rule as disabled without removing the row, so its id and
// version survive and a later miner pass cannot resurrect it.
func (s *RuleStore) Disable(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rules SET enabled = FALSE, updated_at = NOW() WHERE rule_id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: disable rule %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: disable rule %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
