package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/overtop/tradebrain/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `asset, pnl, win, regime, hour_utc, strength, seed, mode,
	duration_sec, reason, consec_losses, entry_ts,
	funding_rate, open_interest, bid_wall, ask_wall, created_at`

const tradeInsertQuery = `
	INSERT INTO trades (
		asset, pnl, win, regime, hour_utc, strength, seed, mode,
		duration_sec, reason, consec_losses, entry_ts,
		funding_rate, open_interest, bid_wall, ask_wall, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		$9, $10, $11, $12,
		$13, $14, $15, $16, $17
	)`

func tradeInsertArgs(t domain.TradeRecord) []any {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return []any{
		t.Asset, t.PnL, t.Win, t.Regime, t.HourUTC, t.Strength, t.Seed, string(t.Mode),
		t.Duration, t.Reason, t.ConsecLosses, t.EntryTS,
		t.FundingRate, t.OpenInterest, t.BidWall, t.AskWall, createdAt,
	}
}

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var mode string
		if err := rows.Scan(
			&t.Asset, &t.PnL, &t.Win, &t.Regime, &t.HourUTC,
			&t.Strength, &t.Seed, &mode,
			&t.Duration, &t.Reason, &t.ConsecLosses, &t.EntryTS,
			&t.FundingRate, &t.OpenInterest, &t.BidWall, &t.AskWall, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.Mode = domain.Mode(mode)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert persists a single closed trade.
func (s *TradeStore) Insert(ctx context.Context, trade domain.TradeRecord) error {
	if _, err := s.pool.Exec(ctx, tradeInsertQuery, tradeInsertArgs(trade)...); err != nil {
		return fmt.Errorf("postgres: insert trade: %w", err)
	}
	return nil
}

// InsertBatch inserts multiple trades in one round trip using pgx Batch.
// Used when flushing the retry backlog after an outage.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(tradeInsertQuery, tradeInsertArgs(t)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the newest trades in chronological order (oldest
// first), so callers can replay them straight into the in-memory log.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `SELECT ` + tradeSelectCols + ` FROM (
			SELECT ` + tradeSelectCols + ` FROM trades ORDER BY created_at DESC LIMIT $1
		) recent ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns trades closed strictly before the cutoff, oldest first.
func (s *TradeStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE created_at < $1 ORDER BY created_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades before: %w", err)
	}
	return trades, nil
}

// Count returns the total number of mirrored trades.
func (s *TradeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return n, nil
}
