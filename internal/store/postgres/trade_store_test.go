package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtop/tradebrain/internal/domain"
)

// fakeRows feeds canned row values through the pgx.Rows interface so the
// scan path can be exercised without a database.
type fakeRows struct {
	rows [][]any
	idx  int
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return nil }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d dests for %d values", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *float64:
			*p = row[i].(float64)
		case *bool:
			*p = row[i].(bool)
		case *int:
			*p = row[i].(int)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

func TestScanTradeRows(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := &fakeRows{rows: [][]any{{
		"BTCUSDC", -1.5, false, domain.RegimeChoppy, 21,
		0.42, 0.55, "FLAT",
		90.0, "stop", 2, 1700000000.5,
		0.0001, 1200000.0, 50000.0, 48000.0, created,
	}}}

	trades, err := scanTradeRows(rows)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, "BTCUSDC", tr.Asset)
	assert.Equal(t, domain.RegimeChoppy, tr.Regime)
	assert.Equal(t, domain.ModeFlat, tr.Mode)
	assert.Equal(t, 21, tr.HourUTC)
	assert.Equal(t, 1700000000.5, tr.EntryTS)
	assert.Equal(t, created, tr.CreatedAt)
}

func TestTradeInsertArgsMatchColumns(t *testing.T) {
	tr := domain.TradeRecord{
		Asset:   "ETHUSDC",
		PnL:     2.0,
		Win:     true,
		Regime:  domain.RegimeTrending,
		Mode:    domain.ModeNormal,
		EntryTS: 1700000001.25,
	}

	args := tradeInsertArgs(tr)
	require.Len(t, args, 17)
	assert.Equal(t, "ETHUSDC", args[0])
	assert.Equal(t, domain.RegimeTrending, args[3])
	assert.Equal(t, "NORMAL", args[7])
	assert.Equal(t, 1700000001.25, args[11])

	// Zero CreatedAt is stamped at insert time.
	stamped, ok := args[16].(time.Time)
	require.True(t, ok)
	assert.False(t, stamped.IsZero())
}
