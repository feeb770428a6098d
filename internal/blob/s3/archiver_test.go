package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtop/tradebrain/internal/domain"
)

type fakeBlobWriter struct {
	path        string
	contentType string
	data        []byte
	err         error
}

func (w *fakeBlobWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.data = b
	return nil
}

type fakeArchiveStore struct {
	trades []domain.TradeRecord
	cutoff time.Time
	limit  int
	err    error
}

func (s *fakeArchiveStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.TradeRecord, error) {
	s.cutoff = cutoff
	s.limit = limit
	return s.trades, s.err
}

type fakeAuditLog struct {
	messages []string
}

func (a *fakeAuditLog) Log(_ context.Context, msg string) error {
	a.messages = append(a.messages, msg)
	return nil
}

func (a *fakeAuditLog) ListRecent(context.Context, int) ([]string, error) {
	return a.messages, nil
}

func TestArchiveTradesExportsJSONL(t *testing.T) {
	store := &fakeArchiveStore{trades: []domain.TradeRecord{
		{Asset: "BTCUSDC", PnL: 1.5, Win: true},
		{Asset: "ETHUSDC", PnL: -0.5},
	}}
	writer := &fakeBlobWriter{}
	audit := &fakeAuditLog{}
	arch := NewArchiver(writer, store, audit)

	cutoff := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	n, err := arch.ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, "archive/trades/2025-01.jsonl", writer.path)
	assert.Equal(t, "application/x-ndjson", writer.contentType)
	assert.Equal(t, cutoff, store.cutoff)
	assert.Equal(t, exportBatchLimit, store.limit)

	// One JSON document per line.
	scanner := bufio.NewScanner(bytes.NewReader(writer.data))
	var lines int
	for scanner.Scan() {
		var tr domain.TradeRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &tr))
		lines++
	}
	assert.Equal(t, 2, lines)

	require.Len(t, audit.messages, 1)
	assert.Contains(t, audit.messages[0], "archived 2 trades")
}

func TestArchiveTradesNothingToExport(t *testing.T) {
	writer := &fakeBlobWriter{}
	arch := NewArchiver(writer, &fakeArchiveStore{}, nil)

	n, err := arch.ArchiveTrades(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.path, "no upload for an empty batch")
}

func TestArchiveTradesQueryFailure(t *testing.T) {
	store := &fakeArchiveStore{err: errors.New("connection refused")}
	arch := NewArchiver(&fakeBlobWriter{}, store, nil)

	_, err := arch.ArchiveTrades(context.Background(), time.Now().UTC())
	assert.Error(t, err)
}

func TestArchiveTradesUploadFailure(t *testing.T) {
	store := &fakeArchiveStore{trades: []domain.TradeRecord{{Asset: "BTCUSDC"}}}
	writer := &fakeBlobWriter{err: errors.New("access denied")}
	arch := NewArchiver(writer, store, nil)

	_, err := arch.ArchiveTrades(context.Background(), time.Now().UTC())
	assert.Error(t, err)
}
