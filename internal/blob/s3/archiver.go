package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
)

// TradeArchiveStore provides the read access the archiver needs. The
// Postgres trade store satisfies it implicitly.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.TradeRecord, error)
}

// exportBatchLimit caps how many trades a single export pulls from the
// mirror. Older rows are picked up by the next cycle.
const exportBatchLimit = 20000

// ArchiveImpl exports aged trade records from the durable mirror to cold
// storage as JSONL, one object per year-month of the cutoff.
//
// Deletion of the exported rows from the mirror is intentionally NOT
// performed here; the mirror stays the system of record and exports are
// additive snapshots.
type ArchiveImpl struct {
	writer domain.BlobWriter
	trades TradeArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		trades: trades,
		audit:  audit,
	}
}

// ArchiveTrades queries trades closed strictly before the cutoff,
// serializes them to JSONL, and uploads the file to
// archive/trades/YYYY-MM.jsonl. Returns the number of exported records.
func (a *ArchiveImpl) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before, exportBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	count := int64(len(trades))

	if a.audit != nil {
		msg := fmt.Sprintf("archived %d trades to %s (cutoff %s)", count, path, before.Format(time.RFC3339))
		if err := a.audit.Log(ctx, msg); err != nil {
			return count, fmt.Errorf("s3blob: archive trades audit log: %w", err)
		}
	}

	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
