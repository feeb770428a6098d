package engine

import (
	"fmt"
	"sync"
	"time"
)

// AuditEntry is one human-readable line of the analysis audit trail.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// String renders the entry in the "[HH:MM] message" form observers expect.
func (e AuditEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.UTC().Format("15:04"), e.Message)
}

// AuditLog is a capped ring of audit entries. Write-only for the engine,
// read-only for observers.
type AuditLog struct {
	mu      sync.Mutex
	entries *ringBuffer[AuditEntry]
}

// NewAuditLog creates an AuditLog retaining up to capacity entries.
func NewAuditLog(capacity int) *AuditLog {
	return &AuditLog{entries: newRingBuffer[AuditEntry](capacity)}
}

// Append records a line with the current timestamp.
func (a *AuditLog) Append(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries.Append(AuditEntry{At: time.Now().UTC(), Message: msg})
}

// Appendf records a formatted line.
func (a *AuditLog) Appendf(format string, args ...any) {
	a.Append(fmt.Sprintf(format, args...))
}

// Recent returns up to n of the most recent entries, oldest first.
func (a *AuditLog) Recent(n int) []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries.Snapshot(n)
}

// RecentLines returns Recent(n) rendered as strings.
func (a *AuditLog) RecentLines(n int) []string {
	entries := a.Recent(n)
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}
