package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogCapped(t *testing.T) {
	audit := NewAuditLog(3)
	for i := 0; i < 5; i++ {
		audit.Appendf("line %d", i)
	}

	entries := audit.Recent(0)
	require.Len(t, entries, 3)
	assert.Equal(t, "line 2", entries[0].Message)
	assert.Equal(t, "line 4", entries[2].Message)
}

func TestAuditLogLineFormat(t *testing.T) {
	audit := NewAuditLog(5)
	audit.Append("hello")

	lines := audit.RecentLines(1)
	require.Len(t, lines, 1)
	assert.Regexp(t, `^\[\d{2}:\d{2}\] hello$`, lines[0])
}
