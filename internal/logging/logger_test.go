package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fadedpez/agentledger/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, WARN)

	logger.Debug("debug %d", 1)
	logger.Info("info %d", 2)
	logger.Warn("warn %d", 3)
	logger.Error("error %d", 4)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "warn 3", entries[0]["message"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, DEBUG).With(map[string]interface{}{"agent_id": "agent-1"})

	logger.Info("credited")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "agent-1", entries[0]["agent_id"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, DEBUG)

	logger.LogError(types.WrapError(types.ErrDatabaseError, "failed to save wallet", errors.New("locked")))
	logger.LogError(errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "DATABASE_ERROR", entries[0]["code"])
	assert.Equal(t, "locked", entries[0]["cause"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARN"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}
