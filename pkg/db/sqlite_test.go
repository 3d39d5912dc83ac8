package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesMigrations(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer database.Close()

	var count int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
	assert.Equal(t, 2, count)

	for _, table := range []string{"wallets", "payouts", "scholarship_points", "scholarship_commissions", "admin_scholarship_inventories"} {
		var name string
		err := database.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
}

func TestWithTxRollsBackOnError(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	now := FormatTime(time.Now())
	boom := errors.New("boom")

	err = WithTx(ctx, database, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO wallets (agent_id, created_at, updated_at) VALUES (?, ?, ?)", "agent-1", now, now); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM wallets").Scan(&count))
	assert.Zero(t, count)
}

func TestTimeRoundTrip(t *testing.T) {
	original := time.Date(2026, time.August, 3, 10, 15, 30, 123, time.FixedZone("WIB", 7*3600))

	parsed, err := ParseTime(FormatTime(original))
	require.NoError(t, err)
	assert.True(t, original.Equal(parsed))

	legacy, err := ParseTime("2026-08-03 10:15:30")
	require.NoError(t, err)
	assert.Equal(t, 2026, legacy.Year())

	missing, err := ParseNullTime(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFormatTimeSortsChronologically(t *testing.T) {
	earlier := time.Date(2026, time.August, 3, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(500 * time.Millisecond)

	assert.Less(t, FormatTime(earlier), FormatTime(later))
}
