package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, profile Profile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: profile,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNewOpensAndPings(t *testing.T) {
	db := newTestDB(t, ProfileLedger)

	require.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, "test", db.Name())
}

func TestWithTransactionCommits(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	_, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO items (name) VALUES ('a')")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	_, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO items (name) VALUES ('a')"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWALCheckpointAndStats(t *testing.T) {
	db := newTestDB(t, ProfileLedger)

	_, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	require.NoError(t, db.WALCheckpoint("TRUNCATE"))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.SizeBytes, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
