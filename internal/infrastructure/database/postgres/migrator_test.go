package postgres

import (
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsWellFormed(t *testing.T) {
	src, err := iofs.New(migrationFS, "migrations")
	require.NoError(t, err, "embedded migration set must parse")
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	// Every version must carry both directions.
	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	up.Close()
	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	down.Close()
}

func TestInitialMigrationCreatesCacheTable(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/0001_create_query_cache.up.sql")
	require.NoError(t, err)

	sql := string(raw)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS query_cache")
	for _, col := range []string{"query_hash", "query_text", "answer", "citations",
		"record_ids", "created_at", "expires_at", "last_accessed_at", "access_count"} {
		assert.True(t, strings.Contains(sql, col), "missing column %s", col)
	}
}
