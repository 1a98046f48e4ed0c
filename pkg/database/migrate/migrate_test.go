//go:build integration

package migrate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("commandlog"),
		postgres.WithUsername("fedquery"),
		postgres.WithPassword("fedquery"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func hasColumn(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func hasIndex(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT FROM pg_indexes WHERE indexname = $1)`, name).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestCommandLogSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := startPostgres(t)

	version, dirty, err := Version(db)
	require.NoError(t, err)
	assert.Zero(t, version, "fresh database reports version 0")
	assert.False(t, dirty)

	require.NoError(t, Steps(db, 1))
	assert.True(t, hasColumn(t, db, "command_log", "request_id"))
	assert.True(t, hasColumn(t, db, "command_log", "sql"))
	assert.False(t, hasColumn(t, db, "command_log", "warning_count"))
	assert.True(t, hasIndex(t, db, "idx_command_log_request_id"))

	require.NoError(t, Run(db))
	version, dirty, err = Version(db)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
	assert.True(t, hasColumn(t, db, "command_log", "warning_count"))
	assert.True(t, hasIndex(t, db, "idx_command_log_status"))

	// rows written before the warnings column existed read back as zero
	_, err = db.Exec(`
		INSERT INTO command_log (id, timestamp, request_id, connector, status, created_date)
		VALUES ('e1', now(), 'r1', 'pg', 'END', current_date)`)
	require.NoError(t, err)
	var warnings int
	require.NoError(t, db.QueryRow(`SELECT warning_count FROM command_log WHERE id = 'e1'`).Scan(&warnings))
	assert.Zero(t, warnings)

	// a second run changes nothing
	require.NoError(t, Run(db))

	require.NoError(t, Steps(db, -1))
	assert.False(t, hasColumn(t, db, "command_log", "warning_count"))
	assert.True(t, hasColumn(t, db, "command_log", "request_id"))

	require.NoError(t, Down(db))
	assert.False(t, hasColumn(t, db, "command_log", "request_id"))
	version, _, err = Version(db)
	require.NoError(t, err)
	assert.Zero(t, version)
}
