package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/fedquery/pkg/commandlog"
)

func newTestEvent() commandlog.Event {
	return commandlog.Event{
		ID:           "evt-1",
		Timestamp:    time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		RequestID:    "req-1",
		NodeID:       2,
		ExecutionID:  1,
		Connector:    "pg",
		ConnectionID: "conn-1",
		UserID:       "alice",
		Status:       commandlog.StatusEnd,
		SQL:          "SELECT id FROM orders",
		RowCount:     12,
		DurationMS:   40,
	}
}

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, defaultRetentionDays, New(db, Config{}).retentionDays)
	assert.Equal(t, 7, New(db, Config{RetentionDays: 7}).retentionDays)
}

func TestLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := New(db, Config{})
	event := newTestEvent()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO command_log")).WithArgs(
		event.ID, event.Timestamp, event.RequestID, event.NodeID, event.ExecutionID,
		event.Connector, event.ConnectionID, event.UserID, "END", event.SQL,
		event.RowCount, 0, event.DurationMS, "", "2026-03-15",
	).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Log(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO command_log").WillReturnError(errors.New("disk full"))

	err = New(db, Config{}).Log(context.Background(), newTestEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting command log")
}

func TestQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	event := newTestEvent()
	rows := sqlmock.NewRows(eventColumns).AddRow(
		event.ID, event.Timestamp, event.RequestID, event.NodeID, event.ExecutionID,
		event.Connector, event.ConnectionID, event.UserID, "END", event.SQL,
		event.RowCount, 0, event.DurationMS, "",
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM command_log WHERE connector = $1 AND status = $2 ORDER BY timestamp DESC LIMIT 5")).
		WithArgs("pg", "END").
		WillReturnRows(rows)

	events, err := New(db, Config{}).Query(context.Background(), commandlog.QueryFilter{
		Connector: "pg",
		Status:    commandlog.StatusEnd,
		Limit:     5,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event, events[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("gone"))

	_, err = New(db, Config{}).Query(context.Background(), commandlog.QueryFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying command log")
}

func TestCleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM command_log WHERE timestamp < $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, New(db, Config{}).Cleanup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_WithoutCleanupRoutine(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.NoError(t, New(db, Config{}).Close())
}

func TestStartCleanupRoutine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mock.MatchExpectationsInOrder(false)
	for range 10 {
		mock.ExpectExec("DELETE FROM command_log").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	store := New(db, Config{})
	store.StartCleanupRoutine(5 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, store.Close())
}
