// Package postgres stores source command events in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/fedquery/pkg/commandlog"
)

const (
	defaultRetentionDays = 30
	defaultQueryCapacity = 100
	maxQueryCapacity     = 10000
	commandLogTable      = "command_log"
)

var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var eventColumns = []string{
	"id", "timestamp", "request_id", "node_id", "execution_id",
	"connector", "connection_id", "user_id", "status", "sql",
	"row_count", "warning_count", "duration_ms", "error_message",
}

// Store implements commandlog.Logger using PostgreSQL.
type Store struct {
	db            *sql.DB
	retentionDays int
	cancel        context.CancelFunc
	done          chan struct{}
}

// Config configures the store.
type Config struct {
	RetentionDays int
}

// New creates a store. The command_log table must exist.
func New(db *sql.DB, cfg Config) *Store {
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	return &Store{db: db, retentionDays: cfg.RetentionDays}
}

// Log inserts an event.
func (s *Store) Log(ctx context.Context, event commandlog.Event) error {
	query, args, err := psq.Insert(commandLogTable).
		Columns(append(eventColumns, "created_date")...).
		Values(
			event.ID,
			event.Timestamp,
			event.RequestID,
			event.NodeID,
			event.ExecutionID,
			event.Connector,
			event.ConnectionID,
			event.UserID,
			string(event.Status),
			event.SQL,
			event.RowCount,
			event.WarningCount,
			event.DurationMS,
			event.ErrorMessage,
			event.Timestamp.Format("2006-01-02"),
		).ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting command log: %w", err)
	}
	return nil
}

func applyFilter(qb sq.SelectBuilder, filter commandlog.QueryFilter) sq.SelectBuilder {
	if filter.StartTime != nil {
		qb = qb.Where(sq.GtOrEq{"timestamp": *filter.StartTime})
	}
	if filter.EndTime != nil {
		qb = qb.Where(sq.LtOrEq{"timestamp": *filter.EndTime})
	}
	if filter.RequestID != "" {
		qb = qb.Where(sq.Eq{"request_id": filter.RequestID})
	}
	if filter.Connector != "" {
		qb = qb.Where(sq.Eq{"connector": filter.Connector})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"status": string(filter.Status)})
	}
	return qb
}

// Query retrieves events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter commandlog.QueryFilter) ([]commandlog.Event, error) {
	qb := applyFilter(psq.Select(eventColumns...).From(commandLogTable), filter).
		OrderBy("timestamp DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building command log query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	allocCap := defaultQueryCapacity
	if filter.Limit > 0 && filter.Limit <= maxQueryCapacity {
		allocCap = filter.Limit
	}
	events := make([]commandlog.Event, 0, allocCap)
	for rows.Next() {
		var e commandlog.Event
		var status string
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.RequestID, &e.NodeID, &e.ExecutionID,
			&e.Connector, &e.ConnectionID, &e.UserID, &status, &e.SQL,
			&e.RowCount, &e.WarningCount, &e.DurationMS, &e.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scanning command log row: %w", err)
		}
		e.Status = commandlog.Status(status)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log rows: %w", err)
	}
	return events, nil
}

// Cleanup removes events older than the retention period.
func (s *Store) Cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	query, args, err := psq.Delete(commandLogTable).Where(sq.Lt{"timestamp": cutoff}).ToSql()
	if err != nil {
		return fmt.Errorf("building cleanup: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cleaning up command log: %w", err)
	}
	return nil
}

// StartCleanupRoutine deletes expired events every interval until Close.
func (s *Store) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Cleanup(ctx)
			}
		}
	}()
}

// Close stops the cleanup routine if it was started.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

var _ commandlog.Logger = (*Store)(nil)
