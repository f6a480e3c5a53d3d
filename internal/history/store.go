package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkhouse/copydesk/internal/db"
)

// Store persists run records in the runs table.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a run record. If rec.ID is empty a UUID is generated; if the
// timestamp is zero the current time is used.
func (s *Store) Log(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, manuscript_id, operation, request_id, replayed,
			overall_confidence, stages_run, failed_stage, duration_ms, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.ManuscriptID,
		rec.Operation,
		rec.RequestID,
		rec.Replayed,
		rec.OverallConfidence,
		rec.StagesRun,
		rec.FailedStage,
		rec.DurationMS,
		rec.Timestamp.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}
	return nil
}

// Filter controls which run records Query returns.
type Filter struct {
	ManuscriptID string
	Operation    string
	Since        *time.Time
	FailedOnly   bool
	Limit        int
}

// Query returns run records matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.ManuscriptID != "" {
		clauses = append(clauses, "manuscript_id = ?")
		args = append(args, filter.ManuscriptID)
	}
	if filter.Operation != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.FailedOnly {
		clauses = append(clauses, "failed_stage != 0")
	}

	query := "SELECT id, manuscript_id, operation, request_id, replayed, overall_confidence, stages_run, failed_stage, duration_ms, timestamp FROM runs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying run records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec Record
			ts  string
		)
		err := rows.Scan(
			&rec.ID, &rec.ManuscriptID, &rec.Operation, &rec.RequestID,
			&rec.Replayed, &rec.OverallConfidence, &rec.StagesRun,
			&rec.FailedStage, &rec.DurationMS, &ts,
		)
		if err != nil {
			return nil, err
		}
		if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
			rec.Timestamp = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ForManuscript returns the most recent runs against one manuscript.
func (s *Store) ForManuscript(ctx context.Context, manuscriptID string, limit int) ([]Record, error) {
	return s.Query(ctx, Filter{ManuscriptID: manuscriptID, Limit: limit})
}

// DeleteBefore removes run records older than the given time and returns the
// number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old run records: %w", err)
	}
	return res.RowsAffected()
}
