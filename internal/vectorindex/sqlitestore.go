package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkhouse/copydesk/internal/db"
)

// SQLiteStore persists corpora in the copydesk SQLite database. Entries are
// stored as a JSON column; corpora are read whole, matching the index's
// full-replace upsert model.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a SQLiteStore on the given database.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

func (s *SQLiteStore) Get(ctx context.Context, corpusID string) (*Corpus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT title, entries FROM corpora WHERE id = ?`, corpusID)

	var title, entriesJSON string
	if err := row.Scan(&title, &entriesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(entriesJSON), &entries); err != nil {
		return nil, fmt.Errorf("decoding corpus %q entries: %w", corpusID, err)
	}

	return &Corpus{Title: title, Entries: entries}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, corpusID string, corpus *Corpus) error {
	entriesJSON, err := json.Marshal(corpus.Entries)
	if err != nil {
		return fmt.Errorf("encoding corpus %q entries: %w", corpusID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO corpora (id, title, entries, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			entries = excluded.entries,
			updated_at = excluded.updated_at`,
		corpusID, corpus.Title, string(entriesJSON), time.Now().UTC().Format(time.DateTime),
	)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM corpora ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
