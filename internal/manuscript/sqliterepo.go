package manuscript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkhouse/copydesk/internal/db"
)

// SQLiteRepository persists manuscripts as JSON documents in the copydesk
// SQLite database.
type SQLiteRepository struct {
	db *db.DB
}

// NewSQLiteRepository creates a SQLiteRepository on the given database.
func NewSQLiteRepository(database *db.DB) *SQLiteRepository {
	return &SQLiteRepository{db: database}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT doc FROM manuscripts WHERE id = ?`, id)

	var docJSON string
	if err := row.Scan(&docJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, fmt.Errorf("decoding manuscript %q: %w", id, err)
	}
	if doc.LastRequestIDs == nil {
		doc.LastRequestIDs = make(map[string]string)
	}
	return &doc, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, doc *Document) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding manuscript %q: %w", doc.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO manuscripts (id, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		doc.ID, string(docJSON), time.Now().UTC().Format(time.DateTime),
	)
	return err
}

func (r *SQLiteRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM manuscripts ORDER BY id`)
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
