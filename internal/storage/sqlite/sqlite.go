package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/beacon/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS fetch_records (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers TEXT NOT NULL,
	body BLOB,
	text TEXT,
	duration_ms INTEGER NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT,
	created_at DATETIME NOT NULL,
	error TEXT
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.FetchRecord) error {
	headersJSON, err := json.Marshal(record.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	query := `
	INSERT INTO fetch_records (
		id, url, status_code, headers, body, text, duration_ms, detected_bot, detection_src, created_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		record.ID,
		record.URL,
		record.StatusCode,
		string(headersJSON),
		record.Body,
		record.Text,
		record.Duration.Milliseconds(),
		record.DetectedBot,
		record.DetectionSrc,
		record.CreatedAt,
		record.Error,
	)

	if err != nil {
		return fmt.Errorf("insert fetch record: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.FetchRecord, error) {
	query := `SELECT id, url, status_code, headers, body, text, duration_ms, detected_bot, detection_src, created_at, error FROM fetch_records WHERE 1=1`
	args := []any{}

	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	if filter.DetectedBot != nil {
		query += ` AND detected_bot = ?`
		args = append(args, *filter.DetectedBot)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetch records: %w", err)
	}
	defer rows.Close()

	var records []*storage.FetchRecord
	for rows.Next() {
		var r storage.FetchRecord
		var headersJSON string
		var durationMs int64
		var createdAt time.Time

		if err := rows.Scan(
			&r.ID,
			&r.URL,
			&r.StatusCode,
			&headersJSON,
			&r.Body,
			&r.Text,
			&durationMs,
			&r.DetectedBot,
			&r.DetectionSrc,
			&createdAt,
			&r.Error,
		); err != nil {
			return nil, fmt.Errorf("scan fetch record: %w", err)
		}

		if err := json.Unmarshal([]byte(headersJSON), &r.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = createdAt
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
