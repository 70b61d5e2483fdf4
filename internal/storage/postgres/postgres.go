package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/beacon/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS fetch_records (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers JSONB NOT NULL,
	body BYTEA,
	text TEXT,
	duration_ms BIGINT NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	_, err = pool.Exec(ctx, schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.FetchRecord) error {
	headersJSON, err := json.Marshal(record.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	query := `
	INSERT INTO fetch_records (
		id, url, status_code, headers, body, text, duration_ms, detected_bot, detection_src, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = b.pool.Exec(ctx, query,
		record.ID,
		record.URL,
		record.StatusCode,
		headersJSON,
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

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.FetchRecord, error) {
	query := `SELECT id, url, status_code, headers, body, text, duration_ms, detected_bot, detection_src, created_at, error FROM fetch_records WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.URL != "" {
		query += fmt.Sprintf(` AND url = $%d`, paramCount)
		args = append(args, filter.URL)
		paramCount++
	}
	if filter.DetectedBot != nil {
		query += fmt.Sprintf(` AND detected_bot = $%d`, paramCount)
		args = append(args, *filter.DetectedBot)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetch records: %w", err)
	}
	defer rows.Close()

	var records []*storage.FetchRecord
	for rows.Next() {
		var r storage.FetchRecord
		var headersJSON []byte
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

		if err := json.Unmarshal(headersJSON, &r.Headers); err != nil {
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

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
