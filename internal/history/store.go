// Package history persists successful transcripts in a local SQLite
// database for later browsing.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/andrepadez/ostt/internal/domain"
)

// Store is the append-only transcript record store.
type Store struct {
	db *sql.DB
}

// Open initializes the history database at path, creating the schema on
// first use.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS transcriptions (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    model_id TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_created ON transcriptions(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Append records one successful transcript. Missing id and timestamp are
// filled in.
func (s *Store) Append(ctx context.Context, rec domain.TranscriptRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcriptions (id, text, model_id, duration_ms, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Text, rec.ModelID, rec.Duration.Milliseconds(), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]domain.TranscriptRecord, error) {
	query := `SELECT id, text, model_id, duration_ms, created_at FROM transcriptions ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var records []domain.TranscriptRecord
	for rows.Next() {
		var rec domain.TranscriptRecord
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.ModelID, &durationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
