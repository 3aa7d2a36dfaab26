package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"analyzeit/internal/modules/stats/domain"
	statsout "analyzeit/internal/modules/stats/port/out"

	_ "modernc.org/sqlite"
)

type SQLiteBucketStore struct {
	db *sql.DB
}

var _ statsout.BucketStore = (*SQLiteBucketStore)(nil)

func NewSQLiteBucketStore(dbPath string) (*SQLiteBucketStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteBucketStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteBucketStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS buckets (
  key TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create buckets table: %w", err)
	}
	return nil
}

func (s *SQLiteBucketStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM buckets WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select bucket: %w", err)
	}
	return []byte(payload), true, nil
}

func (s *SQLiteBucketStore) Put(ctx context.Context, key string, payload []byte) error {
	const stmt = `
INSERT INTO buckets (key, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  payload=excluded.payload,
  updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, key, string(payload), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert bucket: %w", err)
	}
	return nil
}

func (s *SQLiteBucketStore) List(ctx context.Context, prefix string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, payload FROM buckets WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, domain.Record{Key: key, Payload: []byte(payload)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return out, nil
}

func (s *SQLiteBucketStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM buckets WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}
	return nil
}

func (s *SQLiteBucketStore) DeletePrefix(ctx context.Context, prefix string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM buckets WHERE substr(key, 1, length(?)) = ?`, prefix, prefix); err != nil {
		return fmt.Errorf("delete buckets: %w", err)
	}
	return nil
}

func (s *SQLiteBucketStore) Close() error {
	return s.db.Close()
}
