// Package sqlite provides the durable client-local progress store. An
// attempt's answers and activity log survive process restarts, crashes and
// lockouts without any connectivity.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"exam-sync-service/internal/domain"

	_ "modernc.org/sqlite"
)

type ProgressStore struct {
	db *sql.DB
}

func NewProgressStore(dbPath string) (*ProgressStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open progress database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping progress database: %w", err)
	}
	s := &ProgressStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate progress database: %w", err)
	}
	return s, nil
}

func (s *ProgressStore) Close() error {
	return s.db.Close()
}

func (s *ProgressStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempt_progress (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *ProgressStore) Load(ctx context.Context, examCode, studentID string) (domain.ProgressSnapshot, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM attempt_progress WHERE key = ?`,
		domain.ProgressKey(examCode, studentID),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProgressSnapshot{}, false, nil
	}
	if err != nil {
		return domain.ProgressSnapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.ProgressSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return domain.ProgressSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *ProgressStore) Save(ctx context.Context, examCode, studentID string, snap domain.ProgressSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempt_progress (key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		domain.ProgressKey(examCode, studentID), string(data),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *ProgressStore) Delete(ctx context.Context, examCode, studentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM attempt_progress WHERE key = ?`,
		domain.ProgressKey(examCode, studentID),
	)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
