package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"exam-sync-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists attempt results keyed by (exam_code, student_id). The
// ON CONFLICT upsert is the only concurrency control between racing
// submissions: last write wins, rows are never observed half-written.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) GetResult(ctx context.Context, examCode, studentID string) (domain.Result, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM results WHERE exam_code=$1 AND student_id=$2`,
		domain.NormalizeCode(examCode), studentID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) ListResults(ctx context.Context) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM results ORDER BY exam_code, student_id`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.Result
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *ResultStore) UpsertResult(ctx context.Context, result domain.Result) error {
	result.ExamCode = domain.NormalizeCode(result.ExamCode)
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (exam_code, student_id, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (exam_code, student_id) DO UPDATE SET data=EXCLUDED.data`,
		result.ExamCode, result.StudentID, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}
