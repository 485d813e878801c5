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

// ExamStore persists exams as JSONB rows keyed by normalized code.
type ExamStore struct {
	pool *pgxpool.Pool
}

func NewExamStore(pool *pgxpool.Pool) *ExamStore {
	return &ExamStore{pool: pool}
}

func (s *ExamStore) GetExam(ctx context.Context, code string) (domain.Exam, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM exams WHERE code=$1`,
		domain.NormalizeCode(code),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	if err != nil {
		return domain.Exam{}, fmt.Errorf("load exam: %w", err)
	}
	var exam domain.Exam
	if err := json.Unmarshal(raw, &exam); err != nil {
		return domain.Exam{}, fmt.Errorf("unmarshal exam: %w", err)
	}
	return exam, nil
}

func (s *ExamStore) ListExams(ctx context.Context) ([]domain.Exam, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM exams ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []domain.Exam
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		var exam domain.Exam
		if err := json.Unmarshal(raw, &exam); err != nil {
			return nil, fmt.Errorf("unmarshal exam: %w", err)
		}
		exams = append(exams, exam)
	}
	return exams, rows.Err()
}

// UpsertExam is an atomic per-key create-or-replace.
func (s *ExamStore) UpsertExam(ctx context.Context, exam domain.Exam) error {
	exam.Code = domain.NormalizeCode(exam.Code)
	data, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO exams (code, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (code) DO UPDATE SET data=EXCLUDED.data`,
		exam.Code, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert exam: %w", err)
	}
	return nil
}
