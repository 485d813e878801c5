package memory

import (
	"context"
	"sort"
	"sync"

	"exam-sync-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultRepository. The
// whole-row swap under the lock gives the same atomic per-key upsert the
// Postgres ON CONFLICT path provides.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.Result)}
}

func (s *ResultStore) GetResult(_ context.Context, examCode, studentID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[key(examCode, studentID)]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return result, nil
}

func (s *ResultStore) ListResults(_ context.Context) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0, len(s.results))
	for _, result := range s.results {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExamCode != out[j].ExamCode {
			return out[i].ExamCode < out[j].ExamCode
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

func (s *ResultStore) UpsertResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ExamCode = domain.NormalizeCode(result.ExamCode)
	s.results[key(result.ExamCode, result.StudentID)] = result
	return nil
}

func key(examCode, studentID string) string {
	return domain.NormalizeCode(examCode) + "/" + studentID
}
