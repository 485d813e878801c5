package memory

import (
	"context"
	"sort"
	"sync"

	"exam-sync-service/internal/domain"
)

// ExamStore is an in-memory implementation of app.ExamRepository, keyed by
// normalized exam code.
type ExamStore struct {
	mu    sync.RWMutex
	exams map[string]domain.Exam
}

func NewExamStore() *ExamStore {
	return &ExamStore{exams: make(map[string]domain.Exam)}
}

// NewExamStoreWith seeds the store, useful for tests and demo mode.
func NewExamStoreWith(exams ...domain.Exam) *ExamStore {
	store := NewExamStore()
	for _, exam := range exams {
		exam.Code = domain.NormalizeCode(exam.Code)
		store.exams[exam.Code] = exam
	}
	return store
}

func (s *ExamStore) GetExam(_ context.Context, code string) (domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exam, ok := s.exams[domain.NormalizeCode(code)]
	if !ok {
		return domain.Exam{}, domain.ErrExamNotFound
	}
	return exam, nil
}

func (s *ExamStore) ListExams(_ context.Context) ([]domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Exam, 0, len(s.exams))
	for _, exam := range s.exams {
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *ExamStore) UpsertExam(_ context.Context, exam domain.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exam.Code = domain.NormalizeCode(exam.Code)
	s.exams[exam.Code] = exam
	return nil
}
