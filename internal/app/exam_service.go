package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exam-sync-service/internal/domain"
	"exam-sync-service/internal/grading"
)

// ExamRepository abstracts how exams are stored (in-memory, Postgres, with or
// without a Redis cache in front).
type ExamRepository interface {
	GetExam(ctx context.Context, code string) (domain.Exam, error)
	ListExams(ctx context.Context) ([]domain.Exam, error)
	UpsertExam(ctx context.Context, exam domain.Exam) error
}

// ResultRepository stores attempt results keyed by (examCode, studentId).
// Upsert must be atomic per key; it is the only concurrency-control primitive
// between racing submissions.
type ResultRepository interface {
	GetResult(ctx context.Context, examCode, studentID string) (domain.Result, error)
	ListResults(ctx context.Context) ([]domain.Result, error)
	UpsertResult(ctx context.Context, result domain.Result) error
}

// ExamService contains the server-authoritative exam use cases. It is the
// trust boundary: nothing score-related is ever accepted from a client.
type ExamService struct {
	exams   ExamRepository
	results ResultRepository
	now     func() time.Time

	mu          sync.Mutex
	subscribers map[chan domain.Result]struct{}
}

func NewExamService(exams ExamRepository, results ResultRepository) *ExamService {
	return &ExamService{
		exams:       exams,
		results:     results,
		now:         time.Now,
		subscribers: make(map[chan domain.Result]struct{}),
	}
}

// NewExamServiceWithClock is test-only for deterministic timestamps.
func NewExamServiceWithClock(exams ExamRepository, results ResultRepository, now func() time.Time) *ExamService {
	s := NewExamService(exams, results)
	s.now = now
	return s
}

// FetchExamForStudent returns the sanitized projection of a published exam.
func (s *ExamService) FetchExamForStudent(ctx context.Context, code string) (domain.Exam, error) {
	exam, err := s.exams.GetExam(ctx, domain.NormalizeCode(code))
	if err != nil {
		return domain.Exam{}, err
	}
	if exam.Config.PublishState != domain.PublishStatePublished {
		return domain.Exam{}, domain.ErrExamNotPublished
	}
	return domain.Sanitize(exam), nil
}

// FetchExam returns the full exam, answer key included. Teacher-facing.
func (s *ExamService) FetchExam(ctx context.Context, code string) (domain.Exam, error) {
	return s.exams.GetExam(ctx, domain.NormalizeCode(code))
}

// ListExams returns every stored exam. Teacher-facing.
func (s *ExamService) ListExams(ctx context.Context) ([]domain.Exam, error) {
	return s.exams.ListExams(ctx)
}

// UpsertExam creates or replaces an exam by its normalized code.
func (s *ExamService) UpsertExam(ctx context.Context, exam domain.Exam) error {
	exam.Code = domain.NormalizeCode(exam.Code)
	if exam.Code == "" {
		return fmt.Errorf("exam code is required")
	}
	if exam.Config.PublishState == "" {
		exam.Config.PublishState = domain.PublishStateDraft
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = s.now()
	}
	return s.exams.UpsertExam(ctx, exam)
}

// SubmitResult persists a terminal attempt sync. The grade is always
// recomputed from the canonical exam; resubmission under the same key
// overwrites the previous row (last write wins).
func (s *ExamService) SubmitResult(ctx context.Context, sub domain.Submission) (domain.Result, error) {
	code := domain.NormalizeCode(sub.ExamCode)
	exam, err := s.exams.GetExam(ctx, code)
	if err != nil {
		return domain.Result{}, err
	}

	status := sub.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	if !status.Valid() {
		return domain.Result{}, fmt.Errorf("%w: status %q", domain.ErrInvalidAction, sub.Status)
	}

	answers := sub.Answers
	if answers == nil {
		answers = map[string]string{}
	}

	summary := grading.Grade(exam, answers)
	result := domain.Result{
		ExamCode:       code,
		StudentID:      sub.Student.ID(),
		Student:        sub.Student,
		Answers:        answers,
		Status:         status,
		StatusCode:     status.Code(),
		Score:          summary.Score,
		CorrectAnswers: summary.CorrectCount,
		TotalQuestions: summary.TotalQuestions,
		ActivityLog:    sub.ActivityLog,
		Timestamp:      s.now(),
	}

	if err := s.results.UpsertResult(ctx, result); err != nil {
		return domain.Result{}, err
	}
	s.broadcast(result)
	return result, nil
}

// ApplyTeacherAction mutates status, status code, log and timestamp of an
// existing result. Answers and score fields are never touched; the log append
// is the only additive write in the system.
func (s *ExamService) ApplyTeacherAction(ctx context.Context, examCode, studentID string, action domain.TeacherAction, teacherID string) (domain.Result, error) {
	result, err := s.results.GetResult(ctx, domain.NormalizeCode(examCode), studentID)
	if err != nil {
		return domain.Result{}, err
	}

	now := s.now()
	switch action {
	case domain.ActionUnlock:
		result.Status = domain.StatusInProgress
		result.ActivityLog = append(result.ActivityLog, fmt.Sprintf("[%s] Teacher %s unlocked the attempt", now.Format(time.RFC3339), teacherID))
	case domain.ActionStop:
		result.Status = domain.StatusForceSubmitted
		result.ActivityLog = append(result.ActivityLog, fmt.Sprintf("[%s] Teacher %s stopped the attempt", now.Format(time.RFC3339), teacherID))
	default:
		return domain.Result{}, domain.ErrInvalidAction
	}
	result.StatusCode = result.Status.Code()
	result.Timestamp = now

	if err := s.results.UpsertResult(ctx, result); err != nil {
		return domain.Result{}, err
	}
	s.broadcast(result)
	return result, nil
}

// ListResults returns every attempt row for dashboard consumption.
func (s *ExamService) ListResults(ctx context.Context) ([]domain.Result, error) {
	return s.results.ListResults(ctx)
}

// SubscribeResults returns a channel receiving every authoritative result
// write. The caller must invoke the returned cancel function to avoid leaks.
func (s *ExamService) SubscribeResults() (<-chan domain.Result, func()) {
	ch := make(chan domain.Result, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *ExamService) broadcast(result domain.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- result:
		default:
			// Drop the oldest update rather than block the write path on a
			// slow dashboard.
			select {
			case <-ch:
			default:
			}
			ch <- result
		}
	}
}
