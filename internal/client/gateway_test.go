package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"exam-sync-service/internal/app"
	"exam-sync-service/internal/client"
	"exam-sync-service/internal/domain"
	"exam-sync-service/internal/infra/memory"
	"exam-sync-service/internal/session"
	transport "exam-sync-service/internal/transport/http"
)

func TestFetchExamIsSanitized(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()
	gateway := client.New(server.URL)

	exam, err := gateway.FetchExam(context.Background(), "ab12cd")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if exam.Code != "AB12CD" || len(exam.Questions) != 2 {
		t.Fatalf("unexpected exam %+v", exam)
	}
	for _, q := range exam.Questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("client received answer key on %s", q.ID)
		}
	}
}

func TestFetchExamErrors(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()
	gateway := client.New(server.URL)

	if _, err := gateway.FetchExam(context.Background(), "ZZ99ZZ"); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
	if _, err := gateway.FetchExam(context.Background(), "DRAFT1"); !errors.Is(err, domain.ErrExamNotPublished) {
		t.Fatalf("expected ErrExamNotPublished, got %v", err)
	}
}

func TestSubmitResultOffline(t *testing.T) {
	server, _ := newTestServer(t)
	serverURL := server.URL
	server.Close() // simulate the client being offline

	gateway := client.New(serverURL)
	_, err := gateway.SubmitResult(context.Background(), domain.Submission{ExamCode: "AB12CD"})
	if err == nil {
		t.Fatalf("expected network failure")
	}
}

// TestAttemptRoundTrip drives a full attempt through the real HTTP stack:
// fetch sanitized exam, answer locally, submit, get the server-graded result.
func TestAttemptRoundTrip(t *testing.T) {
	ctx := context.Background()
	server, service := newTestServer(t)
	defer server.Close()
	gateway := client.New(server.URL)

	exam, err := gateway.FetchExam(ctx, "AB12CD")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	student := domain.Student{FullName: "Siti Rahma", Class: "9B", AbsentNumber: "12"}
	controller, err := session.New(ctx, session.Config{
		Exam:     exam,
		Student:  student,
		Gateway:  gateway,
		Progress: session.NewMemoryProgressStore(),
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := controller.SetAnswer("q1", "Paris"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := controller.SetAnswer("q2", "b, a"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	result, err := controller.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 100 || result.CorrectAnswers != 2 {
		t.Fatalf("expected full score from server regrade, got %+v", result)
	}
	if result.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}

	stored, err := service.ListResults(ctx)
	if err != nil || len(stored) != 1 {
		t.Fatalf("expected one stored result, got %d (%v)", len(stored), err)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.ExamService) {
	t.Helper()
	service := app.NewExamService(memory.NewExamStoreWith(
		domain.Exam{
			Code: "AB12CD",
			Questions: []domain.Question{
				{ID: "q1", Type: domain.MultipleChoice, Options: []string{"Paris", "London"}, CorrectAnswer: "Paris"},
				{ID: "q2", Type: domain.ComplexMultipleChoice, Options: []string{"a", "b", "c"}, CorrectAnswer: "a,b"},
			},
			Config: domain.ExamConfig{TimeLimitMinutes: 30, AutoSaveIntervalSeconds: 60, PublishState: domain.PublishStatePublished},
		},
		domain.Exam{Code: "DRAFT1", Config: domain.ExamConfig{PublishState: domain.PublishStateDraft}},
	), memory.NewResultStore())
	handler := transport.NewHandler(service, nil, nil, nil)
	return httptest.NewServer(handler.Router()), service
}
