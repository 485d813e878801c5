package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"exam-sync-service/internal/app"
	"exam-sync-service/internal/domain"
	"exam-sync-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Handler exposes the sync gateway over HTTP. Student-facing routes are open;
// teacher-facing routes go through the optional bearer-token guard.
type Handler struct {
	service  *app.ExamService
	validate *validator.Validate
	log      *logrus.Entry
	metrics  *metrics.Metrics
	auth     *TeacherAuth
}

func NewHandler(service *app.ExamService, log *logrus.Entry, m *metrics.Metrics, auth *TeacherAuth) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		log:      log,
		metrics:  m,
		auth:     auth,
	}
}

// Router builds the route table.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	if h.metrics != nil {
		r.Use(MetricsMiddleware(h.metrics))
	}
	if h.log != nil {
		r.Use(RequestLogger(h.log))
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/exams", h.getExams)
	r.Post("/exams", h.guard(h.upsertExam))
	r.Get("/results", h.guard(h.listResults))
	r.Post("/submit-exam", h.submitExam)
	r.Post("/teacher-action", h.guard(h.teacherAction))

	ws := NewResultsFeed(h.service, h.log)
	r.Get("/ws/results", h.guard(ws.ServeResults))
	return r
}

func (h *Handler) guard(next http.HandlerFunc) http.HandlerFunc {
	if h.auth == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.Authorize(r); err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		next(w, r)
	}
}

// getExams serves both sides of the trust boundary: with code and public=1 it
// returns the sanitized student projection, otherwise the teacher-facing full
// exam or listing.
func (h *Handler) getExams(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	public := r.URL.Query().Get("public") == "1"

	if code != "" && public {
		exam, err := h.service.FetchExamForStudent(r.Context(), code)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exam)
		return
	}

	if h.auth != nil {
		if err := h.auth.Authorize(r); err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
	}

	if code != "" {
		exam, err := h.service.FetchExam(r.Context(), code)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exam)
		return
	}

	exams, err := h.service.ListExams(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if exams == nil {
		exams = []domain.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) upsertExam(w http.ResponseWriter, r *http.Request) {
	var exam domain.Exam
	if err := json.NewDecoder(r.Body).Decode(&exam); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if domain.NormalizeCode(exam.Code) == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", "code is required")
		return
	}
	if err := h.service.UpsertExam(r.Context(), exam); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type studentPayload struct {
	FullName     string `json:"fullName" validate:"required"`
	Class        string `json:"class" validate:"required"`
	AbsentNumber string `json:"absentNumber" validate:"required"`
}

type submitExamRequest struct {
	ExamCode    string               `json:"examCode" validate:"required"`
	Student     studentPayload       `json:"student"`
	Answers     map[string]string    `json:"answers"`
	ActivityLog []string             `json:"activityLog"`
	Status      domain.AttemptStatus `json:"status"`
}

func (h *Handler) submitExam(w http.ResponseWriter, r *http.Request) {
	var req submitExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields", err.Error())
		return
	}

	result, err := h.service.SubmitResult(r.Context(), domain.Submission{
		ExamCode: req.ExamCode,
		Student: domain.Student{
			FullName:     req.Student.FullName,
			Class:        req.Student.Class,
			AbsentNumber: req.Student.AbsentNumber,
		},
		Answers:     req.Answers,
		ActivityLog: req.ActivityLog,
		Status:      req.Status,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type teacherActionRequest struct {
	ExamCode  string `json:"examCode" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
	Action    string `json:"action" validate:"required,oneof=UNLOCK STOP"`
	TeacherID string `json:"teacherId" validate:"required"`
}

func (h *Handler) teacherAction(w http.ResponseWriter, r *http.Request) {
	var req teacherActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing or invalid fields", err.Error())
		return
	}

	result, err := h.service.ApplyTeacherAction(r.Context(), req.ExamCode, req.StudentID, domain.TeacherAction(req.Action), req.TeacherID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type resultStudent struct {
	StudentID string `json:"studentId"`
	FullName  string `json:"fullName"`
	Class     string `json:"class"`
}

// resultView is the dashboard projection; answer payloads stay server-side.
type resultView struct {
	ExamCode       string               `json:"examCode"`
	Student        resultStudent        `json:"student"`
	Status         domain.AttemptStatus `json:"status"`
	StatusCode     int                  `json:"statusCode"`
	Score          int                  `json:"score"`
	CorrectAnswers int                  `json:"correctAnswers"`
	TotalQuestions int                  `json:"totalQuestions"`
	ActivityLog    []string             `json:"activityLog"`
	Timestamp      string               `json:"timestamp"`
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.ListResults(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	views := make([]resultView, 0, len(results))
	for _, result := range results {
		views = append(views, toResultView(result))
	}
	writeJSON(w, http.StatusOK, views)
}

func toResultView(result domain.Result) resultView {
	return resultView{
		ExamCode: result.ExamCode,
		Student: resultStudent{
			StudentID: result.StudentID,
			FullName:  result.Student.FullName,
			Class:     result.Student.Class,
		},
		Status:         result.Status,
		StatusCode:     result.StatusCode,
		Score:          result.Score,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		ActivityLog:    result.ActivityLog,
		Timestamp:      result.Timestamp.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrExamNotFound):
		writeError(w, http.StatusNotFound, "Exam not found", "")
	case errors.Is(err, domain.ErrExamNotPublished):
		writeError(w, http.StatusForbidden, "Exam is not published", "")
	case errors.Is(err, domain.ErrResultNotFound):
		writeError(w, http.StatusNotFound, "Student result not found", "")
	case errors.Is(err, domain.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, "Invalid teacher action", err.Error())
	default:
		if h.log != nil {
			h.log.WithError(err).Error("request failed")
		}
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
