package domain

import (
	"strings"
	"time"
)

// QuestionType tags the variant carried by a Question.
type QuestionType string

const (
	MultipleChoice        QuestionType = "MULTIPLE_CHOICE"
	ComplexMultipleChoice QuestionType = "COMPLEX_MULTIPLE_CHOICE"
	TrueFalse             QuestionType = "TRUE_FALSE"
	Matching              QuestionType = "MATCHING"
	Essay                 QuestionType = "ESSAY"
	FillInTheBlank        QuestionType = "FILL_IN_THE_BLANK"
	Info                  QuestionType = "INFO"
)

// Scorable reports whether the type participates in automatic grading.
func (t QuestionType) Scorable() bool {
	return t != Essay && t != Info
}

// TrueFalseRow is one statement of a TRUE_FALSE question. Answer is nil in
// sanitized projections.
type TrueFalseRow struct {
	Text   string `json:"text"`
	Answer *bool  `json:"answer"`
}

// MatchingPair is one left/right pair of a MATCHING question. Right is empty
// in sanitized projections.
type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Question models one exam item. Which fields are populated depends on Type.
type Question struct {
	ID            string         `json:"id"`
	Type          QuestionType   `json:"questionType"`
	Text          string         `json:"text,omitempty"`
	Image         string         `json:"image,omitempty"`
	Options       []string       `json:"options,omitempty"`
	CorrectAnswer string         `json:"correctAnswer,omitempty"`
	Rows          []TrueFalseRow `json:"rows,omitempty"`
	Pairs         []MatchingPair `json:"pairs,omitempty"`
}

// PublishState gates student access to an exam.
const (
	PublishStateDraft     = "draft"
	PublishStatePublished = "published"
)

// ExamConfig carries the per-exam attempt settings.
type ExamConfig struct {
	TimeLimitMinutes        int    `json:"timeLimitMinutes"`
	ShuffleQuestions        bool   `json:"shuffleQuestions"`
	ShuffleAnswers          bool   `json:"shuffleAnswers"`
	AutoSaveIntervalSeconds int    `json:"autoSaveIntervalSeconds"`
	DetectBehavior          bool   `json:"detectBehavior"`
	ContinueWithPermission  bool   `json:"continueWithPermission"`
	PublishState            string `json:"publishState"`
}

// LockoutArmed reports whether leaving the exam screen locks the attempt.
// Both flags must be set; detection without the permission flow would strand
// students with no way back in.
func (c ExamConfig) LockoutArmed() bool {
	return c.DetectBehavior && c.ContinueWithPermission
}

// Exam is the authored assessment. Codes are short alphanumeric identifiers,
// compared case-insensitively; NormalizeCode is applied at every boundary.
type Exam struct {
	Code      string     `json:"code"`
	AuthorID  string     `json:"authorId"`
	Questions []Question `json:"questions"`
	Config    ExamConfig `json:"config"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NormalizeCode canonicalizes an exam code for use as a storage key.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Student identifies a participant without an account system.
type Student struct {
	FullName     string `json:"fullName"`
	Class        string `json:"class"`
	AbsentNumber string `json:"absentNumber"`
}

// ID derives the deterministic student key. Repeated logins with the same
// three fields map to the same attempt.
func (s Student) ID() string {
	return strings.TrimSpace(s.FullName) + "_" + strings.TrimSpace(s.Class) + "_" + strings.TrimSpace(s.AbsentNumber)
}

// AttemptStatus is the lifecycle state of a Result.
type AttemptStatus string

const (
	StatusNotStarted     AttemptStatus = "not_started"
	StatusInProgress     AttemptStatus = "in_progress"
	StatusCompleted      AttemptStatus = "completed"
	StatusForceSubmitted AttemptStatus = "force_submitted"
)

// Code returns the numeric mirror stored alongside the status.
func (s AttemptStatus) Code() int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	case StatusForceSubmitted:
		return 3
	}
	return 0
}

// Valid reports whether s is one of the known statuses.
func (s AttemptStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusForceSubmitted:
		return true
	}
	return false
}

// Result is the authoritative record of one attempt, keyed by
// (examCode, studentId). Score fields are always recomputed server-side.
type Result struct {
	ExamCode       string            `json:"examCode"`
	StudentID      string            `json:"studentId"`
	Student        Student           `json:"student"`
	Answers        map[string]string `json:"answers"`
	Status         AttemptStatus     `json:"status"`
	StatusCode     int               `json:"statusCode"`
	Score          int               `json:"score"`
	CorrectAnswers int               `json:"correctAnswers"`
	TotalQuestions int               `json:"totalQuestions"`
	ActivityLog    []string          `json:"activityLog"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Submission is the client payload for a terminal attempt sync. Any score
// fields a client might send are deliberately absent from this type.
type Submission struct {
	ExamCode    string            `json:"examCode"`
	Student     Student           `json:"student"`
	Answers     map[string]string `json:"answers"`
	ActivityLog []string          `json:"activityLog"`
	Status      AttemptStatus     `json:"status,omitempty"`
}

// TeacherAction mutates attempt status without touching answers.
type TeacherAction string

const (
	ActionUnlock TeacherAction = "UNLOCK"
	ActionStop   TeacherAction = "STOP"
)

// ProgressSnapshot is the client-local copy of an in-progress attempt.
type ProgressSnapshot struct {
	Answers map[string]string `json:"answers"`
	Logs    []string          `json:"logs"`
}

// ProgressKey builds the composite key a snapshot is stored under.
func ProgressKey(examCode, studentID string) string {
	return NormalizeCode(examCode) + "_" + studentID
}

// Sanitize returns a copy of the exam with all answer-key material removed,
// safe to expose to the student role. Prompts, images, options and ordering
// pass through unchanged.
func Sanitize(exam Exam) Exam {
	out := exam
	out.Questions = make([]Question, len(exam.Questions))
	for i, q := range exam.Questions {
		sq := q
		sq.CorrectAnswer = ""
		if len(q.Rows) > 0 {
			sq.Rows = make([]TrueFalseRow, len(q.Rows))
			for j, row := range q.Rows {
				sq.Rows[j] = TrueFalseRow{Text: row.Text, Answer: nil}
			}
		}
		if len(q.Pairs) > 0 {
			sq.Pairs = make([]MatchingPair, len(q.Pairs))
			for j, pair := range q.Pairs {
				sq.Pairs[j] = MatchingPair{Left: pair.Left, Right: ""}
			}
		}
		out.Questions[i] = sq
	}
	return out
}
