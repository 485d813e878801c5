// Package grading converts raw attempt answers into a score. It is pure and
// side-effect-free: the same engine backs live previews and the authoritative
// server-side regrade, so the two can never diverge.
package grading

import (
	"math"
	"strconv"
	"strings"

	"exam-sync-service/internal/domain"
)

// Summary is the graded outcome of one attempt.
type Summary struct {
	Score          int `json:"score"`
	CorrectCount   int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
}

// Grade scores answers against the canonical exam. Absent or malformed
// answers score no credit; grading never fails. TotalQuestions counts every
// question for reporting, while the score denominator only counts scorable
// (non-ESSAY, non-INFO) questions.
func Grade(exam domain.Exam, answers map[string]string) Summary {
	correct := 0
	scorable := 0
	for _, q := range exam.Questions {
		if !q.Type.Scorable() {
			continue
		}
		scorable++
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		if gradeQuestion(q, answer) {
			correct++
		}
	}

	score := 0
	if scorable > 0 {
		score = int(math.Round(float64(correct) / float64(scorable) * 100))
	}
	return Summary{
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: len(exam.Questions),
	}
}

func gradeQuestion(q domain.Question, answer string) bool {
	switch q.Type {
	case domain.MultipleChoice, domain.FillInTheBlank:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
	case domain.ComplexMultipleChoice:
		return domain.CanonicalChoices(answer) == domain.CanonicalChoices(q.CorrectAnswer)
	case domain.TrueFalse:
		return gradeTrueFalse(q, answer)
	case domain.Matching:
		return gradeMatching(q, answer)
	}
	return false
}

// gradeTrueFalse requires every row to match; a decode failure or a length
// mismatch counts as incorrect.
func gradeTrueFalse(q domain.Question, answer string) bool {
	values, err := domain.DecodeTrueFalse(answer)
	if err != nil || len(values) != len(q.Rows) {
		return false
	}
	for i, row := range q.Rows {
		if row.Answer == nil || values[i] != *row.Answer {
			return false
		}
	}
	return true
}

// gradeMatching requires every pair index to map to the authored right value.
func gradeMatching(q domain.Question, answer string) bool {
	choices, err := domain.DecodeMatching(answer)
	if err != nil {
		return false
	}
	for i, pair := range q.Pairs {
		if choices[strconv.Itoa(i)] != pair.Right {
			return false
		}
	}
	return true
}
