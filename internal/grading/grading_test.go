package grading_test

import (
	"testing"

	"exam-sync-service/internal/domain"
	"exam-sync-service/internal/grading"
)

func TestGradeEmptyAnswers(t *testing.T) {
	summary := grading.Grade(sampleExam(), map[string]string{})
	if summary.CorrectCount != 0 || summary.Score != 0 {
		t.Fatalf("expected zero score for no answers, got %+v", summary)
	}
	if summary.TotalQuestions != 6 {
		t.Fatalf("expected total 6, got %d", summary.TotalQuestions)
	}
}

func TestGradeMultipleChoiceCaseInsensitive(t *testing.T) {
	exam := examWith(domain.Question{
		ID:            "q1",
		Type:          domain.MultipleChoice,
		CorrectAnswer: "Jakarta",
	})
	summary := grading.Grade(exam, map[string]string{"q1": "jAKARTA"})
	if summary.CorrectCount != 1 || summary.Score != 100 {
		t.Fatalf("expected case-insensitive match, got %+v", summary)
	}
}

func TestGradeComplexMultipleChoiceOrderIndependent(t *testing.T) {
	exam := examWith(domain.Question{
		ID:            "q1",
		Type:          domain.ComplexMultipleChoice,
		CorrectAnswer: "a,b",
	})
	summary := grading.Grade(exam, map[string]string{"q1": "b, a"})
	if summary.CorrectCount != 1 {
		t.Fatalf("expected order-independent match, got %+v", summary)
	}
	summary = grading.Grade(exam, map[string]string{"q1": "b,c"})
	if summary.CorrectCount != 0 {
		t.Fatalf("expected mismatch, got %+v", summary)
	}
}

func TestGradeTrueFalse(t *testing.T) {
	yes, no := true, false
	exam := examWith(domain.Question{
		ID:   "q1",
		Type: domain.TrueFalse,
		Rows: []domain.TrueFalseRow{
			{Text: "first", Answer: &yes},
			{Text: "second", Answer: &no},
		},
	})

	summary := grading.Grade(exam, map[string]string{"q1": domain.EncodeTrueFalse([]bool{true, false})})
	if summary.CorrectCount != 1 {
		t.Fatalf("expected all rows matching to score, got %+v", summary)
	}

	summary = grading.Grade(exam, map[string]string{"q1": domain.EncodeTrueFalse([]bool{false, false})})
	if summary.CorrectCount != 0 {
		t.Fatalf("expected partial row match to score zero, got %+v", summary)
	}

	summary = grading.Grade(exam, map[string]string{"q1": "not json"})
	if summary.CorrectCount != 0 {
		t.Fatalf("expected unparsable answer to score zero, got %+v", summary)
	}

	summary = grading.Grade(exam, map[string]string{"q1": domain.EncodeTrueFalse([]bool{true})})
	if summary.CorrectCount != 0 {
		t.Fatalf("expected length mismatch to score zero, got %+v", summary)
	}
}

func TestGradeMatching(t *testing.T) {
	exam := examWith(domain.Question{
		ID:   "q1",
		Type: domain.Matching,
		Pairs: []domain.MatchingPair{
			{Left: "X", Right: "1"},
			{Left: "Y", Right: "2"},
		},
	})

	summary := grading.Grade(exam, map[string]string{"q1": domain.EncodeMatching(map[int]string{0: "1", 1: "2"})})
	if summary.CorrectCount != 1 {
		t.Fatalf("expected exact mapping to score, got %+v", summary)
	}

	summary = grading.Grade(exam, map[string]string{"q1": domain.EncodeMatching(map[int]string{0: "2", 1: "1"})})
	if summary.CorrectCount != 0 {
		t.Fatalf("expected swapped mapping to score zero, got %+v", summary)
	}

	summary = grading.Grade(exam, map[string]string{"q1": "{broken"})
	if summary.CorrectCount != 0 {
		t.Fatalf("expected decode failure to score zero, got %+v", summary)
	}
}

func TestGradeExcludesEssayAndInfoFromDenominator(t *testing.T) {
	exam := domain.Exam{
		Code: "AB12CD",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.MultipleChoice, CorrectAnswer: "a"},
			{ID: "q2", Type: domain.MultipleChoice, CorrectAnswer: "b"},
			{ID: "q3", Type: domain.MultipleChoice, CorrectAnswer: "c"},
			{ID: "q4", Type: domain.Essay},
			{ID: "q5", Type: domain.Info},
		},
	}
	summary := grading.Grade(exam, map[string]string{
		"q1": "a", "q2": "b", "q3": "c",
		"q4": "a long essay nobody grades automatically",
	})
	if summary.Score != 100 || summary.CorrectCount != 3 {
		t.Fatalf("expected 3/3 scorable = 100, got %+v", summary)
	}
	if summary.TotalQuestions != 5 {
		t.Fatalf("expected reported total 5, got %d", summary.TotalQuestions)
	}
}

func TestGradeZeroScorableQuestions(t *testing.T) {
	exam := domain.Exam{
		Code: "INFO01",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.Info},
			{ID: "q2", Type: domain.Essay},
		},
	}
	summary := grading.Grade(exam, map[string]string{"q2": "text"})
	if summary.Score != 0 || summary.CorrectCount != 0 {
		t.Fatalf("expected zero score with no scorable questions, got %+v", summary)
	}
}

func TestGradeRounding(t *testing.T) {
	exam := domain.Exam{
		Code: "RND",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.MultipleChoice, CorrectAnswer: "a"},
			{ID: "q2", Type: domain.MultipleChoice, CorrectAnswer: "b"},
			{ID: "q3", Type: domain.MultipleChoice, CorrectAnswer: "c"},
		},
	}
	summary := grading.Grade(exam, map[string]string{"q1": "a", "q2": "b"})
	if summary.Score != 67 {
		t.Fatalf("expected 2/3 to round to 67, got %d", summary.Score)
	}
}

func examWith(q domain.Question) domain.Exam {
	return domain.Exam{Code: "T1", Questions: []domain.Question{q}}
}

func sampleExam() domain.Exam {
	yes := true
	return domain.Exam{
		Code: "SAMPLE",
		Questions: []domain.Question{
			{ID: "q1", Type: domain.MultipleChoice, Options: []string{"a", "b"}, CorrectAnswer: "a"},
			{ID: "q2", Type: domain.FillInTheBlank, CorrectAnswer: "osmosis"},
			{ID: "q3", Type: domain.TrueFalse, Rows: []domain.TrueFalseRow{{Text: "t", Answer: &yes}}},
			{ID: "q4", Type: domain.Matching, Pairs: []domain.MatchingPair{{Left: "X", Right: "1"}}},
			{ID: "q5", Type: domain.Essay},
			{ID: "q6", Type: domain.Info},
		},
	}
}
