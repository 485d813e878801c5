package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStudentIDIsDeterministic(t *testing.T) {
	a := Student{FullName: " Siti Rahma ", Class: "9B", AbsentNumber: "12"}
	b := Student{FullName: "Siti Rahma", Class: " 9B", AbsentNumber: "12 "}
	if a.ID() != b.ID() {
		t.Fatalf("expected trimmed fields to derive the same id: %q vs %q", a.ID(), b.ID())
	}
	if a.ID() != "Siti Rahma_9B_12" {
		t.Fatalf("unexpected id %q", a.ID())
	}
}

func TestNormalizeCode(t *testing.T) {
	if NormalizeCode(" ab12cd ") != "AB12CD" {
		t.Fatalf("got %q", NormalizeCode(" ab12cd "))
	}
}

func TestSanitizeStripsAnswerKey(t *testing.T) {
	yes := true
	exam := Exam{
		Code: "AB12CD",
		Questions: []Question{
			{ID: "q1", Type: MultipleChoice, Text: "pick", Options: []string{"a", "b"}, CorrectAnswer: "a"},
			{ID: "q2", Type: TrueFalse, Rows: []TrueFalseRow{{Text: "stmt", Answer: &yes}}},
			{ID: "q3", Type: Matching, Pairs: []MatchingPair{{Left: "X", Right: "1"}}},
		},
	}

	clean := Sanitize(exam)
	for _, q := range clean.Questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("correct answer leaked on %s", q.ID)
		}
		for _, row := range q.Rows {
			if row.Answer != nil {
				t.Fatalf("true/false answer leaked on %s", q.ID)
			}
		}
		for _, pair := range q.Pairs {
			if pair.Right != "" {
				t.Fatalf("matching right value leaked on %s", q.ID)
			}
		}
	}
	if clean.Questions[0].Options[0] != "a" || clean.Questions[1].Rows[0].Text != "stmt" || clean.Questions[2].Pairs[0].Left != "X" {
		t.Fatalf("sanitize must keep non-key fields: %+v", clean.Questions)
	}

	// The original exam must be left untouched.
	if exam.Questions[0].CorrectAnswer != "a" || *exam.Questions[1].Rows[0].Answer != true {
		t.Fatalf("sanitize mutated the source exam")
	}

	data, err := json.Marshal(clean)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "correctAnswer") {
		t.Fatalf("serialized projection contains answer key: %s", data)
	}
}

func TestCanonicalChoices(t *testing.T) {
	if CanonicalChoices("b, a") != CanonicalChoices("a,b") {
		t.Fatalf("expected canonical forms to match")
	}
	if CanonicalChoices("a,b") == CanonicalChoices("a,c") {
		t.Fatalf("expected different sets to differ")
	}
}

func TestStatusCodes(t *testing.T) {
	cases := map[AttemptStatus]int{
		StatusNotStarted:     0,
		StatusInProgress:     1,
		StatusCompleted:      2,
		StatusForceSubmitted: 3,
	}
	for status, want := range cases {
		if status.Code() != want {
			t.Fatalf("status %s: expected code %d, got %d", status, want, status.Code())
		}
		if !status.Valid() {
			t.Fatalf("status %s should be valid", status)
		}
	}
	if AttemptStatus("bogus").Valid() {
		t.Fatalf("unknown status should be invalid")
	}
}
