package cli

import (
	"testing"

	"exam-sync-service/internal/domain"
)

func TestEstimateRemainingSeconds(t *testing.T) {
	snap := domain.ProgressSnapshot{Logs: []string{
		"[2026-08-31T10:00:00Z] Attempt started",
		"[2026-08-31T10:05:00Z] Attempt locked after leaving the exam screen with 25m0s remaining",
		"[2026-08-31T10:10:00Z] Teacher t1 unlocked the attempt",
	}}
	if got := estimateRemainingSeconds(snap, 30); got != 20*60 {
		t.Fatalf("expected 1200s remaining after 10 elapsed minutes, got %d", got)
	}
}

func TestEstimateRemainingSecondsNoUsableLogs(t *testing.T) {
	cases := [][]string{
		nil,
		{"no timestamp here"},
		{"[2026-08-31T10:00:00Z] Attempt started"},
	}
	for _, logs := range cases {
		if got := estimateRemainingSeconds(domain.ProgressSnapshot{Logs: logs}, 30); got != 0 {
			t.Fatalf("expected no estimate for logs %v, got %d", logs, got)
		}
	}
}

func TestEstimateRemainingSecondsOverLimit(t *testing.T) {
	snap := domain.ProgressSnapshot{Logs: []string{
		"[2026-08-31T10:00:00Z] Attempt started",
		"[2026-08-31T11:00:00Z] Attempt resumed with 3 saved answers",
	}}
	if got := estimateRemainingSeconds(snap, 30); got != 1 {
		t.Fatalf("expected minimal countdown for an expired resume, got %d", got)
	}
}
