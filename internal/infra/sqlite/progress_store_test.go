package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"exam-sync-service/internal/domain"
)

func TestProgressStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	snap := domain.ProgressSnapshot{
		Answers: map[string]string{"q1": "Paris"},
		Logs:    []string{"[t0] Attempt started"},
	}
	if err := store.Save(ctx, "ab12cd", "s1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, ok, err := store.Load(ctx, "AB12CD", "s1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Answers["q1"] != "Paris" || len(loaded.Logs) != 1 {
		t.Fatalf("unexpected snapshot %+v", loaded)
	}
}

func TestProgressStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_ = store.Save(ctx, "AB12CD", "s1", domain.ProgressSnapshot{Answers: map[string]string{"q1": "a"}})
	if err := store.Save(ctx, "AB12CD", "s1", domain.ProgressSnapshot{Answers: map[string]string{"q1": "b"}}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, ok, err := store.Load(ctx, "AB12CD", "s1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Answers["q1"] != "b" {
		t.Fatalf("expected overwrite, got %+v", loaded)
	}
}

func TestProgressStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_ = store.Save(ctx, "AB12CD", "s1", domain.ProgressSnapshot{Answers: map[string]string{"q1": "a"}})
	if err := store.Delete(ctx, "AB12CD", "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "AB12CD", "s1"); ok {
		t.Fatalf("expected snapshot gone")
	}

	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, "AB12CD", "s1"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestProgressStoreMissingKey(t *testing.T) {
	store := newTestStore(t)
	if _, ok, err := store.Load(context.Background(), "NOPE", "s1"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func newTestStore(t *testing.T) *ProgressStore {
	t.Helper()
	store, err := NewProgressStore(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
