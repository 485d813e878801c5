package session

import (
	"context"
	"sync"

	"exam-sync-service/internal/domain"
)

// Gateway is the slice of the sync server the controller needs: the terminal
// submission call. Everything else (fetching the exam) happens before the
// controller is built.
type Gateway interface {
	SubmitResult(ctx context.Context, sub domain.Submission) (domain.Result, error)
}

// ProgressStore is the durable client-local snapshot store. Editing and
// autosaving go through it so an attempt survives reloads, crashes and
// lockouts without connectivity.
type ProgressStore interface {
	Load(ctx context.Context, examCode, studentID string) (domain.ProgressSnapshot, bool, error)
	Save(ctx context.Context, examCode, studentID string, snap domain.ProgressSnapshot) error
	Delete(ctx context.Context, examCode, studentID string) error
}

// VisibilitySignal is the injected backgrounding/hidden signal source. Each
// subscription gets its own channel; a send means the execution context left
// the exam screen.
type VisibilitySignal interface {
	Subscribe() (<-chan struct{}, func())
}

// ChannelVisibility is a VisibilitySignal driven by explicit Hide calls,
// suitable for tests and for environments that bridge a platform event.
type ChannelVisibility struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewChannelVisibility() *ChannelVisibility {
	return &ChannelVisibility{subs: make(map[chan struct{}]struct{})}
}

func (v *ChannelVisibility) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	v.mu.Lock()
	v.subs[ch] = struct{}{}
	v.mu.Unlock()
	cancel := func() {
		v.mu.Lock()
		delete(v.subs, ch)
		v.mu.Unlock()
	}
	return ch, cancel
}

// Hide notifies every subscriber that the exam screen was left.
func (v *ChannelVisibility) Hide() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for ch := range v.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// MemoryProgressStore is an in-memory ProgressStore for tests and demos. The
// sqlite implementation in internal/infra/sqlite is the durable one.
type MemoryProgressStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.ProgressSnapshot
}

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{snapshots: make(map[string]domain.ProgressSnapshot)}
}

func (s *MemoryProgressStore) Load(_ context.Context, examCode, studentID string) (domain.ProgressSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[domain.ProgressKey(examCode, studentID)]
	return snap, ok, nil
}

func (s *MemoryProgressStore) Save(_ context.Context, examCode, studentID string, snap domain.ProgressSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[domain.ProgressKey(examCode, studentID)] = snap
	return nil
}

func (s *MemoryProgressStore) Delete(_ context.Context, examCode, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, domain.ProgressKey(examCode, studentID))
	return nil
}
