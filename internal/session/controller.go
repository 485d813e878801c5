// Package session drives one timed exam attempt on the client side: the
// countdown, periodic local snapshotting, the anti-cheat lockout and the
// terminal submission. One Controller instance owns one attempt; resuming
// after an unlock means building a fresh instance.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"exam-sync-service/internal/domain"
)

// State is the controller lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateActive
	StateSubmitting
	StateCompleted
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateLocked:
		return "locked"
	}
	return "unknown"
}

var (
	// ErrNotActive is returned when an edit or submit arrives outside ACTIVE.
	ErrNotActive = errors.New("attempt is not active")
	// ErrSubmitInFlight guards the terminal-transition path against a second
	// concurrent submission from the same instance.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// Config wires a Controller. Exam must be the sanitized student projection;
// the controller never sees answer-key material.
type Config struct {
	Exam     domain.Exam
	Student  domain.Student
	Gateway  Gateway
	Progress ProgressStore
	// Visibility is optional; without it the lockout transition is inert.
	Visibility VisibilitySignal
	// ResumeRemainingSeconds carries the countdown forward across a restart.
	// Zero means a fresh countdown of TimeLimitMinutes.
	ResumeRemainingSeconds int
	// OnTerminal, when set, is called once after a forced submission (timeout
	// or lockout) with the server result or the submission error.
	OnTerminal func(status domain.AttemptStatus, result domain.Result, err error)
}

// Controller is the attempt state machine. External methods are safe for
// concurrent use; the scheduled tasks run on a single internal goroutine so a
// terminal transition can cancel them before any network call.
type Controller struct {
	exam       domain.Exam
	student    domain.Student
	gateway    Gateway
	progress   ProgressStore
	visibility VisibilitySignal
	onTerminal func(domain.AttemptStatus, domain.Result, error)
	now        func() time.Time

	mu        sync.Mutex
	state     State
	answers   map[string]string
	logs      []string
	remaining int
	resumed   bool
	inFlight  bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New builds a controller, resuming from the local snapshot when one exists
// for (examCode, studentId).
func New(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Gateway == nil || cfg.Progress == nil {
		return nil, fmt.Errorf("session: gateway and progress store are required")
	}
	c := &Controller{
		exam:       cfg.Exam,
		student:    cfg.Student,
		gateway:    cfg.Gateway,
		progress:   cfg.Progress,
		visibility: cfg.Visibility,
		onTerminal: cfg.OnTerminal,
		now:        time.Now,
		state:      StateInitializing,
		answers:    make(map[string]string),
		remaining:  cfg.Exam.Config.TimeLimitMinutes * 60,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if cfg.ResumeRemainingSeconds > 0 {
		c.remaining = cfg.ResumeRemainingSeconds
	}

	snap, ok, err := cfg.Progress.Load(ctx, cfg.Exam.Code, cfg.Student.ID())
	if err != nil {
		return nil, fmt.Errorf("load progress snapshot: %w", err)
	}
	if ok {
		c.resumed = true
		for id, answer := range snap.Answers {
			c.answers[id] = answer
		}
		c.logs = append(c.logs, snap.Logs...)
	}
	return c, nil
}

// NewWithClock is test-only for deterministic log timestamps.
func NewWithClock(ctx context.Context, cfg Config, now func() time.Time) (*Controller, error) {
	c, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.now = now
	return c, nil
}

// Start transitions INITIALIZING -> ACTIVE and launches the scheduled tasks.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInitializing {
		c.mu.Unlock()
		return fmt.Errorf("session: already started (state %s)", c.state)
	}
	c.state = StateActive
	if c.resumed {
		c.appendLogLocked(fmt.Sprintf("Attempt resumed with %d saved answers", len(c.answers)))
	} else {
		c.appendLogLocked("Attempt started")
	}
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// SetAnswer merges one question's encoded answer into the attempt. Edits are
// local only; they reach the server at the terminal submission.
func (c *Controller) SetAnswer(questionID, encoded string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return ErrNotActive
	}
	c.answers[questionID] = encoded
	return nil
}

// Submit performs the student-triggered terminal submission. Confirmation is
// the caller's responsibility. On network failure the snapshot is kept, the
// controller returns to ACTIVE and the call may be retried.
func (c *Controller) Submit(ctx context.Context) (domain.Result, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return domain.Result{}, ErrNotActive
	}
	if c.inFlight {
		c.mu.Unlock()
		return domain.Result{}, ErrSubmitInFlight
	}
	c.state = StateSubmitting
	c.appendLogLocked(fmt.Sprintf("Attempt submitted with %s remaining", formatSeconds(c.remaining)))
	c.mu.Unlock()

	result, err := c.submit(ctx, domain.StatusCompleted, true)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// Recoverable: snapshot intact, timers still scheduled (they no-op
		// outside ACTIVE), caller may retry.
		c.state = StateActive
		c.appendLogLocked("Submission failed, attempt kept locally for retry")
		return domain.Result{}, err
	}
	c.state = StateCompleted
	c.cancelTasks()
	return result, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RemainingSeconds returns the countdown value.
func (c *Controller) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Answers returns a copy of the current answer map.
func (c *Controller) Answers() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.answers))
	for id, answer := range c.answers {
		out[id] = answer
	}
	return out
}

// ActivityLog returns a copy of the attempt log.
func (c *Controller) ActivityLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.logs...)
}

// Done is closed when the scheduled tasks have stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// run owns the three recurring tasks. Terminal events stop both tickers
// before the submission is issued, so a stale tick or autosave can never land
// after the attempt was finalized.
func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	countdown := time.NewTicker(time.Second)
	defer countdown.Stop()

	interval := time.Duration(c.exam.Config.AutoSaveIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	autosave := time.NewTicker(interval)
	defer autosave.Stop()

	var hidden <-chan struct{}
	if c.visibility != nil && c.exam.Config.LockoutArmed() {
		var unsubscribe func()
		hidden, unsubscribe = c.visibility.Subscribe()
		defer unsubscribe()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-countdown.C:
			if c.tick(ctx) {
				countdown.Stop()
				autosave.Stop()
				c.finishForced(ctx, domain.StatusCompleted, true)
				return
			}
		case <-autosave.C:
			c.autosave(ctx)
		case <-hidden:
			if c.lock(ctx) {
				countdown.Stop()
				autosave.Stop()
				c.finishForced(ctx, domain.StatusForceSubmitted, false)
				return
			}
		}
	}
}

// tick decrements the countdown; true means the attempt just expired. Expiry
// persists a final snapshot before the forced submission so edits made since
// the last autosave survive an offline failure.
func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return false
	}
	c.remaining--
	if c.remaining > 0 {
		return false
	}
	c.remaining = 0
	c.state = StateSubmitting
	c.appendLogLocked("Time expired, attempt submitted automatically")
	_ = c.saveSnapshotLocked(ctx)
	return true
}

// autosave snapshots answers and log. The store call happens under the lock
// so a snapshot can never be written after a terminal transition cleared it.
func (c *Controller) autosave(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return
	}
	_ = c.saveSnapshotLocked(ctx)
}

// lock handles the anti-cheat signal; true means this event caused the
// transition. A second signal after LOCKED has no effect.
func (c *Controller) lock(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return false
	}
	c.state = StateLocked
	c.appendLogLocked(fmt.Sprintf("Attempt locked after leaving the exam screen with %s remaining", formatSeconds(c.remaining)))
	_ = c.saveSnapshotLocked(ctx)
	return true
}

// finishForced performs the non-cancellable submission for timeout and
// lockout. On failure the snapshot stays so the attempt remains recoverable.
func (c *Controller) finishForced(ctx context.Context, status domain.AttemptStatus, clearOnSuccess bool) {
	result, err := c.submit(ctx, status, clearOnSuccess)

	if status == domain.StatusCompleted {
		c.mu.Lock()
		if err == nil {
			c.state = StateCompleted
		}
		c.mu.Unlock()
	}

	if c.onTerminal != nil {
		c.onTerminal(status, result, err)
	}
}

// submit issues the network call outside the lock; only one may be in flight.
func (c *Controller) submit(ctx context.Context, status domain.AttemptStatus, clearOnSuccess bool) (domain.Result, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return domain.Result{}, ErrSubmitInFlight
	}
	c.inFlight = true
	sub := domain.Submission{
		ExamCode:    c.exam.Code,
		Student:     c.student,
		Answers:     copyAnswers(c.answers),
		ActivityLog: append([]string(nil), c.logs...),
		Status:      status,
	}
	c.mu.Unlock()

	result, err := c.gateway.SubmitResult(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		return domain.Result{}, fmt.Errorf("submit attempt: %w", err)
	}
	if clearOnSuccess {
		_ = c.progress.Delete(ctx, c.exam.Code, c.student.ID())
	}
	return result, nil
}

func (c *Controller) saveSnapshotLocked(ctx context.Context) error {
	return c.progress.Save(ctx, c.exam.Code, c.student.ID(), domain.ProgressSnapshot{
		Answers: copyAnswers(c.answers),
		Logs:    append([]string(nil), c.logs...),
	})
}

func (c *Controller) appendLogLocked(message string) {
	c.logs = append(c.logs, fmt.Sprintf("[%s] %s", c.now().Format(time.RFC3339), message))
}

func (c *Controller) cancelTasks() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func copyAnswers(answers map[string]string) map[string]string {
	out := make(map[string]string, len(answers))
	for id, answer := range answers {
		out[id] = answer
	}
	return out
}

func formatSeconds(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
