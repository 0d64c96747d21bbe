package taskmanager

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gax "github.com/googleapis/gax-go/v2"
	taskerrors "github.com/maxkimambo/taskman/internal/errors"
)

// State is the lifecycle state of a Task.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateCancelling
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateCancelling:
		return "Cancelling"
	case StateFinished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Outcome is how a finished task ended.
type Outcome int32

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int32(o))
	}
}

// Runner is a task body. Run is called once per start on a pool worker (or on the
// caller for StartInline). It should poll t.IsCancelled, watch t.Context or use
// t.Sleep, and report with t.SetProgress. A returned error or a panic fails the task.
type Runner interface {
	Run(t *Task) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(t *Task) error

func (f RunnerFunc) Run(t *Task) error {
	return f(t)
}

// progressSink is where a running task forwards progress and custom payloads.
// The dispatcher installs it for the duration of the body only.
type progressSink interface {
	taskProgress(t *Task, p float64)
	taskCustom(t *Task, payload interface{})
}

// Task is a named, cancellable unit of work.
type Task struct {
	id     string
	name   string
	runner Runner

	state     atomic.Int32
	cancelled atomic.Bool
	progress  atomic.Uint64 // math.Float64bits

	mu      sync.Mutex
	ctx     context.Context
	stop    context.CancelFunc
	sink    progressSink
	active  bool // accepted by a manager, terminal event not yet delivered
	outcome Outcome
	err     error
}

// NewTask creates an Idle task with a fresh unique ID.
func NewTask(name string, r Runner) *Task {
	if r == nil {
		panic("taskmanager: NewTask called with nil Runner")
	}
	t := &Task{
		id:     uuid.New().String(),
		name:   name,
		runner: r,
	}
	t.ctx, t.stop = context.WithCancel(context.Background())
	return t
}

// NewTaskFunc creates an Idle task whose body is fn.
func NewTaskFunc(name string, fn func(t *Task) error) *Task {
	return NewTask(name, RunnerFunc(fn))
}

func (t *Task) ID() string   { return t.id }
func (t *Task) Name() string { return t.name }

func (t *Task) State() State {
	return State(t.state.Load())
}

// Progress returns the last value passed to SetProgress, published or not.
func (t *Task) Progress() float64 {
	return math.Float64frombits(t.progress.Load())
}

// IsCancelled reports whether cancellation was requested.
func (t *Task) IsCancelled() bool {
	return t.cancelled.Load()
}

// Context is cancelled when Cancel is called.
func (t *Task) Context() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ctx
}

// Outcome returns how the task ended, or OutcomeNone before it finishes.
func (t *Task) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Err returns the failure captured from the body, if the task failed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancel requests cancellation. It is idempotent, never blocks on the body and
// publishes nothing; the dispatcher reports the outcome once the body returns.
// It has no effect on a finished task.
func (t *Task) Cancel() {
	if t.State() == StateFinished {
		return
	}
	// The flag goes first so a Cancelling state always implies IsCancelled.
	t.cancelled.Store(true)

	t.mu.Lock()
	stop := t.stop
	t.mu.Unlock()
	stop()

	for {
		s := t.State()
		if s == StateFinished || s == StateCancelling {
			return
		}
		if t.state.CompareAndSwap(int32(s), int32(StateCancelling)) {
			return
		}
	}
}

// SetProgress records p, clamped to [0, 1], and forwards it to the manager while the
// body runs. The manager may drop it; Progress always returns the latest value.
func (t *Task) SetProgress(p float64) {
	switch {
	case math.IsNaN(p), p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	t.progress.Store(math.Float64bits(p))

	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()
	if sink != nil {
		sink.taskProgress(t, p)
	}
}

// Post publishes payload as an EventCustom. It reports false if the body is not
// running under a manager.
func (t *Task) Post(payload interface{}) bool {
	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()
	if sink == nil {
		return false
	}
	sink.taskCustom(t, payload)
	return true
}

// Sleep waits for d and reports whether the task was cancelled, returning early
// if cancellation arrives first.
func (t *Task) Sleep(d time.Duration) bool {
	if err := gax.Sleep(t.Context(), d); err != nil {
		return true
	}
	return t.IsCancelled()
}

// Reset returns the task to a fresh Idle state so it can be started again. It fails
// while a manager owns the task, which lasts until the terminal event has been
// delivered to every observer; calling Reset from a terminal observer returns
// ErrInvalidState.
func (t *Task) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return taskerrors.NewInvalidStateError("reset", t.State().String(), ErrInvalidState).
			ForTask(t.id, t.name)
	}

	t.stop()
	t.ctx, t.stop = context.WithCancel(context.Background())
	t.cancelled.Store(false)
	t.progress.Store(0)
	t.outcome = OutcomeNone
	t.err = nil
	t.state.Store(int32(StateIdle))
	return nil
}

func (t *Task) String() string {
	return fmt.Sprintf("%s[%s]", t.name, t.State())
}

// claim moves Idle to Starting and marks the task owned. A task cancelled before
// it was ever started stays Cancelling; the dispatcher skips its body and reports
// it cancelled.
func (t *Task) claim(operation string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)):
	case t.State() == StateCancelling && !t.active && t.outcome == OutcomeNone:
	default:
		return taskerrors.NewInvalidStateError(operation, t.State().String(), ErrAlreadyStarted).
			ForTask(t.id, t.name)
	}
	t.active = true
	return nil
}

// unclaim hands a task back to the caller after a rejected submission.
// A cancel that arrived in between stays visible as Cancelling.
func (t *Task) unclaim() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = false
	t.state.CompareAndSwap(int32(StateStarting), int32(StateIdle))
}

// beginRun moves Starting to Running and installs sink. It reports false when the
// task was cancelled before its body could start.
func (t *Task) beginRun(sink progressSink) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		return false
	}
	t.sink = sink
	return true
}

func (t *Task) endRun() {
	t.mu.Lock()
	t.sink = nil
	t.mu.Unlock()
}

func (t *Task) complete(outcome Outcome, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.outcome = outcome
	t.err = err
	t.state.Store(int32(StateFinished))
}

func (t *Task) release() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}
