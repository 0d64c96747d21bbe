package taskmanager

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/maxkimambo/taskman/internal/logger"
	"github.com/maxkimambo/taskman/internal/workerpool"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Setup(false, false, true)
	os.Exit(m.Run())
}

// recorder is an Observer that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) forTask(t *Task) []Event {
	var out []Event
	for _, e := range r.all() {
		if e.TaskID == t.ID() {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, e := range r.all() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) terminals() int {
	n := 0
	for _, e := range r.all() {
		if e.Kind.IsTerminal() {
			n++
		}
	}
	return n
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

// rejectingPool refuses every work item.
type rejectingPool struct{}

func (rejectingPool) Submit(func(), int) error { return workerpool.ErrQueueFull }
func (rejectingPool) JoinAll()                 {}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *recorder) {
	t.Helper()
	opts = append([]Option{WithPoolConfig(workerpool.Config{Workers: 8, QueueSize: 256})}, opts...)
	m := NewManager(opts...)
	t.Cleanup(func() {
		m.CancelAll()
		require.NoError(t, m.Close())
	})

	rec := &recorder{}
	m.Subscribe(rec)
	return m, rec
}

// waitForTerminal waits until t's terminal event has been observed.
func waitForTerminal(t *testing.T, rec *recorder, task *Task) Event {
	t.Helper()
	var terminal Event
	require.Eventually(t, func() bool {
		for _, e := range rec.forTask(task) {
			if e.Kind.IsTerminal() {
				terminal = e
				return true
			}
		}
		return false
	}, 5*time.Second, time.Millisecond)
	return terminal
}

func contains(tasks []*Task, t *Task) bool {
	for _, candidate := range tasks {
		if candidate == t {
			return true
		}
	}
	return false
}
