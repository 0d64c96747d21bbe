package taskmanager

import (
	"fmt"
	"sync"
	"time"

	taskerrors "github.com/maxkimambo/taskman/internal/errors"
	"github.com/maxkimambo/taskman/internal/logger"
	"github.com/maxkimambo/taskman/internal/notify"
	"github.com/maxkimambo/taskman/internal/workerpool"
	"github.com/sirupsen/logrus"
)

// NoCPU starts a task without pinning it to a CPU.
const NoCPU = workerpool.NoCPU

// Pool runs work items. workerpool.Pool implements it.
type Pool interface {
	// Submit enqueues item, pinned to cpu when cpu >= 0 and the platform allows.
	Submit(item func(), cpu int) error
	// JoinAll blocks until the pool has no queued or running items.
	JoinAll()
}

// Notifier delivers events to observers synchronously. notify.Bus implements it.
type Notifier interface {
	Subscribe(o Observer) bool
	Unsubscribe(o Observer) bool
	Publish(e Event)
}

// Manager owns a registry of live tasks, dispatches them onto a Pool and
// publishes their lifecycle events.
//
// It is safe for concurrent use.
type Manager struct {
	pool            Pool
	ownedPool       *workerpool.Pool
	shutdownTimeout time.Duration
	nc              Notifier
	throttle        *progressThrottle
	log             *logrus.Entry

	mu      sync.Mutex
	tasks   []*Task
	drained *sync.Cond
}

// NewManager creates a manager. Without WithPool it creates, starts and owns a
// workerpool.Pool, which Close shuts down.
func NewManager(opts ...Option) *Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	m := &Manager{
		pool:            cfg.pool,
		shutdownTimeout: cfg.shutdownTimeout,
		nc:              cfg.notifier,
		throttle:        newProgressThrottle(cfg.progressInterval),
		log:             cfg.log,
	}
	m.drained = sync.NewCond(&m.mu)

	if m.log == nil {
		m.log = logger.Op.WithFields(map[string]interface{}{"component": "taskmanager"})
	}
	if m.nc == nil {
		m.nc = notify.NewBus[Event]()
	}
	if m.pool == nil {
		p := workerpool.New(cfg.poolConfig)
		if err := p.Start(); err != nil {
			panic(fmt.Sprintf("taskmanager: starting default pool: %v", err))
		}
		m.pool = p
		m.ownedPool = p
	}
	return m
}

// Start registers t and submits it to the pool, pinned to cpu unless cpu is NoCPU.
//
// It fails with ErrAlreadyStarted if t is running or finished, and with
// ErrPoolExhausted if the pool refuses the work item; in that case t is
// unregistered, no event is published and t is handed back Idle. A task cancelled
// before it was started is accepted and reported Started then Cancelled without
// running its body.
func (m *Manager) Start(t *Task, cpu int) error {
	if t == nil {
		panic("taskmanager: Start called with nil Task")
	}
	if err := t.claim("start"); err != nil {
		return err
	}
	m.register(t)

	if err := m.pool.Submit(func() { m.dispatch(t) }, cpu); err != nil {
		m.unregister(t)
		t.unclaim()
		m.log.WithFields(logrus.Fields{
			"taskID": t.ID(),
			"task":   t.Name(),
			"cpu":    cpu,
			"error":  err.Error(),
		}).Warn("Task submission rejected")
		return taskerrors.NewSubmissionRejectedError(cpu, fmt.Errorf("%w: %w", ErrPoolExhausted, err)).
			ForTask(t.ID(), t.Name())
	}
	return nil
}

// StartInline runs t to completion on the calling goroutine, publishing the same
// events as Start.
func (m *Manager) StartInline(t *Task) error {
	if t == nil {
		panic("taskmanager: StartInline called with nil Task")
	}
	if err := t.claim("startInline"); err != nil {
		return err
	}
	m.register(t)
	m.dispatch(t)
	return nil
}

// CancelAll requests cancellation of every registered task. It does not wait.
func (m *Manager) CancelAll() {
	for _, t := range m.Snapshot() {
		t.Cancel()
	}
}

// JoinAll waits until the pool is idle. When the pool is shared this includes work
// that has nothing to do with this manager; see JoinAllTasks.
func (m *Manager) JoinAll() {
	m.pool.JoinAll()
}

// JoinAllTasks waits until this manager's registry is empty, i.e. every started
// task has published its terminal event. Do not call it from a task body or from
// an observer running on a task's goroutine.
func (m *Manager) JoinAllTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.tasks) > 0 {
		m.drained.Wait()
	}
}

// Snapshot returns the registered tasks in start order.
func (m *Manager) Snapshot() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Task(nil), m.tasks...)
}

// Count returns the number of registered tasks.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Subscribe adds o to the manager's notifier.
func (m *Manager) Subscribe(o Observer) bool {
	return m.nc.Subscribe(o)
}

// Unsubscribe removes o from the manager's notifier.
func (m *Manager) Unsubscribe(o Observer) bool {
	return m.nc.Unsubscribe(o)
}

// Close shuts down the pool created by NewManager, letting queued tasks finish.
// It does nothing for a pool supplied with WithPool.
func (m *Manager) Close() error {
	if m.ownedPool == nil {
		return nil
	}
	return m.ownedPool.Shutdown(m.shutdownTimeout)
}

func (m *Manager) register(t *Task) {
	m.mu.Lock()
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()
}

func (m *Manager) unregister(t *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.tasks {
		if existing == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	if len(m.tasks) == 0 {
		m.drained.Broadcast()
	}
}
