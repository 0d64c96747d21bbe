package taskmanager

import (
	"fmt"
	"time"

	"github.com/maxkimambo/taskman/internal/notify"
)

// EventKind tags a lifecycle Event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventCancelled
	EventFinished
	EventFailed
	// EventCustom carries a payload the task body posted with Task.Post.
	EventCustom
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventCancelled:
		return "cancelled"
	case EventFinished:
		return "finished"
	case EventFailed:
		return "failed"
	case EventCustom:
		return "custom"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// IsTerminal reports whether k ends a task's event sequence.
func (k EventKind) IsTerminal() bool {
	return k == EventCancelled || k == EventFinished || k == EventFailed
}

// Event describes one lifecycle transition of a task.
type Event struct {
	Kind     EventKind
	Task     *Task
	TaskID   string
	TaskName string
	Time     time.Time

	Progress float64     // EventProgress
	Err      error       // EventFailed
	Payload  interface{} // EventCustom
}

func newEvent(kind EventKind, t *Task) Event {
	return Event{
		Kind:     kind,
		Task:     t,
		TaskID:   t.ID(),
		TaskName: t.Name(),
		Time:     time.Now(),
	}
}

func (e Event) String() string {
	switch e.Kind {
	case EventProgress:
		return fmt.Sprintf("%s %s(%.2f)", e.TaskName, e.Kind, e.Progress)
	case EventFailed:
		return fmt.Sprintf("%s %s(%v)", e.TaskName, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s", e.TaskName, e.Kind)
	}
}

// Observer receives lifecycle events. Implementations must be comparable
// (typically a pointer) so they can be unsubscribed.
type Observer = notify.Observer[Event]

// NewObserver wraps fn as an Observer.
func NewObserver(fn func(Event)) Observer {
	return notify.NewFunc(fn)
}

// KindFilter forwards only events of selected kinds.
type KindFilter struct {
	next Observer
	mask uint64
}

// Only returns an observer that forwards to next the events whose kind is in kinds.
// Subscribe and unsubscribe the returned filter, not next.
func Only(next Observer, kinds ...EventKind) *KindFilter {
	f := &KindFilter{next: next}
	for _, k := range kinds {
		f.mask |= 1 << uint(k)
	}
	return f
}

func (f *KindFilter) Notify(e Event) {
	if f.mask&(1<<uint(e.Kind)) != 0 {
		f.next.Notify(e)
	}
}
