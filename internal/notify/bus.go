// Package notify is a synchronous publish/subscribe bus.
//
// Observers are identified by interface equality, so they must be comparable;
// pointer receivers are the usual choice. NewFunc wraps a plain function.
package notify

import (
	"fmt"
	"sync"
	"sync/atomic"

	taskerrors "github.com/maxkimambo/taskman/internal/errors"
	"github.com/maxkimambo/taskman/internal/logger"
	"github.com/sourcegraph/conc/panics"
)

// Observer receives published values.
type Observer[E any] interface {
	Notify(E)
}

// Func adapts a function to Observer. Keep the returned pointer to unsubscribe.
type Func[E any] struct {
	fn func(E)
}

// NewFunc wraps fn as an Observer.
func NewFunc[E any](fn func(E)) *Func[E] {
	return &Func[E]{fn: fn}
}

func (f *Func[E]) Notify(e E) {
	f.fn(e)
}

// Bus fans values out to its observers in subscription order.
type Bus[E any] struct {
	mu        sync.RWMutex
	observers []Observer[E]
	failures  atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus[E any]() *Bus[E] {
	return &Bus[E]{}
}

// Subscribe adds o. It returns false if o is already subscribed.
func (b *Bus[E]) Subscribe(o Observer[E]) bool {
	if o == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.observers {
		if existing == o {
			return false
		}
	}
	b.observers = append(b.observers, o)
	return true
}

// Unsubscribe removes o. It returns false if o was not subscribed.
// Once it returns, publications that start afterwards do not reach o.
func (b *Bus[E]) Unsubscribe(o Observer[E]) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.observers {
		if existing == o {
			// Copy so in-flight Publish snapshots keep their view.
			next := make([]Observer[E], 0, len(b.observers)-1)
			next = append(next, b.observers[:i]...)
			b.observers = append(next, b.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers e to every observer on the calling goroutine. No bus lock is
// held while observers run, so they may subscribe, unsubscribe or publish.
// A panicking observer is logged and skipped.
func (b *Bus[E]) Publish(e E) {
	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()

	for _, o := range observers {
		b.deliver(o, e)
	}
}

func (b *Bus[E]) deliver(o Observer[E], e E) {
	rec := panics.Try(func() { o.Notify(e) })
	if rec == nil {
		return
	}
	b.failures.Add(1)

	observer := fmt.Sprintf("%T", o)
	err := taskerrors.NewTaskError(taskerrors.ErrorCategoryObserverFailure, "publish", "observer panicked").
		WithContext("observer", observer).
		WithCause(taskerrors.FromRecovered(rec))
	logger.Op.WithFields(map[string]interface{}{
		"observer": observer,
		"error":    err.Error(),
	}).Error("Observer panicked during dispatch")
}

// Count returns the number of subscribed observers.
func (b *Bus[E]) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Failures returns how many observer calls have panicked.
func (b *Bus[E]) Failures() uint64 {
	return b.failures.Load()
}

// Clear removes all observers.
func (b *Bus[E]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = nil
}
