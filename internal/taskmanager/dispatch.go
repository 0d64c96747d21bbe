package taskmanager

import (
	"context"
	"errors"
	"fmt"

	taskerrors "github.com/maxkimambo/taskman/internal/errors"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
)

// dispatch is the work item for one task. It runs on a pool worker, or on the
// caller for StartInline.
func (m *Manager) dispatch(t *Task) {
	m.publish(newEvent(EventStarted, t))

	var err error
	if t.beginRun(m) {
		m.taskLog(t).Debug("Task running")
		err = taskerrors.Try(func() error { return t.runner.Run(t) })
		t.endRun()
	}

	outcome, err := classify(t, err)
	t.complete(outcome, err)
	m.unregister(t)

	terminal := newEvent(terminalKind(outcome), t)
	terminal.Err = err
	m.logOutcome(t, outcome, err)
	m.publish(terminal)

	// Ownership ends only after delivery, so a Reset and restart cannot publish
	// a new Started ahead of this terminal event.
	t.release()
}

// classify decides the terminal outcome. A body that stops with ErrCancelled or
// context.Canceled after a cancel request counts as cancelled, not failed.
func classify(t *Task, err error) (Outcome, error) {
	switch {
	case err != nil && t.IsCancelled() && (errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)):
		return OutcomeCancelled, nil
	case err != nil:
		return OutcomeFailed, err
	case t.IsCancelled():
		return OutcomeCancelled, nil
	default:
		return OutcomeCompleted, nil
	}
}

func terminalKind(o Outcome) EventKind {
	switch o {
	case OutcomeCancelled:
		return EventCancelled
	case OutcomeFailed:
		return EventFailed
	default:
		return EventFinished
	}
}

func (m *Manager) taskProgress(t *Task, p float64) {
	if !m.throttle.allow() {
		return
	}
	e := newEvent(EventProgress, t)
	e.Progress = p
	m.publish(e)
}

func (m *Manager) taskCustom(t *Task, payload interface{}) {
	e := newEvent(EventCustom, t)
	e.Payload = payload
	m.publish(e)
}

// publish must be called with no manager lock held.
func (m *Manager) publish(e Event) {
	if rec := panics.Try(func() { m.nc.Publish(e) }); rec != nil {
		m.taskLog(e.Task).WithFields(logrus.Fields{
			"event": e.Kind.String(),
			"panic": fmt.Sprint(rec.Value),
		}).Error("Notifier panicked while publishing")
	}
}

func (m *Manager) taskLog(t *Task) *logrus.Entry {
	return m.log.WithFields(logrus.Fields{
		"taskID": t.ID(),
		"task":   t.Name(),
	})
}

func (m *Manager) logOutcome(t *Task, outcome Outcome, err error) {
	entry := m.taskLog(t).WithField("outcome", outcome.String())
	if err != nil {
		entry.WithField("error", err.Error()).Warn("Task failed")
		return
	}
	entry.Debug("Task finished")
}
