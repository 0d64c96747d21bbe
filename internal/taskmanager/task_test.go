package taskmanager

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	taskerrors "github.com/maxkimambo/taskman/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*Task) error { return nil }

func TestNewTask(t *testing.T) {
	a := NewTaskFunc("a", noop)
	b := NewTaskFunc("b", noop)

	assert.Equal(t, "a", a.Name())
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, StateIdle, a.State())
	assert.Equal(t, OutcomeNone, a.Outcome())
	assert.False(t, a.IsCancelled())
	assert.Zero(t, a.Progress())
	assert.NoError(t, a.Context().Err())

	assert.Panics(t, func() { NewTask("nil", nil) })
}

func TestTask_SetProgressClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{-0.1, 0},
		{1.7, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}

	task := NewTaskFunc("clamp", noop)
	for _, tt := range tests {
		task.SetProgress(tt.in)
		assert.Equal(t, tt.want, task.Progress(), "SetProgress(%v)", tt.in)
	}
}

func TestTask_PostWithoutManager(t *testing.T) {
	task := NewTaskFunc("detached", noop)
	assert.False(t, task.Post("hello"))
}

func TestTask_CancelIdle(t *testing.T) {
	task := NewTaskFunc("idle", noop)

	task.Cancel()
	task.Cancel()

	assert.Equal(t, StateCancelling, task.State())
	assert.True(t, task.IsCancelled())
	assert.ErrorIs(t, task.Context().Err(), context.Canceled)
}

func TestTask_CancelledIdleTaskStartsAsCancelled(t *testing.T) {
	m, rec := newTestManager(t)

	var ran atomic.Bool
	body := func(*Task) error {
		ran.Store(true)
		return nil
	}

	inline := NewTaskFunc("cancelled-inline", body)
	inline.Cancel()
	require.NoError(t, m.StartInline(inline))
	assert.Equal(t, []EventKind{EventStarted, EventCancelled}, kinds(rec.forTask(inline)))
	assert.Equal(t, StateFinished, inline.State())
	assert.Equal(t, OutcomeCancelled, inline.Outcome())
	assert.ErrorIs(t, m.StartInline(inline), ErrAlreadyStarted)

	pooled := NewTaskFunc("cancelled-pooled", body)
	pooled.Cancel()
	require.NoError(t, m.Start(pooled, NoCPU))
	assert.Equal(t, EventCancelled, waitForTerminal(t, rec, pooled).Kind)
	assert.Equal(t, []EventKind{EventStarted, EventCancelled}, kinds(rec.forTask(pooled)))
	assert.Equal(t, OutcomeCancelled, pooled.Outcome())

	assert.False(t, ran.Load(), "a task cancelled before starting never runs its body")

	require.NoError(t, inline.Reset())
	require.NoError(t, m.StartInline(inline))
	assert.Equal(t, OutcomeCompleted, inline.Outcome())
	assert.True(t, ran.Load())
}

func TestTask_CancelFinishedHasNoEffect(t *testing.T) {
	m, _ := newTestManager(t)
	task := NewTaskFunc("done", noop)
	require.NoError(t, m.StartInline(task))

	task.Cancel()
	assert.Equal(t, StateFinished, task.State())
	assert.False(t, task.IsCancelled())
	assert.Equal(t, OutcomeCompleted, task.Outcome())
}

func TestTask_Sleep(t *testing.T) {
	task := NewTaskFunc("sleeper", noop)

	start := time.Now()
	assert.False(t, task.Sleep(10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		task.Cancel()
	}()
	start = time.Now()
	assert.True(t, task.Sleep(5*time.Second))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTask_ResetWhileRunningFails(t *testing.T) {
	m, rec := newTestManager(t)

	release := make(chan struct{})
	task := NewTaskFunc("busy", func(*Task) error {
		<-release
		return nil
	})
	require.NoError(t, m.Start(task, NoCPU))

	err := task.Reset()
	assert.ErrorIs(t, err, ErrInvalidState)
	category, ok := taskerrors.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, taskerrors.ErrorCategoryInvalidState, category)

	close(release)
	waitForTerminal(t, rec, task)
}

func TestTask_ResetAfterFinishAllowsRestart(t *testing.T) {
	m, rec := newTestManager(t, WithProgressInterval(0))

	runs := 0
	task := NewTaskFunc("again", func(t *Task) error {
		runs++
		t.SetProgress(1)
		return errors.New("first run fails")
	})
	require.NoError(t, m.StartInline(task))
	assert.Equal(t, OutcomeFailed, task.Outcome())
	assert.EqualError(t, task.Err(), "first run fails")

	require.NoError(t, task.Reset())
	assert.Equal(t, StateIdle, task.State())
	assert.Equal(t, OutcomeNone, task.Outcome())
	assert.NoError(t, task.Err())
	assert.Zero(t, task.Progress())
	assert.False(t, task.IsCancelled())

	require.NoError(t, m.StartInline(task))
	assert.Equal(t, 2, runs)
	assert.Equal(t, []EventKind{
		EventStarted, EventProgress, EventFailed,
		EventStarted, EventProgress, EventFailed,
	}, kinds(rec.forTask(task)))
}

func TestTask_ResetFromTerminalObserverFails(t *testing.T) {
	m, rec := newTestManager(t)

	resetErrs := make(chan error, 2)
	m.Subscribe(NewObserver(func(e Event) {
		if e.Kind.IsTerminal() {
			resetErrs <- e.Task.Reset()
		}
	}))

	inline := NewTaskFunc("inline", noop)
	require.NoError(t, m.StartInline(inline))
	assert.ErrorIs(t, <-resetErrs, ErrInvalidState)
	require.NoError(t, inline.Reset(), "ownership ends once the terminal event is delivered")

	pooled := NewTaskFunc("pooled", noop)
	require.NoError(t, m.Start(pooled, NoCPU))
	m.JoinAll()
	assert.ErrorIs(t, <-resetErrs, ErrInvalidState)
	require.NoError(t, pooled.Reset())

	// A restart after Reset never overtakes the previous terminal event.
	require.NoError(t, m.Start(pooled, NoCPU))
	m.JoinAll()
	<-resetErrs
	assert.Equal(t, []EventKind{EventStarted, EventFinished, EventStarted, EventFinished}, kinds(rec.forTask(pooled)))
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "Cancelling", StateCancelling.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "cancelled", OutcomeCancelled.String())
	assert.Equal(t, "failed", EventFailed.String())
	assert.True(t, EventFailed.IsTerminal())
	assert.False(t, EventProgress.IsTerminal())
}
