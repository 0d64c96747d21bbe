package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/maxkimambo/taskman/internal/taskmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestCalculateETA(t *testing.T) {
	assert.Equal(t, 30*time.Second, CalculateETA(2, 5, 20*time.Second))
	assert.Zero(t, CalculateETA(0, 5, time.Minute))
	assert.Zero(t, CalculateETA(5, 5, time.Minute))
	assert.Zero(t, CalculateETA(1, 0, time.Minute))
}

func TestReporter_AggregatesLiveManager(t *testing.T) {
	m := taskmanager.NewManager(taskmanager.WithProgressInterval(0))
	defer func() { require.NoError(t, m.Close()) }()

	r := NewReporter(3, time.Hour)
	require.True(t, m.Subscribe(r))

	ok := taskmanager.NewTaskFunc("ok", func(t *taskmanager.Task) error {
		t.SetProgress(0.5)
		t.Post("note")
		t.SetProgress(1)
		return nil
	})
	bad := taskmanager.NewTaskFunc("bad", func(*taskmanager.Task) error { return errors.New("boom") })
	stopped := taskmanager.NewTaskFunc("stopped", func(*taskmanager.Task) error { return nil })
	stopped.Cancel()

	require.NoError(t, m.StartInline(ok))
	require.NoError(t, m.StartInline(bad))
	require.NoError(t, m.StartInline(stopped))

	s := r.Summary()
	assert.Equal(t, 3, s.TotalTasks)
	assert.Equal(t, 1, s.CompletedTasks)
	assert.Equal(t, 1, s.FailedTasks)
	assert.Equal(t, 1, s.CancelledTasks)
	assert.Equal(t, 0, s.RunningTasks)
	assert.Equal(t, 3, s.Events[taskmanager.EventStarted])
	assert.Equal(t, 2, s.Events[taskmanager.EventProgress])
	assert.Equal(t, 1, s.Events[taskmanager.EventCustom])
	assert.Equal(t, 1, s.Events[taskmanager.EventCancelled])

	require.Len(t, s.Tasks, 3)
	assert.Equal(t, "ok", s.Tasks[0].Name)
	assert.Equal(t, 1.0, s.Tasks[0].Progress)
	assert.Equal(t, 1, s.Tasks[0].Posts)
	assert.Equal(t, "stopped", s.Tasks[2].Name)
	assert.Equal(t, StatusCancelled, s.Tasks[2].Status)

	failures := r.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "bad", failures[0].Name)
	assert.EqualError(t, failures[0].Err, "boom")
}

func TestReporter_Report(t *testing.T) {
	r := NewReporter(4, time.Hour)
	now := time.Now()

	r.Notify(taskmanager.Event{Kind: taskmanager.EventStarted, TaskID: "1", TaskName: "alpha", Time: now})
	r.Notify(taskmanager.Event{Kind: taskmanager.EventProgress, TaskID: "1", TaskName: "alpha", Time: now, Progress: 0.4})
	r.Notify(taskmanager.Event{Kind: taskmanager.EventStarted, TaskID: "2", TaskName: "beta", Time: now})
	r.Notify(taskmanager.Event{Kind: taskmanager.EventCancelled, TaskID: "2", TaskName: "beta", Time: now})

	report := r.Report()
	assert.Contains(t, report, "Progress: 1/4 tasks done (25.0%)")
	assert.Contains(t, report, "0 completed, 0 failed, 1 cancelled")
	assert.Contains(t, report, "alpha: 40%")
	assert.NotContains(t, report, "beta:")
	assert.False(t, r.ShouldReport())
}

func TestReporter_RestartResetsTask(t *testing.T) {
	r := NewReporter(0, 0)
	now := time.Now()

	r.Notify(taskmanager.Event{Kind: taskmanager.EventStarted, TaskID: "1", TaskName: "again", Time: now})
	r.Notify(taskmanager.Event{Kind: taskmanager.EventFailed, TaskID: "1", TaskName: "again", Time: now, Err: errors.New("x")})
	r.Notify(taskmanager.Event{Kind: taskmanager.EventStarted, TaskID: "1", TaskName: "again", Time: now})

	s := r.Summary()
	assert.Equal(t, 1, s.TotalTasks)
	assert.Equal(t, 1, s.RunningTasks)
	assert.NoError(t, s.Tasks[0].Err)
	assert.True(t, r.ShouldReport())
}
