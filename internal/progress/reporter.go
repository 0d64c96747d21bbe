package progress

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maxkimambo/taskman/internal/taskmanager"
)

// Status of a task as seen through its events
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// TaskProgress tracks one task
type TaskProgress struct {
	ID        string
	Name      string
	Status    Status
	Progress  float64
	Err       error
	StartTime time.Time
	Duration  time.Duration
	Posts     int
}

// Summary is a point-in-time view of everything the reporter has seen
type Summary struct {
	TotalTasks     int
	RunningTasks   int
	CompletedTasks int
	FailedTasks    int
	CancelledTasks int
	ElapsedTime    time.Duration
	EstimatedLeft  time.Duration
	Events         map[taskmanager.EventKind]int
	Tasks          []TaskProgress
}

// Done counts tasks that reached a terminal event.
func (s Summary) Done() int {
	return s.CompletedTasks + s.FailedTasks + s.CancelledTasks
}

// Reporter is a taskmanager observer that aggregates lifecycle events into
// periodic progress reports.
type Reporter struct {
	mu             sync.Mutex
	startTime      time.Time
	lastReportTime time.Time
	reportInterval time.Duration
	expected       int

	tasks  map[string]*TaskProgress
	order  []string
	events map[taskmanager.EventKind]int
}

// NewReporter creates a new progress reporter. expected is the number of tasks
// the caller plans to start and is only used for the ETA; 0 means unknown.
func NewReporter(expected int, interval time.Duration) *Reporter {
	now := time.Now()
	return &Reporter{
		startTime:      now,
		lastReportTime: now,
		reportInterval: interval,
		expected:       expected,
		tasks:          make(map[string]*TaskProgress),
		events:         make(map[taskmanager.EventKind]int),
	}
}

// Notify implements taskmanager.Observer.
func (r *Reporter) Notify(e taskmanager.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[e.Kind]++

	tp, ok := r.tasks[e.TaskID]
	if !ok {
		tp = &TaskProgress{ID: e.TaskID, Name: e.TaskName, Status: StatusRunning, StartTime: e.Time}
		r.tasks[e.TaskID] = tp
		r.order = append(r.order, e.TaskID)
	}

	switch e.Kind {
	case taskmanager.EventStarted:
		// A reset task starts over.
		*tp = TaskProgress{ID: e.TaskID, Name: e.TaskName, Status: StatusRunning, StartTime: e.Time}
	case taskmanager.EventProgress:
		tp.Progress = e.Progress
	case taskmanager.EventCustom:
		tp.Posts++
	case taskmanager.EventFinished:
		tp.Status = StatusCompleted
		tp.Duration = e.Time.Sub(tp.StartTime)
	case taskmanager.EventFailed:
		tp.Status = StatusFailed
		tp.Err = e.Err
		tp.Duration = e.Time.Sub(tp.StartTime)
	case taskmanager.EventCancelled:
		tp.Status = StatusCancelled
		tp.Duration = e.Time.Sub(tp.StartTime)
	}
}

// Summary returns the aggregated state.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		TotalTasks:  len(r.order),
		ElapsedTime: time.Since(r.startTime),
		Events:      make(map[taskmanager.EventKind]int, len(r.events)),
		Tasks:       make([]TaskProgress, 0, len(r.order)),
	}
	for k, n := range r.events {
		s.Events[k] = n
	}
	for _, id := range r.order {
		tp := *r.tasks[id]
		switch tp.Status {
		case StatusRunning:
			s.RunningTasks++
		case StatusCompleted:
			s.CompletedTasks++
		case StatusFailed:
			s.FailedTasks++
		case StatusCancelled:
			s.CancelledTasks++
		}
		s.Tasks = append(s.Tasks, tp)
	}

	total := r.expected
	if total < s.TotalTasks {
		total = s.TotalTasks
	}
	s.EstimatedLeft = CalculateETA(s.Done(), total, s.ElapsedTime)
	return s
}

// ShouldReport returns true if it's time to report progress
func (r *Reporter) ShouldReport() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastReportTime) >= r.reportInterval
}

// Report generates a formatted progress report
func (r *Reporter) Report() string {
	info := r.Summary()

	r.mu.Lock()
	r.lastReportTime = time.Now()
	total := r.expected
	r.mu.Unlock()
	if total < info.TotalTasks {
		total = info.TotalTasks
	}

	var sb strings.Builder

	percentage := 0.0
	if total > 0 {
		percentage = float64(info.Done()) / float64(total) * 100
	}
	sb.WriteString(fmt.Sprintf("Progress: %d/%d tasks done (%.1f%%) | Elapsed: %s",
		info.Done(), total, percentage, FormatDuration(info.ElapsedTime)))
	if info.EstimatedLeft > 0 {
		sb.WriteString(fmt.Sprintf(" | ETA: %s", FormatDuration(info.EstimatedLeft)))
	}

	if info.FailedTasks > 0 || info.CancelledTasks > 0 {
		sb.WriteString(fmt.Sprintf("\n   %d completed, %d failed, %d cancelled",
			info.CompletedTasks, info.FailedTasks, info.CancelledTasks))
	}

	var running []TaskProgress
	for _, tp := range info.Tasks {
		if tp.Status == StatusRunning {
			running = append(running, tp)
		}
	}
	if len(running) > 0 {
		sort.SliceStable(running, func(i, j int) bool { return running[i].Progress > running[j].Progress })
		sb.WriteString("\n   Running:")
		for _, tp := range running {
			sb.WriteString(fmt.Sprintf("\n      %s: %.0f%%", tp.Name, tp.Progress*100))
		}
	}

	return sb.String()
}

// Failures lists failed tasks in start order.
func (r *Reporter) Failures() []TaskProgress {
	var out []TaskProgress
	for _, tp := range r.Summary().Tasks {
		if tp.Status == StatusFailed {
			out = append(out, tp)
		}
	}
	return out
}

// CalculateETA estimates time remaining based on current progress
func CalculateETA(completed, total int, elapsed time.Duration) time.Duration {
	if completed <= 0 || total <= 0 || completed >= total {
		return 0
	}

	averageTimePerTask := elapsed / time.Duration(completed)
	remainingTasks := total - completed
	return averageTimePerTask * time.Duration(remainingTasks)
}

// FormatDuration formats a duration in a user-friendly way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
