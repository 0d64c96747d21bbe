package progress

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maxkimambo/taskman/internal/taskmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	table := NewTable("A", "LONGER")
	table.AddRow("wide-cell", "x")
	table.AddRow("ignored")

	assert.Equal(t, 1, table.Len())
	lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "│ A         │ LONGER │", lines[1])
	assert.Equal(t, "│ wide-cell │ x      │", lines[3])
	assert.Equal(t, "┌───────────┬────────┐", lines[0])
}

func TestTaskTable(t *testing.T) {
	s := Summary{Tasks: []TaskProgress{
		{Name: "ok", Status: StatusCompleted, Progress: 1, Duration: 2 * time.Second},
		{Name: "bad", Status: StatusFailed, Progress: 0.5, Err: errors.New(strings.Repeat("e", 100))},
	}}

	table := TaskTable(s)
	out := table.String()
	assert.Equal(t, 2, table.Len())
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "2s")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, strings.Repeat("e", 60))
}

func TestSummaryBox(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		title   string
	}{
		{"success", Summary{TotalTasks: 2, CompletedTasks: 2}, "2 tasks completed"},
		{"cancelled", Summary{TotalTasks: 3, CompletedTasks: 2, CancelledTasks: 1}, "1 of 3 tasks cancelled"},
		{"failed", Summary{TotalTasks: 3, FailedTasks: 1, CancelledTasks: 1}, "1 of 3 tasks failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.summary.Events = map[taskmanager.EventKind]int{taskmanager.EventProgress: 7}
			out := SummaryBox(tt.summary)
			assert.Contains(t, out, tt.title)
			assert.Contains(t, out, "Progress events: 7")
			assert.Contains(t, out, "╭")
			assert.Contains(t, out, "╯")
		})
	}
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{""}, wrapText("   ", 10))
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
}
