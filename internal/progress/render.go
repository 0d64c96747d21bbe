package progress

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/maxkimambo/taskman/internal/taskmanager"
	"golang.org/x/term"
)

// Tone selects the color and prefix of a summary box.
type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneWarning
	ToneError
)

const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"
)

var tones = map[Tone]struct {
	style  lipgloss.Style
	prefix string
}{
	ToneInfo:    {lipgloss.NewStyle().Foreground(lipgloss.Color("86")), "ℹ"},
	ToneSuccess: {lipgloss.NewStyle().Foreground(lipgloss.Color("42")), "✓"},
	ToneWarning: {lipgloss.NewStyle().Foreground(lipgloss.Color("178")), "⚠"},
	ToneError:   {lipgloss.NewStyle().Foreground(lipgloss.Color("196")), "✗"},
}

// Box renders a titled, bordered message.
func Box(tone Tone, title string, lines ...string) string {
	t, ok := tones[tone]
	if !ok {
		t = tones[ToneInfo]
	}

	contentWidth := terminalWidth() - 14
	var wrapped []string
	for _, line := range append([]string{title}, lines...) {
		if runewidth.StringWidth(line) <= contentWidth {
			wrapped = append(wrapped, line)
		} else {
			wrapped = append(wrapped, wrapText(line, contentWidth)...)
		}
	}

	boxWidth := 6 + runewidth.StringWidth(t.prefix)
	for _, line := range wrapped {
		if w := runewidth.StringWidth(line) + 6 + runewidth.StringWidth(t.prefix); w > boxWidth {
			boxWidth = w
		}
	}

	var sb strings.Builder
	sb.WriteString(t.style.Render(topLeft+strings.Repeat(horizontal, boxWidth-2)+topRight) + "\n")

	// The title carries the prefix; following lines are indented to match.
	indent := strings.Repeat(" ", runewidth.StringWidth(t.prefix)+1)
	for i, line := range wrapped {
		lead := indent
		if i == 0 {
			lead = t.style.Bold(true).Render(t.prefix) + " "
		}
		padding := boxWidth - 4 - runewidth.StringWidth(indent) - runewidth.StringWidth(line)
		if padding < 0 {
			padding = 0
		}
		sb.WriteString(fmt.Sprintf("%s %s%s%s %s\n",
			t.style.Render(vertical), lead, line, strings.Repeat(" ", padding), t.style.Render(vertical)))
	}

	sb.WriteString(t.style.Render(bottomLeft + strings.Repeat(horizontal, boxWidth-2) + bottomRight))
	return sb.String()
}

// Table formats rows under headers with box-drawing borders.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow appends a row; rows with the wrong number of cells are ignored.
func (t *Table) AddRow(cells ...string) {
	if len(cells) != len(t.headers) {
		return
	}
	t.rows = append(t.rows, cells)
	for i, cell := range cells {
		if w := runewidth.StringWidth(cell); w > t.widths[i] {
			t.widths[i] = w
		}
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) String() string {
	var sb strings.Builder

	t.writeBorder(&sb, "┌", "┬", "┐")
	t.writeRow(&sb, t.headers)
	t.writeBorder(&sb, "├", "┼", "┤")
	for _, row := range t.rows {
		t.writeRow(&sb, row)
	}
	t.writeBorder(&sb, "└", "┴", "┘")

	return sb.String()
}

func (t *Table) writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("│")
	for i, cell := range cells {
		sb.WriteString(" " + runewidth.FillRight(cell, t.widths[i]) + " │")
	}
	sb.WriteString("\n")
}

func (t *Table) writeBorder(sb *strings.Builder, left, middle, right string) {
	sb.WriteString(left)
	for i, w := range t.widths {
		sb.WriteString(strings.Repeat("─", w+2))
		if i < len(t.widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right + "\n")
}

// TaskTable renders one row per task in s.
func TaskTable(s Summary) *Table {
	table := NewTable("TASK", "STATUS", "PROGRESS", "DURATION", "ERROR")
	for _, tp := range s.Tasks {
		errText := ""
		if tp.Err != nil {
			errText = runewidth.Truncate(tp.Err.Error(), 48, "…")
		}
		table.AddRow(
			tp.Name,
			string(tp.Status),
			fmt.Sprintf("%.0f%%", tp.Progress*100),
			FormatDuration(tp.Duration),
			errText,
		)
	}
	return table
}

// SummaryBox renders the outcome counts of s, colored by the worst outcome.
func SummaryBox(s Summary) string {
	tone := ToneSuccess
	title := fmt.Sprintf("%d tasks completed", s.CompletedTasks)
	switch {
	case s.FailedTasks > 0:
		tone = ToneError
		title = fmt.Sprintf("%d of %d tasks failed", s.FailedTasks, s.TotalTasks)
	case s.CancelledTasks > 0:
		tone = ToneWarning
		title = fmt.Sprintf("%d of %d tasks cancelled", s.CancelledTasks, s.TotalTasks)
	}

	return Box(tone, title,
		fmt.Sprintf("Completed: %d  Failed: %d  Cancelled: %d", s.CompletedTasks, s.FailedTasks, s.CancelledTasks),
		fmt.Sprintf("Progress events: %d  Custom events: %d", s.Events[taskmanager.EventProgress], s.Events[taskmanager.EventCustom]),
		fmt.Sprintf("Elapsed: %s", FormatDuration(s.ElapsedTime)),
	)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if runewidth.StringWidth(current)+runewidth.StringWidth(word)+1 <= maxWidth {
			current += " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
