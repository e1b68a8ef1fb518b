package common

import (
	"strings"
	"testing"

	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

func TestFormatTask(t *testing.T) {
	task := &ticktick.Task{
		ID:        "task-1",
		ProjectID: "proj-1",
		Title:     "Write report #work",
		Content:   "Quarterly numbers",
		Priority:  ticktick.PriorityHigh,
		Status:    ticktick.StatusOpen,
		DueDate:   "2026-09-01T09:00:00.000+0000",
		Tags:      []string{"work", "urgent"},
		Items: []ticktick.ChecklistItem{
			{Title: "Collect data", Status: ticktick.ChecklistItemCompleted},
			{Title: "Draft summary"},
		},
	}

	out := FormatTask(task)

	for _, want := range []string{
		"Task: Write report #work",
		"ID: task-1",
		"Project ID: proj-1",
		"Priority: high",
		"Status: open",
		"Due Date: 2026-09-01T09:00:00.000+0000",
		"Tags: work, urgent",
		"Content:\nQuarterly numbers",
		"Checklist (2 item(s)):",
		"1. [x] Collect data",
		"2. [ ] Draft summary",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatTask() missing %q in:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Start Date:") {
		t.Errorf("FormatTask() should omit empty start date:\n%s", out)
	}
}

func TestFormatProject(t *testing.T) {
	project := &ticktick.Project{
		ID:       "proj-1",
		Name:     "Inbox",
		Color:    "#F18181",
		ViewMode: ticktick.ViewModeKanban,
	}

	out := FormatProject(project)

	for _, want := range []string{
		"Project: Inbox",
		"ID: proj-1",
		"Color: #F18181",
		"View Mode: kanban",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatProject() missing %q in:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Closed:") {
		t.Errorf("FormatProject() should omit closed for open projects:\n%s", out)
	}
}

func TestFormatWarnings(t *testing.T) {
	if got := FormatWarnings(nil); got != "" {
		t.Errorf("FormatWarnings(nil) = %q, want empty", got)
	}

	out := FormatWarnings([]string{"priority is 0, expected 5"})
	if !strings.Contains(out, "Warnings:") || !strings.Contains(out, "- priority is 0, expected 5") {
		t.Errorf("FormatWarnings() = %q", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 30, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a very long task title that keeps going", 10, "a very lon..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got)
		}
	}
}
