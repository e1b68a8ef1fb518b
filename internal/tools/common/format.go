package common

import (
	"fmt"
	"strings"

	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// FormatTask renders a task as human-readable text for tool output.
func FormatTask(task *ticktick.Task) string {
	result := fmt.Sprintf("Task: %s\n", task.Title)
	result += fmt.Sprintf("ID: %s\n", task.ID)
	result += fmt.Sprintf("Project ID: %s\n", task.ProjectID)
	result += fmt.Sprintf("Priority: %s\n", ticktick.PriorityName(task.Priority))
	result += fmt.Sprintf("Status: %s\n", ticktick.StatusName(task.Status))
	if task.StartDate != "" {
		result += fmt.Sprintf("Start Date: %s\n", task.StartDate)
	}
	if task.DueDate != "" {
		result += fmt.Sprintf("Due Date: %s\n", task.DueDate)
	}
	if task.IsAllDay {
		result += "All Day: yes\n"
	}
	if task.TimeZone != "" {
		result += fmt.Sprintf("Time Zone: %s\n", task.TimeZone)
	}
	if task.RepeatFlag != "" {
		result += fmt.Sprintf("Repeat: %s\n", task.RepeatFlag)
	}
	if len(task.Tags) > 0 {
		result += fmt.Sprintf("Tags: %s\n", strings.Join(task.Tags, ", "))
	}
	if len(task.Reminders) > 0 {
		result += fmt.Sprintf("Reminders: %s\n", strings.Join(task.Reminders, ", "))
	}
	if task.CompletedTime != "" {
		result += fmt.Sprintf("Completed: %s\n", task.CompletedTime)
	}
	if task.CreatedTime != "" {
		result += fmt.Sprintf("Created: %s\n", task.CreatedTime)
	}
	if task.ModifiedTime != "" {
		result += fmt.Sprintf("Modified: %s\n", task.ModifiedTime)
	}
	if task.Content != "" {
		result += fmt.Sprintf("\nContent:\n%s\n", task.Content)
	}
	if task.Desc != "" {
		result += fmt.Sprintf("\nDescription:\n%s\n", task.Desc)
	}
	if len(task.Items) > 0 {
		result += fmt.Sprintf("\nChecklist (%d item(s)):\n", len(task.Items))
		for i, item := range task.Items {
			box := "[ ]"
			if item.Status == ticktick.ChecklistItemCompleted {
				box = "[x]"
			}
			result += fmt.Sprintf("%d. %s %s\n", i+1, box, item.Title)
		}
	}
	return result
}

// FormatProject renders a project as human-readable text for tool output.
func FormatProject(project *ticktick.Project) string {
	result := fmt.Sprintf("Project: %s\n", project.Name)
	result += fmt.Sprintf("ID: %s\n", project.ID)
	if project.Color != "" {
		result += fmt.Sprintf("Color: %s\n", project.Color)
	}
	if project.ViewMode != "" {
		result += fmt.Sprintf("View Mode: %s\n", project.ViewMode)
	}
	if project.Kind != "" {
		result += fmt.Sprintf("Kind: %s\n", project.Kind)
	}
	if project.Permission != "" {
		result += fmt.Sprintf("Permission: %s\n", project.Permission)
	}
	if project.Closed {
		result += "Closed: yes\n"
	}
	return result
}

// FormatWarnings renders verification warnings as an indented list, or an
// empty string when there are none.
func FormatWarnings(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	result := "\nWarnings:\n"
	for _, w := range warnings {
		result += fmt.Sprintf("- %s\n", w)
	}
	return result
}

// Truncate shortens s to at most n runes, appending "..." when truncated.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
