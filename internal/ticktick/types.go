package ticktick

import (
	"fmt"
	"strings"
	"time"
)

// Priority values as used by the TickTick Open API.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 3
	PriorityHigh   = 5
)

// Task status values as used by the TickTick Open API.
const (
	StatusOpen      = 0
	StatusCompleted = 2

	// ChecklistItemCompleted is the completed status for checklist items,
	// which use 1 rather than the task value 2.
	ChecklistItemCompleted = 1
)

// Project view modes accepted by the TickTick Open API.
const (
	ViewModeList     = "list"
	ViewModeKanban   = "kanban"
	ViewModeTimeline = "timeline"
)

// Defaults applied when creating a project without explicit values.
const (
	DefaultProjectColor = "#F18181"
	DefaultProjectKind  = "TASK"
)

// Task represents a TickTick task as returned by the Open API.
// Date fields are kept as strings because TickTick emits timestamps in a
// non-RFC3339 zone format ("+0000" without a colon); use ParseTime to
// interpret them.
type Task struct {
	ID            string          `json:"id,omitempty"`
	ProjectID     string          `json:"projectId,omitempty"`
	Title         string          `json:"title,omitempty"`
	Content       string          `json:"content,omitempty"`
	Desc          string          `json:"desc,omitempty"`
	IsAllDay      bool            `json:"isAllDay,omitempty"`
	StartDate     string          `json:"startDate,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
	TimeZone      string          `json:"timeZone,omitempty"`
	Reminders     []string        `json:"reminders,omitempty"`
	RepeatFlag    string          `json:"repeatFlag,omitempty"`
	Priority      int             `json:"priority,omitempty"`
	Status        int             `json:"status,omitempty"`
	CompletedTime string          `json:"completedTime,omitempty"`
	SortOrder     int64           `json:"sortOrder,omitempty"`
	Items         []ChecklistItem `json:"items,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	CreatedTime   string          `json:"createdTime,omitempty"`
	ModifiedTime  string          `json:"modifiedTime,omitempty"`
}

// ChecklistItem represents a subtask within a task.
type ChecklistItem struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title,omitempty"`
	Status        int    `json:"status,omitempty"`
	CompletedTime string `json:"completedTime,omitempty"`
	IsAllDay      bool   `json:"isAllDay,omitempty"`
	SortOrder     int64  `json:"sortOrder,omitempty"`
	StartDate     string `json:"startDate,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
}

// Project represents a TickTick project.
type Project struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	SortOrder  int64  `json:"sortOrder,omitempty"`
	Closed     bool   `json:"closed,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	ViewMode   string `json:"viewMode,omitempty"`
	Permission string `json:"permission,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// Column represents a kanban column within a project.
type Column struct {
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Name      string `json:"name,omitempty"`
	SortOrder int64  `json:"sortOrder,omitempty"`
}

// ProjectData is the response of GET /project/{id}/data: the project together
// with its current open tasks and columns. The task listing in this payload
// is the authoritative source for deletion verification.
type ProjectData struct {
	Project Project  `json:"project"`
	Tasks   []Task   `json:"tasks"`
	Columns []Column `json:"columns,omitempty"`
}

var priorityNames = map[int]string{
	PriorityNone:   "none",
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
}

// PriorityName returns the human-readable name for a wire priority value.
// Unknown values render as "none".
func PriorityName(p int) string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "none"
}

// ValidPriority reports whether p is one of the priority values the API accepts.
func ValidPriority(p int) bool {
	_, ok := priorityNames[p]
	return ok
}

// StatusName returns the human-readable name for a wire status value.
func StatusName(s int) string {
	if s == StatusCompleted {
		return "completed"
	}
	return "open"
}

// ValidViewMode reports whether mode is an accepted project view mode.
func ValidViewMode(mode string) bool {
	switch mode {
	case ViewModeList, ViewModeKanban, ViewModeTimeline:
		return true
	}
	return false
}

// timeLayouts covers the timestamp formats TickTick emits and accepts.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02",
}

// ParseTime parses a TickTick timestamp string. An empty string yields the
// zero time without error.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// LastActivity returns the most recent known activity time for a task:
// modified time, falling back to created time, then start date. The zero
// time is returned when none of them is set or parseable.
func (t *Task) LastActivity() time.Time {
	for _, s := range []string{t.ModifiedTime, t.CreatedTime, t.StartDate} {
		if ts, err := ParseTime(s); err == nil && !ts.IsZero() {
			return ts
		}
	}
	return time.Time{}
}

// TaskSpec is the typed specification for creating a task. All optional
// fields default to their zero values; Validate rejects a spec before any
// remote call is attempted.
type TaskSpec struct {
	Title      string
	ProjectID  string
	Content    string
	Desc       string
	StartDate  string
	DueDate    string
	Priority   int
	RepeatFlag string
	Tags       []string
	IsAllDay   bool
	TimeZone   string
	Reminders  []string
	Items      []ChecklistItem
}

// Validate checks the spec for problems that would be rejected remotely.
func (s *TaskSpec) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(s.ProjectID) == "" {
		return &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	if !ValidPriority(s.Priority) {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("must be one of 0 (none), 1 (low), 3 (medium), 5 (high); got %d", s.Priority)}
	}
	if s.RepeatFlag != "" && !strings.HasPrefix(s.RepeatFlag, "RRULE:") {
		return &ValidationError{Field: "repeatFlag", Reason: `must start with "RRULE:" (e.g. "RRULE:FREQ=WEEKLY;INTERVAL=1")`}
	}
	for _, field := range []struct{ name, value string }{
		{"startDate", s.StartDate},
		{"dueDate", s.DueDate},
	} {
		if _, err := ParseTime(field.value); err != nil {
			return &ValidationError{Field: field.name, Reason: "must be an ISO 8601 timestamp (e.g. 2026-01-05T09:00:00+0000)"}
		}
	}
	return nil
}

// Task converts the spec into the wire representation sent to the API.
// Tag rendering into the title is the service layer's job; this conversion
// copies the title verbatim.
func (s *TaskSpec) Task() Task {
	return Task{
		Title:      s.Title,
		ProjectID:  s.ProjectID,
		Content:    s.Content,
		Desc:       s.Desc,
		StartDate:  s.StartDate,
		DueDate:    s.DueDate,
		Priority:   s.Priority,
		RepeatFlag: s.RepeatFlag,
		IsAllDay:   s.IsAllDay,
		TimeZone:   s.TimeZone,
		Reminders:  s.Reminders,
		Items:      s.Items,
	}
}

// TaskPatch is the typed specification for a partial task update. Pointer
// fields distinguish "not supplied" (nil) from "set to zero value". A nil
// Tags slice means the tag set is untouched; an empty non-nil slice clears it.
type TaskPatch struct {
	TaskID     string
	ProjectID  string
	Title      *string
	Content    *string
	Desc       *string
	StartDate  *string
	DueDate    *string
	Priority   *int
	RepeatFlag *string
	Tags       []string
	IsAllDay   *bool
	TimeZone   *string
}

// Validate checks the patch before any remote call is attempted.
func (p *TaskPatch) Validate() error {
	if strings.TrimSpace(p.TaskID) == "" {
		return &ValidationError{Field: "taskId", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.ProjectID) == "" {
		return &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	if p.Priority != nil && !ValidPriority(*p.Priority) {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("must be one of 0 (none), 1 (low), 3 (medium), 5 (high); got %d", *p.Priority)}
	}
	if p.RepeatFlag != nil && *p.RepeatFlag != "" && !strings.HasPrefix(*p.RepeatFlag, "RRULE:") {
		return &ValidationError{Field: "repeatFlag", Reason: `must start with "RRULE:"`}
	}
	if p.StartDate != nil {
		if _, err := ParseTime(*p.StartDate); err != nil {
			return &ValidationError{Field: "startDate", Reason: "must be an ISO 8601 timestamp"}
		}
	}
	if p.DueDate != nil {
		if _, err := ParseTime(*p.DueDate); err != nil {
			return &ValidationError{Field: "dueDate", Reason: "must be an ISO 8601 timestamp"}
		}
	}
	return nil
}
