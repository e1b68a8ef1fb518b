package task_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/common"
)

// defaultOldTaskDays is the cutoff used when ticktick_find_old_tasks is
// called without a days argument.
const defaultOldTaskDays = 30

// getService retrieves the TickTick service for the specified account
func getService(account string, sc *server.ServerContext) (*ticktick.Service, error) {
	svc := sc.ServiceForAccount(account)
	if svc == nil {
		return nil, fmt.Errorf(`TickTick credentials not found for account "%s". To authorize access:

1. On the machine running this server, start the interactive setup:
   ticktick-mcp auth --account %s

2. Sign in with your TickTick account in the browser window that opens
3. Approve the requested access (tasks:read tasks:write)

Note: You only need to authorize once. TickTick access tokens do not expire,
so the stored credentials keep working until access is revoked.`, account, account)
	}
	return svc, nil
}

// RegisterTaskTools registers all task-related tools with the MCP server
func RegisterTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerTaskReadTools(s, sc)
	registerTaskWriteTools(s, sc, readOnly)
	return nil
}

func registerTaskReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	// Get task tool
	getTaskTool := mcp.NewTool("ticktick_get_task",
		mcp.WithDescription("Get details about a specific TickTick task"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("ID of the task"),
		),
	)

	s.AddTool(getTaskTool, common.InstrumentedToolHandlerWithOperation(
		"ticktick_get_task", "get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetTask(ctx, request, sc)
		}))

	// List all tasks tool
	listAllTasksTool := mcp.NewTool("ticktick_list_all_tasks",
		mcp.WithDescription("List all open tasks across all projects with their IDs for easy reference"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
	)

	s.AddTool(listAllTasksTool, common.InstrumentedToolHandlerWithOperation(
		"ticktick_list_all_tasks", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAllTasks(ctx, request, sc)
		}))

	// Find old tasks tool
	findOldTasksTool := mcp.NewTool("ticktick_find_old_tasks",
		mcp.WithDescription("Find tasks without activity for a number of days. Useful for identifying stale tasks for cleanup."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithNumber("days",
			mcp.Description("Number of days without activity to consider a task old (default: 30)"),
		),
	)

	s.AddTool(findOldTasksTool, common.InstrumentedToolHandlerWithOperation(
		"ticktick_find_old_tasks", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindOldTasks(ctx, request, sc)
		}))
}

func registerTaskWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	// Create task tool
	createTaskTool := mcp.NewTool("ticktick_create_task",
		mcp.WithDescription("Create a new task in a TickTick project"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title. Hashtags in the title (e.g. 'Pay rent #finance') become tags."),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project to create the task in"),
		),
		mcp.WithString("content",
			mcp.Description("Task content/notes"),
		),
		mcp.WithString("desc",
			mcp.Description("Task description"),
		),
		mcp.WithString("startDate",
			mcp.Description("Start date in ISO format (e.g. '2026-01-05T09:00:00+0000')"),
		),
		mcp.WithString("dueDate",
			mcp.Description("Due date in ISO format (e.g. '2026-01-05T17:00:00+0000')"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority: 0 (none), 1 (low), 3 (medium), 5 (high)"),
		),
		mcp.WithString("repeatFlag",
			mcp.Description("Recurrence rule in RRULE format (e.g. 'RRULE:FREQ=DAILY;INTERVAL=1')"),
		),
		mcp.WithString("tags",
			mcp.Description("Tag name or array of tag names to attach to the task"),
		),
		mcp.WithBoolean("isAllDay",
			mcp.Description("Whether the task is an all-day task"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Time zone for the dates (e.g. 'Europe/Berlin')"),
		),
		mcp.WithString("reminders",
			mcp.Description("Reminder trigger or array of triggers (e.g. 'TRIGGER:-PT30M')"),
		),
		mcp.WithString("items",
			mcp.Description("Checklist item title or array of titles"),
		),
	)

	if readOnly {
		s.AddTool(createTaskTool, readOnlyHandler("create tasks"))
	} else {
		s.AddTool(createTaskTool, common.InstrumentedToolHandlerWithOperation(
			"ticktick_create_task", "create", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCreateTask(ctx, request, sc)
			}))
	}

	// Create tasks (batch) tool
	createTasksTool := mcp.NewTool("ticktick_create_tasks",
		mcp.WithDescription("Create multiple tasks in one call. Reports a per-task outcome, so one bad task does not abort the rest."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("tasks",
			mcp.Required(),
			mcp.Description(`JSON array of task objects, each with at least "title" and "projectId" plus any ticktick_create_task field (e.g. '[{"title":"Buy milk","projectId":"p1","priority":3}]')`),
		),
	)

	if readOnly {
		s.AddTool(createTasksTool, readOnlyHandler("create tasks"))
	} else {
		s.AddTool(createTasksTool, common.InstrumentedToolHandlerWithOperation(
			"ticktick_create_tasks", "create", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCreateTasks(ctx, request, sc)
			}))
	}

	// Update task tool
	updateTaskTool := mcp.NewTool("ticktick_update_task",
		mcp.WithDescription("Update an existing TickTick task. Only the supplied fields change."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("ID of the task to update"),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("title",
			mcp.Description("New task title. Existing hashtags are preserved unless tags is also supplied."),
		),
		mcp.WithString("content",
			mcp.Description("New task content/notes"),
		),
		mcp.WithString("desc",
			mcp.Description("New task description"),
		),
		mcp.WithString("startDate",
			mcp.Description("New start date in ISO format"),
		),
		mcp.WithString("dueDate",
			mcp.Description("New due date in ISO format"),
		),
		mcp.WithNumber("priority",
			mcp.Description("New priority: 0 (none), 1 (low), 3 (medium), 5 (high)"),
		),
		mcp.WithString("repeatFlag",
			mcp.Description("New recurrence rule in RRULE format"),
		),
		mcp.WithString("tags",
			mcp.Description("Replacement tag set (name or array). An empty array removes all tags; omit to keep the current tags."),
		),
		mcp.WithBoolean("isAllDay",
			mcp.Description("Whether the task is an all-day task"),
		),
		mcp.WithString("timeZone",
			mcp.Description("New time zone for the dates"),
		),
	)

	if readOnly {
		s.AddTool(updateTaskTool, readOnlyHandler("update tasks"))
	} else {
		s.AddTool(updateTaskTool, common.InstrumentedToolHandlerWithOperation(
			"ticktick_update_task", "update", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleUpdateTask(ctx, request, sc)
			}))
	}

	// Complete task tool
	completeTaskTool := mcp.NewTool("ticktick_complete_task",
		mcp.WithDescription("Mark a TickTick task as complete"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("ID of the task to complete"),
		),
	)

	if readOnly {
		s.AddTool(completeTaskTool, readOnlyHandler("complete tasks"))
	} else {
		s.AddTool(completeTaskTool, common.InstrumentedToolHandlerWithOperation(
			"ticktick_complete_task", "complete", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCompleteTask(ctx, request, sc)
			}))
	}

	// Delete task tool
	deleteTaskTool := mcp.NewTool("ticktick_delete_task",
		mcp.WithDescription("Delete a TickTick task"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("ID of the task to delete"),
		),
	)

	if readOnly {
		s.AddTool(deleteTaskTool, readOnlyHandler("delete tasks"))
	} else {
		s.AddTool(deleteTaskTool, common.InstrumentedToolHandlerWithOperation(
			"ticktick_delete_task", "delete", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleDeleteTask(ctx, request, sc)
			}))
	}
}

// readOnlyHandler returns a stub handler used when the server runs without --yolo.
func readOnlyHandler(action string) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError(fmt.Sprintf("Cannot %s in read-only mode. Use --yolo flag to enable write operations.", action)), nil
	}
}

func handleGetTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("taskId is required"), nil
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, err := svc.GetTask(ctx, projectID, taskID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get task: %v", err)), nil
	}

	return mcp.NewToolResultText(common.FormatTask(task)), nil
}

// taskRow pairs a task with the name of the project it lives in for the
// cross-project listings.
type taskRow struct {
	task    ticktick.Task
	project string
}

func flattenListing(listing []ticktick.ProjectTasks) []taskRow {
	var rows []taskRow
	for _, pt := range listing {
		for _, task := range pt.Tasks {
			rows = append(rows, taskRow{task: task, project: pt.Project.Name})
		}
	}
	return rows
}

func handleListAllTasks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	listing, err := svc.ListAllTasks(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tasks: %v", err)), nil
	}

	rows := flattenListing(listing)
	if len(rows) == 0 {
		return mcp.NewToolResultText("No tasks found in any project."), nil
	}

	// Sort by title for easier lookup
	sort.Slice(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].task.Title) < strings.ToLower(rows[j].task.Title)
	})

	header := fmt.Sprintf("| %-33s | %-24s | %-23s | %-10s |\n", "Task Title", "Task ID", "Project", "Status")
	divider := strings.Repeat("-", len(header)-1) + "\n"

	result := fmt.Sprintf("Found %d task(s) across %d project(s):\n\n", len(rows), len(listing))
	result += divider + header + divider
	for _, row := range rows {
		result += fmt.Sprintf("| %-33s | %-24s | %-23s | %-10s |\n",
			common.Truncate(row.task.Title, 30),
			row.task.ID,
			common.Truncate(row.project, 20),
			ticktick.StatusName(row.task.Status))
	}
	result += divider
	result += "\nNote: To get detailed information about a specific task, use 'ticktick_get_task' with the project ID and task ID."

	return mcp.NewToolResultText(result), nil
}

func handleFindOldTasks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	days := defaultOldTaskDays
	if daysVal, ok := args["days"].(float64); ok {
		days = int(daysVal)
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	listing, err := svc.FindOldTasks(ctx, days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find old tasks: %v", err)), nil
	}

	rows := flattenListing(listing)
	if len(rows) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No tasks found that are older than %d days.", days)), nil
	}

	// Oldest first
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].task.LastActivity().Before(rows[j].task.LastActivity())
	})

	now := time.Now()
	header := fmt.Sprintf("| %-33s | %-10s | %-23s | %-24s |\n", "Task Title", "Age (days)", "Project", "Task ID")
	divider := strings.Repeat("-", len(header)-1) + "\n"

	result := fmt.Sprintf("Found %d task(s) older than %d days:\n\n", len(rows), days)
	result += divider + header + divider
	for _, row := range rows {
		age := int(now.Sub(row.task.LastActivity()).Hours() / 24)
		result += fmt.Sprintf("| %-33s | %-10d | %-23s | %-24s |\n",
			common.Truncate(row.task.Title, 30),
			age,
			common.Truncate(row.project, 20),
			row.task.ID)
	}
	result += divider
	result += "\nTo delete or update any of these tasks, use 'ticktick_delete_task' or 'ticktick_update_task' with the appropriate project ID and task ID."

	return mcp.NewToolResultText(result), nil
}

// taskInput is the JSON shape accepted per item by ticktick_create_tasks.
// Checklist items are plain titles here, matching the single-task tool.
type taskInput struct {
	Title      string   `json:"title"`
	ProjectID  string   `json:"projectId"`
	Content    string   `json:"content,omitempty"`
	Desc       string   `json:"desc,omitempty"`
	StartDate  string   `json:"startDate,omitempty"`
	DueDate    string   `json:"dueDate,omitempty"`
	Priority   int      `json:"priority,omitempty"`
	RepeatFlag string   `json:"repeatFlag,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	IsAllDay   bool     `json:"isAllDay,omitempty"`
	TimeZone   string   `json:"timeZone,omitempty"`
	Reminders  []string `json:"reminders,omitempty"`
	Items      []string `json:"items,omitempty"`
}

func (in *taskInput) spec() ticktick.TaskSpec {
	spec := ticktick.TaskSpec{
		Title:      in.Title,
		ProjectID:  in.ProjectID,
		Content:    in.Content,
		Desc:       in.Desc,
		StartDate:  in.StartDate,
		DueDate:    in.DueDate,
		Priority:   in.Priority,
		RepeatFlag: in.RepeatFlag,
		Tags:       in.Tags,
		IsAllDay:   in.IsAllDay,
		TimeZone:   in.TimeZone,
		Reminders:  in.Reminders,
	}
	for _, itemTitle := range in.Items {
		spec.Items = append(spec.Items, ticktick.ChecklistItem{Title: itemTitle})
	}
	return spec
}

func handleCreateTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	title, ok := args["title"].(string)
	if !ok || title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}

	spec := ticktick.TaskSpec{Title: title, ProjectID: projectID}
	if content, ok := args["content"].(string); ok {
		spec.Content = content
	}
	if desc, ok := args["desc"].(string); ok {
		spec.Desc = desc
	}
	if startDate, ok := args["startDate"].(string); ok {
		spec.StartDate = startDate
	}
	if dueDate, ok := args["dueDate"].(string); ok {
		spec.DueDate = dueDate
	}
	if priority, ok := args["priority"].(float64); ok {
		spec.Priority = int(priority)
	}
	if repeatFlag, ok := args["repeatFlag"].(string); ok {
		spec.RepeatFlag = repeatFlag
	}
	if isAllDay, ok := args["isAllDay"].(bool); ok {
		spec.IsAllDay = isAllDay
	}
	if timeZone, ok := args["timeZone"].(string); ok {
		spec.TimeZone = timeZone
	}

	tagList, err := common.OptionalStringOrArray(args["tags"], "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec.Tags = tagList

	reminders, err := common.OptionalStringOrArray(args["reminders"], "reminders")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec.Reminders = reminders

	items, err := common.OptionalStringOrArray(args["items"], "items")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, itemTitle := range items {
		spec.Items = append(spec.Items, ticktick.ChecklistItem{Title: itemTitle})
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := svc.CreateTask(ctx, spec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
	}

	result := "Task created successfully:\n\n" + common.FormatTask(res.Task)
	result += common.FormatWarnings(res.Warnings)

	return mcp.NewToolResultText(result), nil
}

func handleCreateTasks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	raw, exists := args["tasks"]
	if !exists || raw == nil {
		return mcp.NewToolResultError("tasks is required"), nil
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []interface{}:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid tasks argument: %v", err)), nil
		}
	default:
		return mcp.NewToolResultError("tasks must be a JSON array of task objects"), nil
	}

	var inputs []taskInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid tasks argument: %v", err)), nil
	}
	if len(inputs) == 0 {
		return mcp.NewToolResultError("tasks cannot be empty"), nil
	}

	specs := make([]ticktick.TaskSpec, 0, len(inputs))
	for i := range inputs {
		specs = append(specs, inputs[i].spec())
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := svc.CreateTasks(ctx, specs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create tasks: %v", err)), nil
	}

	if m := sc.Metrics(); m != nil {
		m.RecordBatchItems(ctx, "success", int64(res.Successful))
		m.RecordBatchItems(ctx, "error", int64(res.Failed))
	}

	result := fmt.Sprintf("Created %d of %d task(s), %d failed:\n\n", res.Successful, res.Total, res.Failed)
	for _, item := range res.Items {
		if item.Status == "success" {
			result += fmt.Sprintf("%d. OK: %s (ID: %s, project: %s)\n", item.Index+1, item.Title, item.TaskID, item.ProjectID)
		} else {
			result += fmt.Sprintf("%d. FAILED: %s: %s\n", item.Index+1, item.Title, item.Error)
		}
	}

	return mcp.NewToolResultText(result), nil
}

func handleUpdateTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("taskId is required"), nil
	}
	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}

	patch := ticktick.TaskPatch{TaskID: taskID, ProjectID: projectID}
	if v, ok := args["title"].(string); ok {
		patch.Title = &v
	}
	if v, ok := args["content"].(string); ok {
		patch.Content = &v
	}
	if v, ok := args["desc"].(string); ok {
		patch.Desc = &v
	}
	if v, ok := args["startDate"].(string); ok {
		patch.StartDate = &v
	}
	if v, ok := args["dueDate"].(string); ok {
		patch.DueDate = &v
	}
	if v, ok := args["priority"].(float64); ok {
		p := int(v)
		patch.Priority = &p
	}
	if v, ok := args["repeatFlag"].(string); ok {
		patch.RepeatFlag = &v
	}
	if v, ok := args["isAllDay"].(bool); ok {
		patch.IsAllDay = &v
	}
	if v, ok := args["timeZone"].(string); ok {
		patch.TimeZone = &v
	}

	// Tags distinguish three cases: omitted keeps the current set, an empty
	// array clears it, anything else replaces it.
	if raw, present := args["tags"]; present {
		if arr, ok := raw.([]interface{}); ok && len(arr) == 0 {
			patch.Tags = []string{}
		} else {
			tagList, err := common.ParseStringOrArray(raw, "tags")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			patch.Tags = tagList
		}
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := svc.UpdateTask(ctx, patch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update task: %v", err)), nil
	}

	result := "Task updated successfully:\n\n" + common.FormatTask(res.Task)
	result += common.FormatWarnings(res.Warnings)

	return mcp.NewToolResultText(result), nil
}

func handleCompleteTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("taskId is required"), nil
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := svc.CompleteTask(ctx, projectID, taskID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to complete task: %v", err)), nil
	}

	if res.AlreadyCompleted {
		return mcp.NewToolResultText("Task is already marked as complete.\n\n" + common.FormatTask(res.Task)), nil
	}

	return mcp.NewToolResultText("Task marked as complete.\n\n" + common.FormatTask(res.Task)), nil
}

func handleDeleteTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("taskId is required"), nil
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := svc.DeleteTask(ctx, projectID, taskID)
	if res != nil && sc.Metrics() != nil {
		sc.Metrics().RecordVerification(ctx, "delete_task", res.Outcome.String())
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete task: %v", err)), nil
	}

	result := fmt.Sprintf("Task %s deleted successfully.", taskID)
	if res.Notice != "" {
		result += "\nNotice: " + res.Notice
	}

	return mcp.NewToolResultText(result), nil
}
