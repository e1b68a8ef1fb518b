package project_tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/common"
)

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

// RegisterProjectTools registers all project-related tools with the MCP server
func RegisterProjectTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List projects tool
	getProjectsTool := mcp.NewTool("ticktick_get_projects",
		mcp.WithDescription("List all TickTick projects with their IDs for easy reference"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
	)

	s.AddTool(getProjectsTool, common.InstrumentedToolHandlerWithOperation(
		"ticktick_get_projects", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetProjects(ctx, request, sc)
		}))

	// Get project tool
	getProjectTool := mcp.NewTool("ticktick_get_project",
		mcp.WithDescription("Get details about a specific TickTick project"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project"),
		),
	)

	s.AddTool(getProjectTool, common.InstrumentedToolHandlerWithOperation(
		"ticktick_get_project", "get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetProject(ctx, request, sc)
		}))

	// Get project tasks tool
	getProjectTasksTool := mcp.NewTool("ticktick_get_project_tasks",
		mcp.WithDescription("List all open tasks in a specific TickTick project"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project"),
		),
	)

	s.AddTool(getProjectTasksTool, common.InstrumentedToolHandlerWithOperation(
		"ticktick_get_project_tasks", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetProjectTasks(ctx, request, sc)
		}))

	// Create project tool
	createProjectTool := mcp.NewTool("ticktick_create_project",
		mcp.WithDescription("Create a new TickTick project"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("color",
			mcp.Description("Color code in hex format (default: '#F18181')"),
		),
		mcp.WithString("viewMode",
			mcp.Description("View mode: one of 'list', 'kanban', 'timeline' (default: 'list')"),
		),
	)

	if readOnly {
		s.AddTool(createProjectTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("Cannot create projects in read-only mode. Use --yolo flag to enable write operations."), nil
		})
	} else {
		s.AddTool(createProjectTool, common.InstrumentedToolHandlerWithOperation(
			"ticktick_create_project", "create", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCreateProject(ctx, request, sc)
			}))
	}

	// Delete project tool
	deleteProjectTool := mcp.NewTool("ticktick_delete_project",
		mcp.WithDescription("Delete a TickTick project and all tasks in it"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple TickTick accounts."),
		),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("ID of the project to delete"),
		),
	)

	if readOnly {
		s.AddTool(deleteProjectTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("Cannot delete projects in read-only mode. Use --yolo flag to enable write operations."), nil
		})
	} else {
		s.AddTool(deleteProjectTool, common.InstrumentedToolHandlerWithOperation(
			"ticktick_delete_project", "delete", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleDeleteProject(ctx, request, sc)
			}))
	}

	return nil
}

func handleGetProjects(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	projects, err := svc.GetProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list projects: %v", err)), nil
	}

	if len(projects) == 0 {
		return mcp.NewToolResultText("No projects found."), nil
	}

	// Sort by name for easier reference
	sort.Slice(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})

	result := fmt.Sprintf("Found %d project(s):\n\n", len(projects))
	for i, project := range projects {
		result += fmt.Sprintf("%d. %s\n", i+1, project.Name)
		result += fmt.Sprintf("   ID: %s\n", project.ID)
		if project.Color != "" {
			result += fmt.Sprintf("   Color: %s\n", project.Color)
		}
		if project.ViewMode != "" {
			result += fmt.Sprintf("   View Mode: %s\n", project.ViewMode)
		}
		if project.Kind != "" {
			result += fmt.Sprintf("   Kind: %s\n", project.Kind)
		}
		if project.Closed {
			result += "   [CLOSED]\n"
		}
		result += "\n"
	}

	return mcp.NewToolResultText(result), nil
}

func handleGetProject(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := svc.GetProject(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get project: %v", err)), nil
	}

	return mcp.NewToolResultText(common.FormatProject(project)), nil
}

func handleGetProjectTasks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tasks, err := svc.GetProjectTasks(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get project tasks: %v", err)), nil
	}

	if len(tasks) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No tasks found in project %s.", projectID)), nil
	}

	result := fmt.Sprintf("Found %d task(s) in project %s:\n\n", len(tasks), projectID)
	for i, task := range tasks {
		result += fmt.Sprintf("Task %d:\n%s\n", i+1, common.FormatTask(&task))
	}

	return mcp.NewToolResultText(result), nil
}

func handleCreateProject(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	color, _ := args["color"].(string)
	viewMode, _ := args["viewMode"].(string)

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := svc.CreateProject(ctx, name, color, viewMode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create project: %v", err)), nil
	}

	result := "Project created successfully:\n\n" + common.FormatProject(res.Project)
	result += common.FormatWarnings(res.Warnings)

	return mcp.NewToolResultText(result), nil
}

func handleDeleteProject(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return mcp.NewToolResultError("projectId is required"), nil
	}

	svc, err := getService(account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := svc.DeleteProject(ctx, projectID)
	if res != nil && sc.Metrics() != nil {
		sc.Metrics().RecordVerification(ctx, "delete_project", res.Outcome.String())
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete project: %v", err)), nil
	}

	result := fmt.Sprintf("Project %s deleted successfully.", projectID)
	if res.Notice != "" {
		result += "\nNotice: " + res.Notice
	}

	return mcp.NewToolResultText(result), nil
}
