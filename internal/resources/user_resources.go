package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/mcp/oauth"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// RegisterUserResources registers session-specific user resources
// These resources provide information about the current authenticated user
// and their TickTick data
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Register account profile resource
	profileResource := mcp.NewResource(
		"ticktick://profile",
		"Current Account Profile",
		mcp.WithResourceDescription("Information about the TickTick account used by this session"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAccountProfile(ctx, request, sc)
	})

	// Register project list resource
	projectsResource := mcp.NewResource(
		"ticktick://projects",
		"TickTick Projects",
		mcp.WithResourceDescription("All projects in the current TickTick account"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(projectsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProjectList(ctx, request, sc)
	})

	// Register per-project task listing as a resource template
	tasksTemplate := mcp.NewResourceTemplate(
		"ticktick://projects/{projectId}/tasks",
		"Project Tasks",
		mcp.WithTemplateDescription("Open tasks of one TickTick project"),
		mcp.WithTemplateMIMEType("application/json"),
	)

	s.AddResourceTemplate(tasksTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProjectTasks(ctx, request, sc)
	})

	return nil
}

// extractAccountFromContext extracts the user's email from OAuth context
// Falls back to the default account for STDIO transport or if no OAuth
// context is available
func extractAccountFromContext(ctx context.Context) string {
	// Try to get user info from OAuth context (HTTP transport)
	if userInfo, ok := oauth.GetUserFromContext(ctx); ok {
		return userInfo.Email
	}
	// Fallback to default for STDIO transport
	return ticktick.DefaultAccount
}

// handleAccountProfile returns information about the current account
func handleAccountProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	// Extract account (email) from OAuth context
	account := extractAccountFromContext(ctx)

	profileData := map[string]interface{}{
		"account":       account,
		"authenticated": sc.ServiceForAccount(account) != nil,
		"description":   "TickTick account used by this session",
	}

	if userInfo, ok := oauth.GetUserFromContext(ctx); ok {
		profileData["email"] = userInfo.Email
		profileData["name"] = userInfo.Name
	}

	jsonData, err := json.MarshalIndent(profileData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// projectIDFromTasksURI extracts the project ID from a
// ticktick://projects/{projectId}/tasks URI
func projectIDFromTasksURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "ticktick://projects/")
	if !ok {
		return "", fmt.Errorf("unexpected resource URI: %s", uri)
	}
	projectID, ok := strings.CutSuffix(rest, "/tasks")
	if !ok || projectID == "" || strings.Contains(projectID, "/") {
		return "", fmt.Errorf("unexpected resource URI: %s", uri)
	}
	return projectID, nil
}

// handleProjectTasks returns the open tasks of the project named in the URI
func handleProjectTasks(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	account := extractAccountFromContext(ctx)

	projectID, err := projectIDFromTasksURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	svc := sc.ServiceForAccount(account)
	if svc == nil {
		return nil, fmt.Errorf("no TickTick credentials available for account: %s", account)
	}

	tasks, err := svc.GetProjectTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for project %s: %w", projectID, err)
	}

	jsonData, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleProjectList returns all projects in the current account
func handleProjectList(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	// Extract account (email) from OAuth context
	account := extractAccountFromContext(ctx)

	svc := sc.ServiceForAccount(account)
	if svc == nil {
		return nil, fmt.Errorf("no TickTick credentials available for account: %s", account)
	}

	projects, err := svc.GetProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	jsonData, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
