package ticktick

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Client provides typed access to the TickTick Open API. It does no
// verification and no tag handling; Service composes those on top.
type Client struct {
	exec *Executor
}

// NewClient creates a client around an executor.
func NewClient(exec *Executor) *Client {
	return &Client{exec: exec}
}

// decorateNotFound replaces the executor's generic not-found error with one
// naming the resource the caller asked for.
func decorateNotFound(err error, kind, id string) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// GetProjects lists all projects.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.exec.Do(ctx, http.MethodGet, "/project", nil, &projects); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject retrieves a single project by ID.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	err := c.exec.Do(ctx, http.MethodGet, "/project/"+url.PathEscape(projectID), nil, &project)
	if err != nil {
		return nil, decorateNotFound(err, "project", projectID)
	}
	return &project, nil
}

// GetProjectData retrieves a project together with its current tasks and
// columns. This listing is the authoritative read for deletion verification.
func (c *Client) GetProjectData(ctx context.Context, projectID string) (*ProjectData, error) {
	var data ProjectData
	err := c.exec.Do(ctx, http.MethodGet, "/project/"+url.PathEscape(projectID)+"/data", nil, &data)
	if err != nil {
		return nil, decorateNotFound(err, "project", projectID)
	}
	return &data, nil
}

// GetTask retrieves a task by project and task ID.
func (c *Client) GetTask(ctx context.Context, projectID, taskID string) (*Task, error) {
	var task Task
	path := "/project/" + url.PathEscape(projectID) + "/task/" + url.PathEscape(taskID)
	if err := c.exec.Do(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, decorateNotFound(err, "task", taskID)
	}
	return &task, nil
}

// CreateTask creates a task. The returned task carries the remote-assigned ID.
func (c *Client) CreateTask(ctx context.Context, task Task) (*Task, error) {
	var created Task
	if err := c.exec.Do(ctx, http.MethodPost, "/task", task, &created); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &created, nil
}

// UpdateTask replaces a task's state by ID. The task must carry ID and
// ProjectID. Addressed by ID, the update is safe to repeat, so transport
// failures are retried.
func (c *Client) UpdateTask(ctx context.Context, task Task) (*Task, error) {
	if task.ID == "" {
		return nil, &ValidationError{Field: "id", Reason: "must not be empty for update"}
	}
	var updated Task
	err := c.exec.DoIdempotent(ctx, http.MethodPost, "/task/"+url.PathEscape(task.ID), task, &updated)
	if err != nil {
		return nil, decorateNotFound(err, "task", task.ID)
	}
	return &updated, nil
}

// CompleteTask marks a task completed.
func (c *Client) CompleteTask(ctx context.Context, projectID, taskID string) error {
	path := "/project/" + url.PathEscape(projectID) + "/task/" + url.PathEscape(taskID) + "/complete"
	if err := c.exec.DoIdempotent(ctx, http.MethodPost, path, nil, nil); err != nil {
		return decorateNotFound(err, "task", taskID)
	}
	return nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	path := "/project/" + url.PathEscape(projectID) + "/task/" + url.PathEscape(taskID)
	if err := c.exec.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return decorateNotFound(err, "task", taskID)
	}
	return nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, project Project) (*Project, error) {
	var created Project
	if err := c.exec.Do(ctx, http.MethodPost, "/project", project, &created); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &created, nil
}

// DeleteProject deletes a project. The remote service is assumed, not
// guaranteed, to cascade-delete its tasks.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	if err := c.exec.Do(ctx, http.MethodDelete, "/project/"+url.PathEscape(projectID), nil, nil); err != nil {
		return decorateNotFound(err, "project", projectID)
	}
	return nil
}

// batchCreateRequest is the bulk task-creation envelope.
type batchCreateRequest struct {
	Add []Task `json:"add"`
}

// CreateTasksBatch sends the whole set to the bulk endpoint in one call and
// returns the created tasks in input order. The endpoint is optional
// server-side; callers fall back to per-item creation when it rejects the
// envelope (see Service.CreateTasks).
func (c *Client) CreateTasksBatch(ctx context.Context, tasks []Task) ([]Task, error) {
	var created []Task
	if err := c.exec.Do(ctx, http.MethodPost, "/batch/task", batchCreateRequest{Add: tasks}, &created); err != nil {
		return nil, fmt.Errorf("bulk create failed: %w", err)
	}
	return created, nil
}
