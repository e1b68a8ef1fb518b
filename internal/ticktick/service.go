package ticktick

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/tags"
)

// ServiceConfig bundles the tunables of the service and its lower layers.
type ServiceConfig struct {
	Executor ExecutorConfig
	Verify   VerifyConfig
}

// Service is the high-level TickTick API: validated inputs, verified
// mutations, and classified errors. All MCP tools go through it.
type Service struct {
	client   *Client
	verifier *Verifier
	logger   *slog.Logger

	// now is replaced in tests
	now func() time.Time
}

// NewService wires a service on top of the given token source.
func NewService(tokens TokenSource, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Executor.Logger == nil {
		cfg.Executor.Logger = logger
	}
	client := NewClient(NewExecutor(tokens, cfg.Executor))
	return &Service{
		client:   client,
		verifier: NewVerifier(client, cfg.Verify, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// ProjectTasks groups the open tasks of one project.
type ProjectTasks struct {
	Project Project `json:"project"`
	Tasks   []Task  `json:"tasks"`
}

// CreateTaskResult is a created task plus any post-creation verification
// warnings. Warnings never fail the call.
type CreateTaskResult struct {
	Task     *Task    `json:"task"`
	Warnings []string `json:"warnings,omitempty"`
}

// UpdateTaskResult is an updated task plus any post-update verification
// warnings.
type UpdateTaskResult struct {
	Task     *Task    `json:"task"`
	Warnings []string `json:"warnings,omitempty"`
}

// CompleteTaskResult reports a completion, including the case where the task
// was already complete and no remote mutation was issued.
type CompleteTaskResult struct {
	Task             *Task `json:"task"`
	AlreadyCompleted bool  `json:"alreadyCompleted"`
}

// CreateProjectResult is a created project plus any post-creation
// verification warnings.
type CreateProjectResult struct {
	Project  *Project `json:"project"`
	Warnings []string `json:"warnings,omitempty"`
}

// DeleteResult reports a verified deletion. A sync-delayed outcome is a
// success whose Notice explains that removal is still propagating.
type DeleteResult struct {
	Outcome Outcome `json:"outcome"`
	Notice  string  `json:"notice,omitempty"`
}

// GetProjects lists all projects.
func (s *Service) GetProjects(ctx context.Context) ([]Project, error) {
	return s.client.GetProjects(ctx)
}

// GetProject fetches one project by ID.
func (s *Service) GetProject(ctx context.Context, projectID string) (*Project, error) {
	if projectID == "" {
		return nil, &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	return s.client.GetProject(ctx, projectID)
}

// GetProjectTasks lists the open tasks of one project.
func (s *Service) GetProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	if projectID == "" {
		return nil, &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	data, err := s.client.GetProjectData(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// GetTask fetches one task by project and task ID.
func (s *Service) GetTask(ctx context.Context, projectID, taskID string) (*Task, error) {
	if projectID == "" {
		return nil, &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	if taskID == "" {
		return nil, &ValidationError{Field: "taskId", Reason: "must not be empty"}
	}
	return s.client.GetTask(ctx, projectID, taskID)
}

// ListAllTasks lists the open tasks of every project, grouped by project.
// Projects whose task listing fails are skipped with a warning so one bad
// project does not hide the rest.
func (s *Service) ListAllTasks(ctx context.Context) ([]ProjectTasks, error) {
	projects, err := s.client.GetProjects(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]ProjectTasks, 0, len(projects))
	for _, project := range projects {
		data, err := s.client.GetProjectData(ctx, project.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.logger.Warn("skipping project with unreadable task listing",
				logging.Project(project.ID),
				logging.Err(err),
			)
			continue
		}
		groups = append(groups, ProjectTasks{Project: project, Tasks: data.Tasks})
	}
	return groups, nil
}

// FindOldTasks lists open tasks whose last activity is older than the given
// number of days, grouped by project. Last activity is the most recent of
// the task's start, due, creation and modification times.
func (s *Service) FindOldTasks(ctx context.Context, days int) ([]ProjectTasks, error) {
	if days <= 0 {
		return nil, &ValidationError{Field: "days", Reason: "must be a positive number of days"}
	}
	cutoff := s.now().AddDate(0, 0, -days)

	groups, err := s.ListAllTasks(ctx)
	if err != nil {
		return nil, err
	}

	old := make([]ProjectTasks, 0, len(groups))
	for _, group := range groups {
		var stale []Task
		for _, task := range group.Tasks {
			last := task.LastActivity()
			if !last.IsZero() && last.Before(cutoff) {
				stale = append(stale, task)
			}
		}
		if len(stale) > 0 {
			old = append(old, ProjectTasks{Project: group.Project, Tasks: stale})
		}
	}
	return old, nil
}

// CreateTask creates a task and verifies the stored state afterwards.
// Explicit tags are rendered into the title as hashtags before the create is
// sent.
func (s *Service) CreateTask(ctx context.Context, spec TaskSpec) (*CreateTaskResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	task := spec.Task()
	if spec.Tags != nil {
		task.Title = tags.Merge(spec.Title, nil, spec.Tags)
	}

	created, err := s.client.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}
	s.logger.Info("created task",
		logging.Operation("create_task"),
		logging.Project(created.ProjectID),
		logging.Task(created.ID),
	)

	want := task
	wantTags := spec.Tags
	if wantTags == nil {
		_, wantTags = tags.Extract(spec.Title)
	}
	warnings := s.verifier.CheckTaskState(ctx, created.ProjectID, created.ID, want, wantTags)
	return &CreateTaskResult{Task: created, Warnings: warnings}, nil
}

// UpdateTask applies a partial update to a task. The task is fetched first
// so a vanished task fails fast before any mutation, and so untouched fields
// keep their current values.
func (s *Service) UpdateTask(ctx context.Context, patch TaskPatch) (*UpdateTaskResult, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.verifier.EnsureTask(ctx, patch.ProjectID, patch.TaskID)
	if err != nil {
		return nil, err
	}

	merged := *existing
	merged.Title = tags.Merge(existing.Title, patch.Title, patch.Tags)
	if patch.Content != nil {
		merged.Content = *patch.Content
	}
	if patch.Desc != nil {
		merged.Desc = *patch.Desc
	}
	if patch.StartDate != nil {
		merged.StartDate = *patch.StartDate
	}
	if patch.DueDate != nil {
		merged.DueDate = *patch.DueDate
	}
	if patch.IsAllDay != nil {
		merged.IsAllDay = *patch.IsAllDay
	}
	if patch.TimeZone != nil {
		merged.TimeZone = *patch.TimeZone
	}
	if patch.RepeatFlag != nil {
		merged.RepeatFlag = *patch.RepeatFlag
	}
	if patch.Priority != nil {
		merged.Priority = *patch.Priority
	}

	updated, err := s.client.UpdateTask(ctx, merged)
	if err != nil {
		return nil, err
	}
	s.logger.Info("updated task",
		logging.Operation("update_task"),
		logging.Project(patch.ProjectID),
		logging.Task(patch.TaskID),
	)

	var wantTags []string
	if patch.Tags != nil {
		wantTags = patch.Tags
	} else {
		_, wantTags = tags.Extract(merged.Title)
	}
	warnings := s.verifier.CheckTaskState(ctx, patch.ProjectID, patch.TaskID, merged, wantTags)
	return &UpdateTaskResult{Task: updated, Warnings: warnings}, nil
}

// CompleteTask marks a task complete. Completing an already-completed task
// is a no-op success, not an error.
func (s *Service) CompleteTask(ctx context.Context, projectID, taskID string) (*CompleteTaskResult, error) {
	if projectID == "" {
		return nil, &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	if taskID == "" {
		return nil, &ValidationError{Field: "taskId", Reason: "must not be empty"}
	}

	task, err := s.verifier.EnsureTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == StatusCompleted {
		return &CompleteTaskResult{Task: task, AlreadyCompleted: true}, nil
	}

	if err := s.client.CompleteTask(ctx, projectID, taskID); err != nil {
		return nil, err
	}
	s.logger.Info("completed task",
		logging.Operation("complete_task"),
		logging.Project(projectID),
		logging.Task(taskID),
	)

	task.Status = StatusCompleted
	return &CompleteTaskResult{Task: task}, nil
}

// DeleteTask deletes a task and verifies the deletion took effect, fetching
// the task first so deleting a nonexistent task reports not-found rather
// than a blind success.
func (s *Service) DeleteTask(ctx context.Context, projectID, taskID string) (*DeleteResult, error) {
	if projectID == "" {
		return nil, &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}
	if taskID == "" {
		return nil, &ValidationError{Field: "taskId", Reason: "must not be empty"}
	}

	if _, err := s.verifier.EnsureTask(ctx, projectID, taskID); err != nil {
		return nil, err
	}
	if err := s.client.DeleteTask(ctx, projectID, taskID); err != nil {
		return nil, err
	}

	outcome, notice := s.verifier.ConfirmTaskDeleted(ctx, projectID, taskID)
	if outcome == OutcomeFailed {
		return &DeleteResult{Outcome: outcome}, fmt.Errorf("failed to delete task %s: still present after deletion", taskID)
	}
	s.logger.Info("deleted task",
		logging.Operation("delete_task"),
		logging.Project(projectID),
		logging.Task(taskID),
		logging.Status(outcome.String()),
	)
	return &DeleteResult{Outcome: outcome, Notice: notice}, nil
}

// CreateProject creates a project with sensible defaults for color and view
// mode and verifies the stored state afterwards.
func (s *Service) CreateProject(ctx context.Context, name, color, viewMode string) (*CreateProjectResult, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if color == "" {
		color = DefaultProjectColor
	}
	if viewMode == "" {
		viewMode = ViewModeList
	}
	if !ValidViewMode(viewMode) {
		return nil, &ValidationError{Field: "viewMode", Reason: fmt.Sprintf("%q is not one of list, kanban, timeline", viewMode)}
	}

	project := Project{
		Name:     name,
		Color:    color,
		ViewMode: viewMode,
		Kind:     DefaultProjectKind,
	}
	created, err := s.client.CreateProject(ctx, project)
	if err != nil {
		return nil, err
	}
	s.logger.Info("created project",
		logging.Operation("create_project"),
		logging.Project(created.ID),
	)

	warnings := s.verifier.CheckProjectState(ctx, created.ID, project)
	return &CreateProjectResult{Project: created, Warnings: warnings}, nil
}

// DeleteProject deletes a project and verifies the deletion took effect.
func (s *Service) DeleteProject(ctx context.Context, projectID string) (*DeleteResult, error) {
	if projectID == "" {
		return nil, &ValidationError{Field: "projectId", Reason: "must not be empty"}
	}

	if _, err := s.verifier.EnsureProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.client.DeleteProject(ctx, projectID); err != nil {
		return nil, err
	}

	outcome, notice := s.verifier.ConfirmProjectDeleted(ctx, projectID)
	if outcome == OutcomeFailed {
		return &DeleteResult{Outcome: outcome}, fmt.Errorf("failed to delete project %s: still present after deletion", projectID)
	}
	s.logger.Info("deleted project",
		logging.Operation("delete_project"),
		logging.Project(projectID),
		logging.Status(outcome.String()),
	)
	return &DeleteResult{Outcome: outcome, Notice: notice}, nil
}
