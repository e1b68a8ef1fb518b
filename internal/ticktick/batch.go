package ticktick

import (
	"context"
	"errors"

	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/tags"
)

// BatchItem is the outcome of one input item of a batch create, keyed by the
// item's position in the input slice.
type BatchItem struct {
	// Index is the position of the item in the input
	Index int `json:"index"`

	// Title is the title of the task the item described
	Title string `json:"title"`

	// Status is "success" or "error"
	Status string `json:"status"`

	// TaskID is the created task's ID on success
	TaskID string `json:"taskId,omitempty"`

	// ProjectID is the project the task was created in on success
	ProjectID string `json:"projectId,omitempty"`

	// Error is the classified error message on failure
	Error string `json:"error,omitempty"`
}

// BatchResult is the aggregate outcome of a batch create. It always carries
// one item per input, in input order, so partial success never collapses
// into a single batch-wide failure.
type BatchResult struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Items      []BatchItem `json:"items"`
}

func (r *BatchResult) recount() {
	r.Successful = 0
	r.Failed = 0
	for _, item := range r.Items {
		if item.Status == "success" {
			r.Successful++
		} else {
			r.Failed++
		}
	}
}

// CreateTasks creates several tasks in one call. It tries the bulk-create
// endpoint first and falls back to sequential per-item creation when bulk is
// unavailable; callers cannot tell which strategy ran except through timing.
func (s *Service) CreateTasks(ctx context.Context, specs []TaskSpec) (*BatchResult, error) {
	result := &BatchResult{
		Total: len(specs),
		Items: make([]BatchItem, len(specs)),
	}

	// Validate everything up front so a bad item fails before any remote
	// call, and so the bulk attempt only ever carries well-formed tasks.
	wire := make([]Task, 0, len(specs))
	wireIndex := make([]int, 0, len(specs))
	for i, spec := range specs {
		result.Items[i] = BatchItem{Index: i, Title: spec.Title}
		if err := spec.Validate(); err != nil {
			result.Items[i].Status = "error"
			result.Items[i].Error = err.Error()
			continue
		}
		task := spec.Task()
		if spec.Tags != nil {
			task.Title = tags.Merge(spec.Title, nil, spec.Tags)
		}
		wire = append(wire, task)
		wireIndex = append(wireIndex, i)
	}

	if len(wire) > 1 {
		if created, err := s.client.CreateTasksBatch(ctx, wire); err == nil && len(created) == len(wire) {
			for pos, task := range created {
				i := wireIndex[pos]
				result.Items[i].Status = "success"
				result.Items[i].TaskID = task.ID
				result.Items[i].ProjectID = task.ProjectID
			}
			result.recount()
			s.logger.Info("batch create completed via bulk endpoint",
				logging.Operation("create_tasks"),
				"total", result.Total,
				"successful", result.Successful,
			)
			return result, nil
		} else if err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
			s.logger.Debug("bulk endpoint unavailable, falling back to sequential creation",
				logging.Operation("create_tasks"),
				logging.Err(err),
			)
		}
	}

	for pos, task := range wire {
		i := wireIndex[pos]
		if result.Items[i].Status != "" {
			continue
		}
		created, err := s.client.CreateTask(ctx, task)
		if err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				// Authentication is shared by every remaining item, so
				// continuing would just repeat the same failure.
				return nil, err
			}
			result.Items[i].Status = "error"
			result.Items[i].Error = err.Error()
			if ctx.Err() != nil {
				s.failRemaining(result, wireIndex[pos:], ctx.Err())
				break
			}
			continue
		}
		result.Items[i].Status = "success"
		result.Items[i].TaskID = created.ID
		result.Items[i].ProjectID = created.ProjectID
	}

	result.recount()
	s.logger.Info("batch create completed",
		logging.Operation("create_tasks"),
		"total", result.Total,
		"successful", result.Successful,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Service) failRemaining(result *BatchResult, indexes []int, err error) {
	for _, i := range indexes {
		if result.Items[i].Status == "" {
			result.Items[i].Status = "error"
			result.Items[i].Error = err.Error()
		}
	}
}
