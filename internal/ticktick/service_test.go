package ticktick

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newTestService builds a full service against a local test server. Waits
// are shrunk so verification runs instantly.
func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewService(&stubTokens{token: "test-token"}, ServiceConfig{
		Executor: ExecutorConfig{BaseURL: srv.URL, MaxRetries: 1},
		Verify:   VerifyConfig{DeleteWait: time.Millisecond, DeleteChecks: 1},
	}, nil)
	svc.verifier.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

// capture records a decoded request body under a lock so the test goroutine
// can read it after the call returns.
type capture[T any] struct {
	mu  sync.Mutex
	val T
	set bool
}

func (c *capture[T]) store(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val = v
	c.set = true
}

func (c *capture[T]) get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val, c.set
}

func decodeBody[T any](t *testing.T, r *http.Request) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Errorf("decoding request body: %v", err)
	}
	return v
}

func TestCreateTaskRendersTagsIntoTitle(t *testing.T) {
	var created capture[Task]
	mux := http.NewServeMux()
	mux.HandleFunc("POST /task", func(w http.ResponseWriter, r *http.Request) {
		task := decodeBody[Task](t, r)
		created.store(task)
		task.ID = "t1"
		json.NewEncoder(w).Encode(task)
	})
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Buy milk #errand"}`)
	})
	svc := newTestService(t, mux)

	res, err := svc.CreateTask(context.Background(), TaskSpec{
		ProjectID: "p1",
		Title:     "Buy milk",
		Tags:      []string{"errand"},
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	sent, ok := created.get()
	if !ok {
		t.Fatal("create endpoint was never hit")
	}
	if sent.Title != "Buy milk #errand" {
		t.Errorf("sent title = %q, want %q", sent.Title, "Buy milk #errand")
	}
	if res.Task.ID != "t1" {
		t.Errorf("created ID = %q, want t1", res.Task.ID)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Warnings)
	}
}

func TestCreateTaskReportsVerificationWarnings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /task", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Buy milk"}`)
	})
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		// The stored title does not match what was requested.
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Bur milk"}`)
	})
	svc := newTestService(t, mux)

	res, err := svc.CreateTask(context.Background(), TaskSpec{ProjectID: "p1", Title: "Buy milk"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("warnings are empty, want a title mismatch warning")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	svc := newTestService(t, http.NewServeMux())

	tests := []struct {
		name string
		spec TaskSpec
	}{
		{"missing title", TaskSpec{ProjectID: "p1"}},
		{"missing project", TaskSpec{Title: "x"}},
		{"bad priority", TaskSpec{ProjectID: "p1", Title: "x", Priority: 2}},
		{"bad repeat flag", TaskSpec{ProjectID: "p1", Title: "x", RepeatFlag: "FREQ=DAILY"}},
		{"bad start date", TaskSpec{ProjectID: "p1", Title: "x", StartDate: "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(context.Background(), tt.spec)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestUpdateTaskShortCircuitsWhenMissing(t *testing.T) {
	var updates atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("POST /task/gone", func(w http.ResponseWriter, r *http.Request) {
		updates.Add(1)
	})
	svc := newTestService(t, mux)

	title := "New title"
	_, err := svc.UpdateTask(context.Background(), TaskPatch{
		ProjectID: "p1",
		TaskID:    "gone",
		Title:     &title,
	})
	if !IsNotFound(err) {
		t.Fatalf("UpdateTask() error = %v, want NotFoundError", err)
	}
	if updates.Load() != 0 {
		t.Error("update was sent for a task that does not exist")
	}
}

func TestUpdateTaskMergesPatchOverExisting(t *testing.T) {
	var updated capture[Task]
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Old #a #b","content":"notes","priority":1}`)
	})
	mux.HandleFunc("POST /task/t1", func(w http.ResponseWriter, r *http.Request) {
		task := decodeBody[Task](t, r)
		updated.store(task)
		json.NewEncoder(w).Encode(task)
	})
	svc := newTestService(t, mux)

	title := "New task"
	_, err := svc.UpdateTask(context.Background(), TaskPatch{
		ProjectID: "p1",
		TaskID:    "t1",
		Title:     &title,
		Tags:      []string{"x", "x", "y"},
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	sent, ok := updated.get()
	if !ok {
		t.Fatal("update endpoint was never hit")
	}
	if sent.Title != "New task #x #y" {
		t.Errorf("sent title = %q, want %q", sent.Title, "New task #x #y")
	}
	if sent.Content != "notes" {
		t.Errorf("sent content = %q, want untouched %q", sent.Content, "notes")
	}
	if sent.Priority != PriorityLow {
		t.Errorf("sent priority = %d, want untouched %d", sent.Priority, PriorityLow)
	}
}

func TestUpdateTaskTagsOnlyKeepsTitle(t *testing.T) {
	var updated capture[Task]
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Buy milk #home"}`)
	})
	mux.HandleFunc("POST /task/t1", func(w http.ResponseWriter, r *http.Request) {
		task := decodeBody[Task](t, r)
		updated.store(task)
		json.NewEncoder(w).Encode(task)
	})
	svc := newTestService(t, mux)

	_, err := svc.UpdateTask(context.Background(), TaskPatch{
		ProjectID: "p1",
		TaskID:    "t1",
		Tags:      []string{"errand"},
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	sent, _ := updated.get()
	if sent.Title != "Buy milk #errand" {
		t.Errorf("sent title = %q, want %q", sent.Title, "Buy milk #errand")
	}
}

func TestCompleteTaskAlreadyCompleted(t *testing.T) {
	var completes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Done already","status":2}`)
	})
	mux.HandleFunc("POST /project/p1/task/t1/complete", func(w http.ResponseWriter, r *http.Request) {
		completes.Add(1)
	})
	svc := newTestService(t, mux)

	res, err := svc.CompleteTask(context.Background(), "p1", "t1")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if !res.AlreadyCompleted {
		t.Error("AlreadyCompleted = false, want true")
	}
	if completes.Load() != 0 {
		t.Error("complete endpoint was hit for an already-completed task")
	}
}

func TestCompleteTask(t *testing.T) {
	var completes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Open","status":0}`)
	})
	mux.HandleFunc("POST /project/p1/task/t1/complete", func(w http.ResponseWriter, r *http.Request) {
		completes.Add(1)
	})
	svc := newTestService(t, mux)

	res, err := svc.CompleteTask(context.Background(), "p1", "t1")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if res.AlreadyCompleted {
		t.Error("AlreadyCompleted = true, want false")
	}
	if res.Task.Status != StatusCompleted {
		t.Errorf("result status = %d, want completed", res.Task.Status)
	}
	if completes.Load() != 1 {
		t.Errorf("complete endpoint hits = %d, want 1", completes.Load())
	}
}

func TestDeleteTaskConfirmed(t *testing.T) {
	var gone atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		if gone.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Doomed"}`)
	})
	mux.HandleFunc("DELETE /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		gone.Store(true)
	})
	svc := newTestService(t, mux)

	res, err := svc.DeleteTask(context.Background(), "p1", "t1")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if res.Outcome != OutcomeConfirmed {
		t.Errorf("outcome = %v, want confirmed", res.Outcome)
	}
	if res.Notice != "" {
		t.Errorf("notice = %q, want empty", res.Notice)
	}
}

func TestDeleteTaskSyncDelayedIsSuccess(t *testing.T) {
	mux := http.NewServeMux()
	// Direct lookup keeps resolving the ghost even after the delete.
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Ghost"}`)
	})
	mux.HandleFunc("DELETE /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("GET /project/p1/data", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"project":{"id":"p1"},"tasks":[]}`)
	})
	svc := newTestService(t, mux)

	res, err := svc.DeleteTask(context.Background(), "p1", "t1")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v, sync delay must not be an error", err)
	}
	if res.Outcome != OutcomeSyncDelayed {
		t.Errorf("outcome = %v, want sync-delayed", res.Outcome)
	}
	if res.Notice == "" {
		t.Error("notice is empty, want a propagation notice")
	}
}

func TestDeleteTaskFailedIsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","projectId":"p1","title":"Unkillable"}`)
	})
	mux.HandleFunc("DELETE /project/p1/task/t1", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("GET /project/p1/data", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"project":{"id":"p1"},"tasks":[{"id":"t1","title":"Unkillable"}]}`)
	})
	svc := newTestService(t, mux)

	_, err := svc.DeleteTask(context.Background(), "p1", "t1")
	if err == nil {
		t.Fatal("DeleteTask() error = nil, want an error when the task survives in both reads")
	}
}

func TestDeleteTaskMissingPreCheck(t *testing.T) {
	var deletes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/task/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("DELETE /project/p1/task/gone", func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
	})
	svc := newTestService(t, mux)

	_, err := svc.DeleteTask(context.Background(), "p1", "gone")
	if !IsNotFound(err) {
		t.Fatalf("DeleteTask() error = %v, want NotFoundError", err)
	}
	if deletes.Load() != 0 {
		t.Error("delete was sent for a task that does not exist")
	}
}

func TestListAllTasksSkipsUnreadableProjects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"p1","name":"Good"},{"id":"p2","name":"Broken"}]`)
	})
	mux.HandleFunc("GET /project/p1/data", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"project":{"id":"p1","name":"Good"},"tasks":[{"id":"t1","title":"A"}]}`)
	})
	mux.HandleFunc("GET /project/p2/data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc := newTestService(t, mux)

	groups, err := svc.ListAllTasks(context.Background())
	if err != nil {
		t.Fatalf("ListAllTasks() error = %v", err)
	}
	if len(groups) != 1 || groups[0].Project.ID != "p1" {
		t.Errorf("groups = %+v, want only the readable project", groups)
	}
	if len(groups[0].Tasks) != 1 {
		t.Errorf("tasks = %+v, want one", groups[0].Tasks)
	}
}

func TestFindOldTasks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"p1","name":"Work"}]`)
	})
	mux.HandleFunc("GET /project/p1/data", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"project":{"id":"p1","name":"Work"},"tasks":[
			{"id":"old","title":"Stale","modifiedTime":"2026-05-01T10:00:00.000+0000"},
			{"id":"new","title":"Fresh","modifiedTime":"2026-08-20T10:00:00.000+0000"},
			{"id":"undated","title":"No dates at all"}
		]}`)
	})
	svc := newTestService(t, mux)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	}

	groups, err := svc.FindOldTasks(context.Background(), 30)
	if err != nil {
		t.Fatalf("FindOldTasks() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Tasks) != 1 || groups[0].Tasks[0].ID != "old" {
		t.Errorf("old tasks = %+v, want only the stale one", groups[0].Tasks)
	}
}

func TestFindOldTasksValidation(t *testing.T) {
	svc := newTestService(t, http.NewServeMux())

	for _, days := range []int{0, -5} {
		_, err := svc.FindOldTasks(context.Background(), days)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("FindOldTasks(%d) error = %v, want ValidationError", days, err)
		}
	}
}

func TestCreateProjectAppliesDefaults(t *testing.T) {
	var created capture[Project]
	mux := http.NewServeMux()
	mux.HandleFunc("POST /project", func(w http.ResponseWriter, r *http.Request) {
		project := decodeBody[Project](t, r)
		created.store(project)
		project.ID = "p9"
		json.NewEncoder(w).Encode(project)
	})
	mux.HandleFunc("GET /project/p9", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"p9","name":"Garden","color":"#F18181","viewMode":"list","kind":"TASK"}`)
	})
	svc := newTestService(t, mux)

	res, err := svc.CreateProject(context.Background(), "Garden", "", "")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	sent, ok := created.get()
	if !ok {
		t.Fatal("create endpoint was never hit")
	}
	if sent.Color != DefaultProjectColor {
		t.Errorf("color = %q, want default %q", sent.Color, DefaultProjectColor)
	}
	if sent.ViewMode != ViewModeList {
		t.Errorf("viewMode = %q, want list", sent.ViewMode)
	}
	if sent.Kind != DefaultProjectKind {
		t.Errorf("kind = %q, want TASK", sent.Kind)
	}
	if res.Project.ID != "p9" {
		t.Errorf("project ID = %q, want p9", res.Project.ID)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Warnings)
	}
}

func TestCreateProjectRejectsUnknownViewMode(t *testing.T) {
	svc := newTestService(t, http.NewServeMux())

	_, err := svc.CreateProject(context.Background(), "Garden", "", "calendar")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if !strings.Contains(err.Error(), "calendar") {
		t.Errorf("error %q does not name the bad value", err)
	}
}

func TestDeleteProjectMissingPreCheck(t *testing.T) {
	var deletes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("DELETE /project/missing", func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
	})
	svc := newTestService(t, mux)

	_, err := svc.DeleteProject(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("DeleteProject() error = %v, want NotFoundError", err)
	}
	if deletes.Load() != 0 {
		t.Error("delete was sent for a project that does not exist")
	}
}

func TestDeleteProjectConfirmed(t *testing.T) {
	var gone atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1", func(w http.ResponseWriter, r *http.Request) {
		if gone.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"id":"p1","name":"Doomed"}`)
	})
	mux.HandleFunc("DELETE /project/p1", func(w http.ResponseWriter, r *http.Request) {
		gone.Store(true)
	})
	svc := newTestService(t, mux)

	res, err := svc.DeleteProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if res.Outcome != OutcomeConfirmed {
		t.Errorf("outcome = %v, want confirmed", res.Outcome)
	}
}

func TestGetTaskValidation(t *testing.T) {
	svc := newTestService(t, http.NewServeMux())

	if _, err := svc.GetTask(context.Background(), "", "t1"); err == nil {
		t.Error("GetTask() with empty project ID returned nil error")
	}
	if _, err := svc.GetTask(context.Background(), "p1", ""); err == nil {
		t.Error("GetTask() with empty task ID returned nil error")
	}
}
