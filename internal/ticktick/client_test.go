package ticktick

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(NewExecutor(&stubTokens{token: "test-token"}, ExecutorConfig{
		BaseURL:    srv.URL,
		MaxRetries: 1,
	}))
}

func TestClientNotFoundNamesTheResource(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetTask(context.Background(), "p1", "t404")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("GetTask() error = %v, want NotFoundError", err)
	}
	if nf.Kind != "task" || nf.ID != "t404" {
		t.Errorf("NotFoundError = %+v, want kind task, id t404", nf)
	}

	_, err = client.GetProject(context.Background(), "p404")
	if !errors.As(err, &nf) {
		t.Fatalf("GetProject() error = %v, want NotFoundError", err)
	}
	if nf.Kind != "project" || nf.ID != "p404" {
		t.Errorf("NotFoundError = %+v, want kind project, id p404", nf)
	}
}

func TestClientEscapesPathSegments(t *testing.T) {
	var path capture[string]
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.store(r.URL.EscapedPath())
		fmt.Fprint(w, `{}`)
	}))

	_, err := client.GetTask(context.Background(), "a/b", "t 1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	got, _ := path.get()
	if got != "/project/a%2Fb/task/t%201" {
		t.Errorf("request path = %q, want escaped segments", got)
	}
}

func TestClientUpdateRequiresID(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	_, err := client.UpdateTask(context.Background(), Task{ProjectID: "p1", Title: "No ID"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("UpdateTask() error = %v, want ValidationError", err)
	}
}

func TestClientGetProjectData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project/p1/data", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"project": {"id": "p1", "name": "Inbox"},
			"tasks": [{"id": "t1", "title": "A"}, {"id": "t2", "title": "B"}],
			"columns": [{"id": "c1", "name": "Backlog"}]
		}`)
	})
	client := newTestClient(t, mux)

	data, err := client.GetProjectData(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProjectData() error = %v", err)
	}
	if data.Project.Name != "Inbox" {
		t.Errorf("project = %+v", data.Project)
	}
	if len(data.Tasks) != 2 || len(data.Columns) != 1 {
		t.Errorf("tasks = %d, columns = %d, want 2 and 1", len(data.Tasks), len(data.Columns))
	}
}
