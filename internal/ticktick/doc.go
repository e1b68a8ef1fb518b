// Package ticktick provides a client for managing TickTick tasks and projects.
//
// This package wraps the TickTick Open API (open/v1) and provides functionality for:
//   - Managing projects (list, get, create, delete)
//   - Managing tasks (list, get, create, update, complete, delete)
//   - Batch task creation with per-item outcomes
//   - Finding stale tasks by their last activity
//
// The package is layered. TokenStore owns the OAuth2 credentials and keeps the
// access token fresh. Executor issues authenticated requests and classifies
// every response into a small error taxonomy (AuthError, NotFoundError,
// RateLimitError, TransientError, APIError). Client maps the REST endpoints.
// Service sits on top: it validates inputs, renders tags into titles, verifies
// mutations after the fact and is the only layer the MCP tools talk to.
//
// # Authentication
//
// TickTick issues OAuth2 tokens per app registration. Credentials are stored
// per-account in the user's config directory; run "ticktick-mcp auth" to
// authorize an account. The refresh flow is automatic, and an AuthError always
// means the stored grant is unusable and the auth command must be re-run.
//
// # Verification
//
// The TickTick backend is eventually consistent. Mutations therefore go
// through a verification pass: creates and updates are re-fetched and
// field-compared (mismatches become warnings on the successful result), and
// deletes are confirmed against the project's task listing, which observably
// reflects deletions before direct by-ID lookups do. A delete that is accepted
// but not yet visible everywhere is reported as a success with a sync-delay
// notice, never as an error.
//
// # Example Usage
//
//	store, err := ticktick.NewTokenStore(path, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc := ticktick.NewService(store, ticktick.ServiceConfig{}, logger)
//
//	// Create a task with tags
//	res, err := svc.CreateTask(ctx, ticktick.TaskSpec{
//	    ProjectID: "inbox",
//	    Title:     "Buy milk",
//	    Tags:      []string{"errand"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Delete it and inspect the verified outcome
//	del, err := svc.DeleteTask(ctx, res.Task.ProjectID, res.Task.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if del.Outcome == ticktick.OutcomeSyncDelayed {
//	    fmt.Println(del.Notice)
//	}
package ticktick
