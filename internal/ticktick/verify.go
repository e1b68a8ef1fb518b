package ticktick

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/tags"
)

// Verification timing defaults. The remote consistency window is observed
// behavior, not a documented contract, so both knobs are configuration.
const (
	DefaultDeleteWait   = 1 * time.Second
	DefaultDeleteChecks = 1
)

// VerifyConfig controls post-operation verification timing.
type VerifyConfig struct {
	// DeleteWait is the propagation wait before each direct re-fetch of a
	// deleted resource
	DeleteWait time.Duration

	// DeleteChecks is the number of direct re-fetch rounds before the
	// listing cross-check decides the outcome
	DeleteChecks int
}

func (c *VerifyConfig) withDefaults() VerifyConfig {
	out := *c
	if out.DeleteWait == 0 {
		out.DeleteWait = DefaultDeleteWait
	}
	if out.DeleteChecks == 0 {
		out.DeleteChecks = DefaultDeleteChecks
	}
	return out
}

// Outcome is the tri-state result of a post-operation verification.
type Outcome int

const (
	// OutcomeConfirmed means the remote state matches the operation's intent.
	OutcomeConfirmed Outcome = iota

	// OutcomeSyncDelayed means the operation very likely succeeded but the
	// remote state is not yet consistent. It is a success with a notice,
	// never an error.
	OutcomeSyncDelayed

	// OutcomeFailed means the remote state contradicts the operation.
	OutcomeFailed
)

// String implements fmt.Stringer
func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeSyncDelayed:
		return "sync-delayed"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Verifier bridges the gap between "the remote call returned success" and
// "the caller can trust the new state". Its delete check absorbs the remote
// service's eventual-consistency artifacts so they are not misreported as
// user-facing errors: a just-deleted task is routinely still returned by
// direct lookup while already absent from the project's task listing, and
// the listing is treated as authoritative.
type Verifier struct {
	client *Client
	cfg    VerifyConfig
	logger *slog.Logger

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewVerifier creates a verifier reading through the given client.
func NewVerifier(client *Client, cfg VerifyConfig, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: logger,
		sleep:  sleepContext,
	}
}

// EnsureTask is the pre-mutation existence check: it fetches the task and
// fails fast with NotFoundError before any destructive call is issued.
func (v *Verifier) EnsureTask(ctx context.Context, projectID, taskID string) (*Task, error) {
	return v.client.GetTask(ctx, projectID, taskID)
}

// EnsureProject is the pre-mutation existence check for projects.
func (v *Verifier) EnsureProject(ctx context.Context, projectID string) (*Project, error) {
	return v.client.GetProject(ctx, projectID)
}

// CheckTaskState re-fetches a task after a create or update and compares the
// materially relevant fields against the intended state. Mismatches come
// back as warnings on the otherwise-successful result; they are never
// silently dropped and never turned into errors.
func (v *Verifier) CheckTaskState(ctx context.Context, projectID, taskID string, want Task, wantTags []string) []string {
	got, err := v.client.GetTask(ctx, projectID, taskID)
	if err != nil {
		return []string{fmt.Sprintf("could not verify task state: %v", err)}
	}

	var warnings []string
	if want.Title != "" && got.Title != want.Title {
		warnings = append(warnings, fmt.Sprintf("title is %q, expected %q", got.Title, want.Title))
	}
	if want.StartDate != "" && !sameInstant(got.StartDate, want.StartDate) {
		warnings = append(warnings, fmt.Sprintf("start date is %q, expected %q", got.StartDate, want.StartDate))
	}
	if want.DueDate != "" && !sameInstant(got.DueDate, want.DueDate) {
		warnings = append(warnings, fmt.Sprintf("due date is %q, expected %q", got.DueDate, want.DueDate))
	}
	if got.Priority != want.Priority {
		warnings = append(warnings, fmt.Sprintf("priority is %s, expected %s", PriorityName(got.Priority), PriorityName(want.Priority)))
	}
	if len(wantTags) > 0 {
		_, gotTags := tags.Extract(got.Title)
		if !slices.Equal(gotTags, tags.Dedup(wantTags)) {
			warnings = append(warnings, fmt.Sprintf("tags are %v, expected %v", gotTags, tags.Dedup(wantTags)))
		}
	}
	return warnings
}

// CheckProjectState re-fetches a project after creation and compares the
// requested fields.
func (v *Verifier) CheckProjectState(ctx context.Context, projectID string, want Project) []string {
	got, err := v.client.GetProject(ctx, projectID)
	if err != nil {
		return []string{fmt.Sprintf("could not verify project state: %v", err)}
	}

	var warnings []string
	if want.Name != "" && got.Name != want.Name {
		warnings = append(warnings, fmt.Sprintf("name is %q, expected %q", got.Name, want.Name))
	}
	if want.ViewMode != "" && got.ViewMode != want.ViewMode {
		warnings = append(warnings, fmt.Sprintf("view mode is %q, expected %q", got.ViewMode, want.ViewMode))
	}
	if want.Color != "" && got.Color != want.Color {
		warnings = append(warnings, fmt.Sprintf("color is %q, expected %q", got.Color, want.Color))
	}
	return warnings
}

// ConfirmTaskDeleted decides whether a successful delete call actually took
// effect:
//
//  1. wait for propagation, then re-fetch the task directly;
//  2. absent: Confirmed;
//  3. still present: cross-check the project's task listing, which is the
//     authoritative read for deletions;
//  4. absent from the listing: SyncDelayed, a success with a notice;
//  5. present in both: Failed.
//
// Verification reads that themselves fail cannot disprove the delete, so
// they yield SyncDelayed with the failure in the notice.
func (v *Verifier) ConfirmTaskDeleted(ctx context.Context, projectID, taskID string) (Outcome, string) {
	for i := 0; i < v.cfg.DeleteChecks; i++ {
		if err := v.sleep(ctx, v.cfg.DeleteWait); err != nil {
			return OutcomeSyncDelayed, fmt.Sprintf("verification canceled: %v", err)
		}
		_, err := v.client.GetTask(ctx, projectID, taskID)
		if IsNotFound(err) {
			return OutcomeConfirmed, ""
		}
		if err != nil {
			return OutcomeSyncDelayed, fmt.Sprintf("delete accepted but verification read failed: %v", err)
		}
	}

	data, err := v.client.GetProjectData(ctx, projectID)
	if err != nil {
		if IsNotFound(err) {
			// The whole project is gone; nothing can list the task anymore.
			return OutcomeConfirmed, ""
		}
		return OutcomeSyncDelayed, fmt.Sprintf("delete accepted but listing cross-check failed: %v", err)
	}
	for _, t := range data.Tasks {
		if t.ID == taskID {
			v.logger.Warn("deleted task still present in project listing",
				logging.Project(projectID),
				logging.Task(taskID),
			)
			return OutcomeFailed, ""
		}
	}

	v.logger.Debug("deleted task still resolvable by ID but absent from listing",
		logging.Project(projectID),
		logging.Task(taskID),
	)
	return OutcomeSyncDelayed, "the task no longer appears in the project listing; removal is still propagating"
}

// ConfirmProjectDeleted is the delete verification for projects, with the
// project catalog as the authoritative listing.
func (v *Verifier) ConfirmProjectDeleted(ctx context.Context, projectID string) (Outcome, string) {
	for i := 0; i < v.cfg.DeleteChecks; i++ {
		if err := v.sleep(ctx, v.cfg.DeleteWait); err != nil {
			return OutcomeSyncDelayed, fmt.Sprintf("verification canceled: %v", err)
		}
		_, err := v.client.GetProject(ctx, projectID)
		if IsNotFound(err) {
			return OutcomeConfirmed, ""
		}
		if err != nil {
			return OutcomeSyncDelayed, fmt.Sprintf("delete accepted but verification read failed: %v", err)
		}
	}

	projects, err := v.client.GetProjects(ctx)
	if err != nil {
		return OutcomeSyncDelayed, fmt.Sprintf("delete accepted but listing cross-check failed: %v", err)
	}
	for _, p := range projects {
		if p.ID == projectID {
			return OutcomeFailed, ""
		}
	}
	return OutcomeSyncDelayed, "the project no longer appears in the project list; removal is still propagating"
}

// sameInstant compares two timestamp strings by the instant they denote, so
// formatting differences between what was sent and what the API echoes back
// do not produce false mismatch warnings.
func sameInstant(a, b string) bool {
	if a == b {
		return true
	}
	ta, errA := ParseTime(a)
	tb, errB := ParseTime(b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.Equal(tb)
}
