package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/drivescribe/drivescribe/pkg/db"
	"github.com/drivescribe/drivescribe/pkg/drivelist"
	"github.com/drivescribe/drivescribe/pkg/flasher"
	"github.com/drivescribe/drivescribe/pkg/notify"
	"github.com/drivescribe/drivescribe/pkg/progress"
	"github.com/drivescribe/drivescribe/pkg/selection"
	"github.com/superfly/fsm"
)

// Runner executes the phase machine for one session. The indirection keeps
// the orchestrator's entry/exit invariants testable without a BoltDB-backed
// FSM manager.
type Runner interface {
	Run(ctx context.Context, req *FlashRequest, resp *FlashResponse) error
}

// FSMRunner drives a registered superfly/fsm machine.
type FSMRunner struct {
	manager *fsm.Manager
	start   fsm.Start[FlashRequest, FlashResponse]
}

// NewFSMRunner registers the machine on the manager and returns a runner
// for it.
func NewFSMRunner(ctx context.Context, manager *fsm.Manager, machine *Machine) (*FSMRunner, error) {
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return nil, err
	}
	return &FSMRunner{manager: manager, start: start}, nil
}

func (r *FSMRunner) Run(ctx context.Context, req *FlashRequest, resp *FlashResponse) error {
	version, err := r.start(ctx, req.SessionID, fsm.NewRequest(req, resp))
	if err != nil {
		return fmt.Errorf("fsm start failed: %w", err)
	}
	slog.Info("fsm_started", "session", req.SessionID, "version", version)
	return r.manager.Wait(ctx, version)
}

// Orchestrator wraps a session run with the process-wide invariants: the
// single-session guard, drive scanning suspension, terminal classification,
// and notification routing.
type Orchestrator struct {
	runner   Runner
	repo     *db.Repository
	state    *progress.State
	scanner  drivelist.Scanner
	notifier notify.Notifier
	diag     notify.Sink
}

// NewOrchestrator creates the session orchestrator. repo may be nil, in
// which case terminal statuses are not persisted.
func NewOrchestrator(runner Runner, repo *db.Repository, state *progress.State,
	scanner drivelist.Scanner, notifier notify.Notifier, diag notify.Sink) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		repo:     repo,
		state:    state,
		scanner:  scanner,
		notifier: notifier,
		diag:     diag,
	}
}

// Run executes one flash session end to end. When a session is already
// active it returns (nil, nil): starting a second session is a no-op, not
// an error. Drive scanning is suspended on entry and resumed on every exit
// path, and the flashing flag is always cleared, even when the runner fails
// before reaching a phase.
func (o *Orchestrator) Run(ctx context.Context, req *FlashRequest) (*FlashResponse, error) {
	if !o.state.TryBegin() {
		slog.Info("flash_session_refused", "reason", "session_already_active", "session", req.SessionID)
		return nil, nil
	}

	resp := &FlashResponse{}
	defer func() {
		o.scanner.Start()
		o.state.End()
	}()
	o.scanner.Stop()

	slog.Info("flash_session_start",
		"session", req.SessionID,
		"device", req.Drive.Device,
		"source", req.Source,
		"image", req.ImagePath,
	)

	err := o.runner.Run(ctx, req, resp)
	o.finish(req, resp, err)

	if resp.Status == db.StatusFailed {
		return resp, err
	}
	return resp, nil
}

// Cancel marks the running session cancelled. The in-flight phase is left
// to its own cancellation contract; the orchestrator only suppresses the
// terminal notification.
func (o *Orchestrator) Cancel() {
	o.state.RequestCancel()
	slog.Info("flash_session_cancel_requested")
}

// terminalKind resolves the failure category, preferring the typed error
// chain and falling back to the kind a handler recorded on the response
// before the error crossed the FSM boundary.
func terminalKind(resp *FlashResponse, err error) flasher.FailureKind {
	var invalidErr *selection.InvalidImageError
	var openErr *selection.OpenImageError
	switch {
	case errors.As(err, &invalidErr):
		return flasher.FailureInvalidImage
	case errors.As(err, &openErr):
		return flasher.FailureOpenImage
	}
	if kind := flasher.Classify(err); kind != flasher.FailureUnknown {
		return kind
	}
	if resp.ErrorKind != "" {
		return flasher.ParseFailureKind(resp.ErrorKind)
	}
	return flasher.FailureUnknown
}

// finish classifies the terminal outcome, persists it, and routes
// notifications. Cancelled sessions suppress success and failure
// notifications entirely.
func (o *Orchestrator) finish(req *FlashRequest, resp *FlashResponse, err error) {
	switch {
	case o.state.Cancelled():
		resp.Status = db.StatusCancelled
		if err != nil {
			// A failure surfacing after cancellation is recorded but not
			// shown to the user.
			resp.ErrorMessage = err.Error()
			o.diag.LogEvent("session_error_after_cancel", map[string]any{
				"session": req.SessionID,
				"error":   err.Error(),
			})
		}
		slog.Info("flash_session_cancelled", "session", req.SessionID)

	case err == nil:
		resp.Status = db.StatusSucceeded
		slog.Info("flash_session_succeeded", "session", req.SessionID, "image", resp.ImageBase)
		o.notifier.Send("Flash complete!", notify.Options{
			Body: fmt.Sprintf("%s was successfully written to %s", resp.ImageBase, req.Drive.Description),
		})

	default:
		resp.Status = db.StatusFailed
		if resp.ErrorMessage == "" {
			resp.ErrorMessage = err.Error()
		}

		kind := terminalKind(resp, err)
		resp.ErrorKind = kind.String()

		switch kind {
		case flasher.FailureInvalidImage, flasher.FailureOpenImage:
			// Already surfaced by the selector at the point of detection.
		default:
			o.notifier.Send("Oops! Looks like the flash failed.", notify.Options{Body: kind.Message()})
			if kind == flasher.FailureUnknown {
				o.diag.Report(err)
			}
		}
		slog.Error("flash_session_failed", "session", req.SessionID, "kind", resp.ErrorKind, "error", err)
	}

	if o.repo != nil && resp.SessionRowID != 0 {
		if dbErr := o.repo.UpdateStatus(resp.SessionRowID, resp.Status, resp.ErrorKind, resp.ErrorMessage); dbErr != nil {
			slog.Error("terminal_status_update_failed", "session", req.SessionID, "error", dbErr)
		}
	}
}
