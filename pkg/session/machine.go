// Package session implements the flash session orchestrator: a finite state
// machine sequencing download, validation, and the disk write, plus the
// wrapper enforcing the single-session and scanner-resume invariants.
package session

import (
	"context"

	"github.com/drivescribe/drivescribe/pkg/db"
	"github.com/drivescribe/drivescribe/pkg/errors"
	"github.com/drivescribe/drivescribe/pkg/flasher"
	"github.com/drivescribe/drivescribe/pkg/progress"
	"github.com/drivescribe/drivescribe/pkg/selection"
	"github.com/drivescribe/drivescribe/pkg/storage"
	"github.com/superfly/fsm"
)

// Machine holds the dependencies the FSM transitions operate on.
type Machine struct {
	repo         *db.Repository
	downloader   storage.Downloader
	selector     *selection.Selector
	writer       flasher.Writer
	state        *progress.State
	workDir      string
	maxImageSize int64
	maxRetries   int
}

// NewMachine creates a session machine with its dependencies. downloader may
// be nil when the request carries a local image path.
func NewMachine(
	repo *db.Repository,
	downloader storage.Downloader,
	selector *selection.Selector,
	writer flasher.Writer,
	state *progress.State,
	workDir string,
	maxImageSize int64,
	maxRetries int,
) *Machine {
	return &Machine{
		repo:         repo,
		downloader:   downloader,
		selector:     selector,
		writer:       writer,
		state:        state,
		workDir:      workDir,
		maxImageSize: maxImageSize,
		maxRetries:   maxRetries,
	}
}

// Register registers the flash session FSM. Phases run strictly in
// sequence; the failed state is terminal.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[FlashRequest, FlashResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[FlashRequest, FlashResponse](manager, "flash-session").
		Start(StatePrepare, m.handlePrepare).
		To(StateDownload, m.handleDownload).
		To(StateValidate, m.handleValidate).
		To(StateFlash, m.handleFlash).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}
