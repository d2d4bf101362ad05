package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drivescribe/drivescribe/pkg/db"
	"github.com/drivescribe/drivescribe/pkg/errors"
	"github.com/drivescribe/drivescribe/pkg/flasher"
	"github.com/drivescribe/drivescribe/pkg/progress"
	"github.com/drivescribe/drivescribe/pkg/selection"
	"github.com/drivescribe/drivescribe/pkg/storage"
	"github.com/superfly/fsm"
)

// validationKind maps a selection-stage failure onto the failure taxonomy.
func validationKind(err error) flasher.FailureKind {
	var invalidErr *selection.InvalidImageError
	var openErr *selection.OpenImageError
	switch {
	case stderrors.As(err, &invalidErr):
		return flasher.FailureInvalidImage
	case stderrors.As(err, &openErr):
		return flasher.FailureOpenImage
	default:
		return flasher.FailureUnknown
	}
}

// handlePrepare creates the session history record.
func (m *Machine) handlePrepare(ctx context.Context, req *fsm.Request[FlashRequest, FlashResponse]) (*fsm.Response[FlashResponse], error) {
	slog.Info("fsm_state_prepare", "session", req.Msg.SessionID, "device", req.Msg.Drive.Device)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "session", req.Msg.SessionID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &FlashResponse{}
	}

	// A retried session keeps its original row.
	existing, err := m.repo.GetByUUID(req.Msg.SessionID)
	if err != nil {
		slog.Error("database_check_failed", "session", req.Msg.SessionID, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "database error"))
	}
	if existing != nil {
		resp.SessionRowID = existing.ID
		slog.Info("session_record_found", "session", req.Msg.SessionID, "row_id", existing.ID)
		return fsm.NewResponse(resp), nil
	}

	source := req.Msg.Source
	if source == "" {
		source = req.Msg.ImagePath
	}

	record := &db.Session{
		UUID:             req.Msg.SessionID,
		Source:           source,
		DriveDevice:      req.Msg.Drive.Device,
		DriveDescription: req.Msg.Drive.Description,
		Status:           db.StatusPending,
	}
	if err := m.repo.Create(record); err != nil {
		slog.Error("create_session_failed", "session", req.Msg.SessionID, "error", err)
		return nil, errors.Wrap(err, "failed to create session record")
	}

	resp.SessionRowID = record.ID
	slog.Info("session_record_created", "session", req.Msg.SessionID, "row_id", record.ID)

	return fsm.NewResponse(resp), nil
}

// handleDownload streams a remote source into the staging file. Local
// images skip the phase entirely: no download progress record is ever
// published for them.
func (m *Machine) handleDownload(ctx context.Context, req *fsm.Request[FlashRequest, FlashResponse]) (*fsm.Response[FlashResponse], error) {
	slog.Info("fsm_state_download", "session", req.Msg.SessionID)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "session", req.Msg.SessionID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	if req.Msg.ImagePath != "" {
		slog.Info("download_skipped_local_image", "session", req.Msg.SessionID, "path", req.Msg.ImagePath)
		resp.LocalPath = req.Msg.ImagePath
		return fsm.NewResponse(resp), nil
	}

	if m.downloader == nil {
		return nil, fsm.Abort(fmt.Errorf("no downloader configured for remote source %s", req.Msg.Source))
	}

	if err := m.repo.UpdateStatus(resp.SessionRowID, db.StatusDownloading, "", ""); err != nil {
		return nil, errors.Wrap(err, "failed to update status")
	}

	downloadDir := filepath.Join(m.workDir, "downloads")
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		slog.Error("download_dir_creation_failed", "path", downloadDir, "error", err)
		return nil, errors.Wrap(err, "failed to create download dir")
	}

	stagingPath := filepath.Join(downloadDir, storage.StagingFilename)
	slog.Info("download_started", "session", req.Msg.SessionID, "source", req.Msg.Source, "staging", stagingPath)

	m.state.SetDownloading(true)
	defer m.state.SetDownloading(false)

	result, err := m.downloader.Download(ctx, req.Msg.Source, stagingPath, func(tp storage.TransferProgress) {
		m.state.Publish(progress.Record{
			Phase:         progress.PhaseDownload,
			Percentage:    tp.Percentage,
			ETASeconds:    tp.ETASeconds,
			SpeedBPS:      tp.SpeedBPS,
			Indeterminate: tp.Indeterminate,
		})
	})
	if err != nil {
		slog.Error("download_failed", "session", req.Msg.SessionID, "error", err)
		return nil, errors.Wrap(err, "failed to download image")
	}

	if m.maxImageSize > 0 && result.Size > m.maxImageSize {
		slog.Error("downloaded_image_too_large", "size", result.Size, "max", m.maxImageSize)
		return nil, fsm.Abort(fmt.Errorf("downloaded image size %d exceeds limit %d", result.Size, m.maxImageSize))
	}

	slog.Info("download_complete",
		"session", req.Msg.SessionID,
		"size_mb", result.Size/1024/1024,
		"sha256", result.SHA256[:16]+"...",
	)

	resp.LocalPath = result.LocalPath
	resp.SHA256 = result.SHA256
	resp.DownloadSize = result.Size

	record, _ := m.repo.GetByUUID(req.Msg.SessionID)
	if record != nil {
		record.ImagePath = result.LocalPath
		record.SHA256 = result.SHA256
		if err := m.repo.Update(record); err != nil {
			return nil, errors.Wrap(err, "failed to update session")
		}
	}

	return fsm.NewResponse(resp), nil
}

// handleValidate runs the resolved local path through the image selector.
// A rejection aborts the session before the writer is ever invoked.
func (m *Machine) handleValidate(ctx context.Context, req *fsm.Request[FlashRequest, FlashResponse]) (*fsm.Response[FlashResponse], error) {
	slog.Info("fsm_state_validate", "session", req.Msg.SessionID)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "session", req.Msg.SessionID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	if err := m.repo.UpdateStatus(resp.SessionRowID, db.StatusValidating, "", ""); err != nil {
		return nil, errors.Wrap(err, "failed to update status")
	}

	committed, err := m.selector.SelectByPath(ctx, resp.LocalPath)
	if err != nil {
		slog.Error("image_validation_failed", "session", req.Msg.SessionID, "error", err)
		// Record the classification on the response; the error chain is not
		// guaranteed to survive the FSM boundary intact.
		resp.ErrorKind = validationKind(err).String()
		resp.ErrorMessage = err.Error()
		return nil, fsm.Abort(err)
	}

	resp.ImagePath = committed.Path
	resp.ImageBase = filepath.Base(committed.Path)

	slog.Info("image_validated", "session", req.Msg.SessionID, "image", resp.ImageBase)
	return fsm.NewResponse(resp), nil
}

// handleFlash invokes the writer with the committed image and the chosen
// drive, normalizing the writer's progress stream into the shared model.
func (m *Machine) handleFlash(ctx context.Context, req *fsm.Request[FlashRequest, FlashResponse]) (*fsm.Response[FlashResponse], error) {
	slog.Info("fsm_state_flash", "session", req.Msg.SessionID, "device", req.Msg.Drive.Device)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "session", req.Msg.SessionID, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	if err := m.repo.UpdateStatus(resp.SessionRowID, db.StatusFlashing, "", ""); err != nil {
		return nil, errors.Wrap(err, "failed to update status")
	}

	err := m.writer.Flash(ctx, resp.ImagePath, req.Msg.Drive, func(ev flasher.ProgressEvent) {
		phase := progress.PhaseFlash
		if ev.Type == flasher.EventValidate {
			phase = progress.PhaseValidate
		}
		m.state.Publish(progress.Record{
			Phase:         phase,
			Percentage:    ev.Percentage,
			ETASeconds:    ev.ETASeconds,
			SpeedBPS:      ev.SpeedBPS,
			Indeterminate: ev.Indeterminate,
		})
		resp.BytesWritten = ev.BytesWritten
	})
	if err != nil {
		slog.Error("flash_failed", "session", req.Msg.SessionID, "error", err)
		resp.ErrorKind = flasher.Classify(err).String()
		resp.ErrorMessage = err.Error()
		return nil, fsm.Abort(err)
	}

	slog.Info("flash_complete", "session", req.Msg.SessionID, "bytes_written", resp.BytesWritten)
	return fsm.NewResponse(resp), nil
}

// handleComplete is the success end of the pipeline. Terminal status and
// notifications are owned by the orchestrator, which also knows about
// cancellation.
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[FlashRequest, FlashResponse]) (*fsm.Response[FlashResponse], error) {
	slog.Info("fsm_state_complete", "session", req.Msg.SessionID)

	resp := req.W.Msg
	if resp == nil {
		resp = &FlashResponse{}
	}

	return fsm.NewResponse(resp), nil
}
