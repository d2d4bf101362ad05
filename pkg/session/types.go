package session

import "github.com/drivescribe/drivescribe/pkg/drivelist"

// FlashRequest is the FSM input describing one flash session. Exactly one of
// ImagePath (local image) or Source (remote image) is set; remote sources
// enter the download phase, local images skip it.
type FlashRequest struct {
	SessionID string
	ImagePath string
	Source    string
	Drive     drivelist.Drive
}

// FlashResponse is the FSM output, accumulated across transitions.
type FlashResponse struct {
	// From Prepare
	SessionRowID int64

	// From Download
	LocalPath    string
	SHA256       string
	DownloadSize int64

	// From Validate
	ImagePath string
	ImageBase string

	// From Flash
	BytesWritten int64

	// Terminal outcome, set by the orchestrator
	Status       string
	ErrorKind    string
	ErrorMessage string
}

// State names
const (
	StatePrepare  = "prepare"
	StateDownload = "download"
	StateValidate = "validate"
	StateFlash    = "flash"
	StateComplete = "complete"
	StateFailed   = "failed"
)
