// Package flasher defines the disk writer contract, its progress events, and
// the bounded failure taxonomy the orchestrator maps writer errors into.
package flasher

import (
	"context"

	"github.com/drivescribe/drivescribe/pkg/drivelist"
)

// EventType distinguishes the writer's sub-phases.
type EventType int

const (
	// EventFlash reports progress of the write pass.
	EventFlash EventType = iota
	// EventValidate reports progress of the post-write checksum pass.
	EventValidate
)

// ProgressEvent is a single progress report from the writer.
type ProgressEvent struct {
	Type          EventType
	Percentage    int
	BytesWritten  int64
	SpeedBPS      float64
	ETASeconds    int
	Indeterminate bool
}

// Writer writes an image to a drive. Implementations honor ctx cancellation
// and report errors as *WriterError with one of the registered codes where
// the cause is understood.
type Writer interface {
	Flash(ctx context.Context, imagePath string, drive drivelist.Drive, onProgress func(ProgressEvent)) error
}
