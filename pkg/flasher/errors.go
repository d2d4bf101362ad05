package flasher

import (
	"errors"
	"fmt"
)

// Writer error codes. The set is closed: anything else the writer produces
// is classified as FailureUnknown.
const (
	CodeValidation = "EVALIDATION"
	CodeUnplugged  = "EUNPLUGGED"
	CodeIO         = "EIO"
	CodeNoSpace    = "ENOSPC"
)

// WriterError is the tagged error the writer boundary produces. Callers
// never compare code strings at call sites; Classify translates the code
// into a FailureKind exactly once.
type WriterError struct {
	Code string
	Err  error
}

func (e *WriterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("flash failed (%s)", e.Code)
	}
	return fmt.Sprintf("flash failed (%s): %v", e.Code, e.Err)
}

func (e *WriterError) Unwrap() error {
	return e.Err
}

// FailureKind is the user-facing failure category of a flash session.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureInvalidImage
	FailureOpenImage
	FailureValidation
	FailureUnplugged
	FailureIO
	FailureNoSpace
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidImage:
		return "invalid_image"
	case FailureOpenImage:
		return "open_image"
	case FailureValidation:
		return "validation"
	case FailureUnplugged:
		return "unplugged"
	case FailureIO:
		return "io"
	case FailureNoSpace:
		return "no_space"
	default:
		return "unknown"
	}
}

// Message returns the user-facing message for the failure kind.
func (k FailureKind) Message() string {
	switch k {
	case FailureInvalidImage:
		return "The selected file is not a supported disk image."
	case FailureOpenImage:
		return "Something went wrong while opening the selected image."
	case FailureValidation:
		return "The write has been verified and the data on the drive does not match the image. The drive may be corrupted; try a different one."
	case FailureUnplugged:
		return "Looks like the drive was unplugged. Please reinsert it and try again."
	case FailureIO:
		return "The drive is unresponsive. Please try again, or try a different drive."
	case FailureNoSpace:
		return "Not enough space on the drive. Please insert a larger one and try again."
	default:
		return "Oops, something went wrong. Please try again, and report the issue if it persists."
	}
}

// ParseFailureKind is the inverse of FailureKind.String. Unrecognized names
// map to FailureUnknown.
func ParseFailureKind(s string) FailureKind {
	switch s {
	case "invalid_image":
		return FailureInvalidImage
	case "open_image":
		return FailureOpenImage
	case "validation":
		return FailureValidation
	case "unplugged":
		return FailureUnplugged
	case "io":
		return FailureIO
	case "no_space":
		return FailureNoSpace
	default:
		return FailureUnknown
	}
}

// Classify maps a writer-stage error onto the failure taxonomy. Errors that
// are not a *WriterError, or carry an unrecognized code, map to
// FailureUnknown; only that category is forwarded to the diagnostic sink.
func Classify(err error) FailureKind {
	var werr *WriterError
	if !errors.As(err, &werr) {
		return FailureUnknown
	}
	switch werr.Code {
	case CodeValidation:
		return FailureValidation
	case CodeUnplugged:
		return FailureUnplugged
	case CodeIO:
		return FailureIO
	case CodeNoSpace:
		return FailureNoSpace
	default:
		return FailureUnknown
	}
}
