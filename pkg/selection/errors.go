package selection

import "fmt"

// InvalidImageError rejects a candidate whose path fails format validation.
type InvalidImageError struct {
	Path string
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image: %s is not a supported format", e.Path)
}

// OpenImageError reports a failure to resolve on-disk metadata for a path.
type OpenImageError struct {
	Basename string
	Cause    error
}

func (e *OpenImageError) Error() string {
	return fmt.Sprintf("something went wrong while opening %s: %v", e.Basename, e.Cause)
}

func (e *OpenImageError) Unwrap() error {
	return e.Cause
}

// ErrTooManyReselects aborts a selection after the user declined the risk
// prompt more times than the configured budget allows.
type ErrTooManyReselects struct {
	Attempts int
}

func (e *ErrTooManyReselects) Error() string {
	return fmt.Sprintf("image selection abandoned after %d attempts", e.Attempts)
}
