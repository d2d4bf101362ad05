package selection

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/drivescribe/drivescribe/pkg/imagefile"
	"github.com/drivescribe/drivescribe/pkg/notify"
)

// Risk warning messages, at most one of which fires per candidate. The
// Windows heuristic is evaluated first and takes precedence.
const (
	warningWindowsImage     = "Looks like a Windows image. Windows images are usually not bootable when written directly; you may want a dedicated tool instead."
	warningNoPartitionTable = "The image does not appear to contain a partition table and may not be recognized by some devices."
)

// MetadataResolver resolves on-disk metadata for a candidate path.
type MetadataResolver interface {
	GetImageMetadata(ctx context.Context, path string) (*imagefile.Descriptor, error)
}

// PromptOptions configures a risk confirmation prompt.
type PromptOptions struct {
	ConfirmLabel string
	RejectLabel  string
	Description  string
}

// Prompt asks the user to confirm a risky selection. It returns true when
// the user chooses to go back and reselect, false to accept the risk.
type Prompt interface {
	Display(ctx context.Context, opts PromptOptions) (bool, error)
}

// CandidateSource supplies the next candidate when the user declines the
// current one at the risk prompt.
type CandidateSource interface {
	Next(ctx context.Context) (*imagefile.Descriptor, error)
}

// Selector validates candidates and commits accepted images to the store.
type Selector struct {
	store        *Store
	resolver     MetadataResolver
	prompt       Prompt
	source       CandidateSource
	notifier     notify.Notifier
	diag         notify.Sink
	maxReselects int
}

// NewSelector creates a selector. maxReselects bounds how many times a
// declined risk prompt may loop back into reselection.
func NewSelector(store *Store, resolver MetadataResolver, prompt Prompt, source CandidateSource,
	notifier notify.Notifier, diag notify.Sink, maxReselects int) *Selector {
	return &Selector{
		store:        store,
		resolver:     resolver,
		prompt:       prompt,
		source:       source,
		notifier:     notifier,
		diag:         diag,
		maxReselects: maxReselects,
	}
}

// Select validates the candidate and commits it on acceptance. When a risk
// warning fires, the user may accept the risk or go back and pick another
// candidate; reselection runs as a bounded loop rather than recursion.
// Selection state is mutated only on the accept path.
func (s *Selector) Select(ctx context.Context, candidate imagefile.Descriptor) (*imagefile.Descriptor, error) {
	for attempt := 0; ; attempt++ {
		if !imagefile.IsSupportedImage(candidate.Path) {
			slog.Error("image_selection_rejected", "path", candidate.Path, "reason", "unsupported_format")
			s.notifier.Send("Invalid image", notify.Options{
				Body: filepath.Base(candidate.Path) + " is not a supported disk image.",
			})
			s.diag.LogEvent("image_selection_invalid", map[string]any{"path": candidate.Path})
			return nil, &InvalidImageError{Path: candidate.Path}
		}

		warning := riskWarning(candidate)
		if warning != "" {
			reselect, err := s.prompt.Display(ctx, PromptOptions{
				ConfirmLabel: "Continue",
				RejectLabel:  "Change image",
				Description:  warning,
			})
			if err != nil {
				s.diag.Report(err)
				return nil, err
			}
			if reselect {
				s.store.Clear()
				slog.Info("image_selection_declined", "path", candidate.Path, "attempt", attempt)
				if attempt >= s.maxReselects {
					return nil, &ErrTooManyReselects{Attempts: attempt + 1}
				}
				next, err := s.source.Next(ctx)
				if err != nil {
					s.diag.Report(err)
					return nil, err
				}
				candidate = *next
				continue
			}
		}

		committed := candidate
		s.store.Set(committed)
		slog.Info("image_selected", "path", committed.Path, "size", committed.Size, "has_mbr", committed.HasMBR)
		s.diag.LogEvent("image_selected", map[string]any{
			"path":    committed.Path,
			"size":    committed.Size,
			"has_mbr": committed.HasMBR,
		})
		return &committed, nil
	}
}

// SelectByPath resolves on-disk metadata for the path and pipes the result
// through Select. Metadata failures never touch selection state.
func (s *Selector) SelectByPath(ctx context.Context, path string) (*imagefile.Descriptor, error) {
	candidate, err := s.resolver.GetImageMetadata(ctx, path)
	if err != nil {
		openErr := &OpenImageError{Basename: filepath.Base(path), Cause: err}
		slog.Error("image_open_failed", "path", path, "error", err)
		s.notifier.Send("Error opening image", notify.Options{Body: openErr.Error()})
		return nil, openErr
	}
	return s.Select(ctx, *candidate)
}

// Reselect clears the current selection, equivalent to starting over.
func (s *Selector) Reselect() {
	s.store.Clear()
}

// ImageBasename returns the file name of the selected image, or "" when
// nothing is selected.
func (s *Selector) ImageBasename() string {
	d, ok := s.store.Get()
	if !ok {
		return ""
	}
	return filepath.Base(d.Path)
}

// riskWarning computes at most one warning for the candidate; first match
// wins and the Windows heuristic is checked before the partition table.
func riskWarning(d imagefile.Descriptor) string {
	if imagefile.LooksLikeWindowsImage(d.Path) {
		return warningWindowsImage
	}
	if imagefile.MissingPartitionTable(d) {
		return warningNoPartitionTable
	}
	return ""
}
