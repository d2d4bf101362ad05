// Package progress implements the normalized progress model shared by the
// download and flash phases, and the process-wide flash state polled by the
// UI layer.
package progress

import (
	"fmt"
	"sync"
)

// Phase identifies which pipeline phase a progress record belongs to.
type Phase int

const (
	PhaseDownload Phase = iota
	PhaseValidate
	PhaseFlash
)

func (p Phase) String() string {
	switch p {
	case PhaseDownload:
		return "download"
	case PhaseValidate:
		return "validate"
	case PhaseFlash:
		return "flash"
	default:
		return "unknown"
	}
}

// Record is a normalized progress snapshot for a single phase.
// Percentage is clamped to [0, 100] and never decreases within a phase;
// Indeterminate marks records published before a transfer speed is known.
type Record struct {
	Phase         Phase
	Percentage    int
	ETASeconds    int
	SpeedBPS      float64
	Indeterminate bool
}

// Snapshot is a read-only copy of the flash state handed to pollers.
type Snapshot struct {
	Flashing    bool
	Downloading bool
	Cancelled   bool
	HasRecord   bool
	Record      Record
}

// State is the single source of truth for whether a flash or download
// session is active. The orchestrator is the only writer; any UI component
// may poll Snapshot concurrently.
type State struct {
	mu          sync.RWMutex
	flashing    bool
	downloading bool
	cancelled   bool
	hasRecord   bool
	current     Record
}

// NewState creates an idle flash state.
func NewState() *State {
	return &State{}
}

// TryBegin marks a session active. It returns false without side effects
// when a session is already running; starting a second session is a no-op,
// not an error.
func (s *State) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flashing {
		return false
	}
	s.flashing = true
	s.downloading = false
	s.cancelled = false
	s.hasRecord = false
	s.current = Record{}
	return true
}

// End clears the active-session flags. The cancelled flag survives so the
// last session's cancellation status remains observable.
func (s *State) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashing = false
	s.downloading = false
	s.hasRecord = false
	s.current = Record{}
}

// SetDownloading records whether the download phase is in flight.
func (s *State) SetDownloading(downloading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloading = downloading
}

// RequestCancel marks the running session cancelled. The flag is consulted
// at the terminal-transition boundary; it does not interrupt collaborators.
func (s *State) RequestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Cancelled reports whether cancellation was requested.
func (s *State) Cancelled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled
}

// Active reports whether a session currently holds the state.
func (s *State) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flashing
}

// Publish stores a progress record. Within a phase the percentage is
// monotonic: a lower value than the previous record is clamped up. A phase
// change accepts the new record as-is, which resets the percentage floor.
func (s *State) Publish(r Record) {
	if r.Percentage < 0 {
		r.Percentage = 0
	}
	if r.Percentage > 100 {
		r.Percentage = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasRecord && s.current.Phase == r.Phase && r.Percentage < s.current.Percentage {
		r.Percentage = s.current.Percentage
	}
	s.current = r
	s.hasRecord = true
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Flashing:    s.flashing,
		Downloading: s.downloading,
		Cancelled:   s.cancelled,
		HasRecord:   s.hasRecord,
		Record:      s.current,
	}
}

// ButtonLabel renders the progress button caption for a state snapshot.
// It is a pure function: same snapshot, same label.
func ButtonLabel(s Snapshot, unmountOnSuccess bool) string {
	if !s.Flashing && !s.Downloading {
		return "Flash!"
	}

	pct := s.Record.Percentage
	noSpeed := !s.HasRecord || s.Record.Indeterminate

	switch {
	case s.Flashing && pct == 0 && noSpeed:
		return "Starting..."
	case pct == 100:
		if s.Record.Phase == PhaseValidate && unmountOnSuccess {
			return "Unmounting..."
		}
		return "Finishing..."
	case s.Record.Phase == PhaseValidate:
		return fmt.Sprintf("%d%% Validating...", pct)
	case s.Record.Phase == PhaseDownload:
		return fmt.Sprintf("%d%% Downloading...", pct)
	default:
		return fmt.Sprintf("%d%%", pct)
	}
}
