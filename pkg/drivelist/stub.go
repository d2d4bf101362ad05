//go:build !linux

package drivelist

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// stubScanner is a no-op scanner for platforms without sysfs.
type stubScanner struct {
	mu      sync.Mutex
	running bool
}

// NewScanner creates a stub scanner on non-Linux systems.
func NewScanner(interval time.Duration) Scanner {
	slog.Warn("drive_scan_unavailable", "platform", runtime.GOOS)
	return &stubScanner{}
}

func (s *stubScanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *stubScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *stubScanner) Drives() []Drive {
	return nil
}
