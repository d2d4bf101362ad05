//go:build linux

package drivelist

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const sectorSize = 512

// sysfsScanner polls /sys/block for attached drives.
type sysfsScanner struct {
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	drives  []Drive
}

// NewScanner creates a sysfs-backed scanner polling at the given interval.
func NewScanner(interval time.Duration) Scanner {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &sysfsScanner{interval: interval}
}

// Start performs one synchronous scan, then keeps rescanning in the
// background until Stop is called.
func (s *sysfsScanner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	slog.Info("drive_scan_started", "interval", s.interval)
	s.scan()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.scan()
			}
		}
	}()
}

// Stop suspends background scanning. The last drive list stays readable.
func (s *sysfsScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	slog.Info("drive_scan_stopped")
}

// Drives returns a copy of the most recent scan result.
func (s *sysfsScanner) Drives() []Drive {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Drive, len(s.drives))
	copy(out, s.drives)
	return out
}

func (s *sysfsScanner) scan() {
	drives := scanSysBlock("/sys/block", "/proc/mounts")

	s.mu.Lock()
	s.drives = drives
	s.mu.Unlock()
}

// scanSysBlock enumerates block devices under sysRoot, skipping virtual
// devices (loop, ram, device-mapper, zram).
func scanSysBlock(sysRoot, mountsPath string) []Drive {
	entries, err := os.ReadDir(sysRoot)
	if err != nil {
		slog.Error("drive_scan_failed", "path", sysRoot, "error", err)
		return nil
	}

	mounts := readMounts(mountsPath)

	var drives []Drive
	for _, entry := range entries {
		name := entry.Name()
		if isVirtualDevice(name) {
			continue
		}

		devPath := "/dev/" + name
		sysPath := filepath.Join(sysRoot, name)

		size := readSectorCount(filepath.Join(sysPath, "size")) * sectorSize
		model := readTrimmed(filepath.Join(sysPath, "device", "model"))
		vendor := readTrimmed(filepath.Join(sysPath, "device", "vendor"))
		removable := readTrimmed(filepath.Join(sysPath, "removable")) == "1"

		mountpoint, system := mountState(mounts, devPath)

		drives = append(drives, Drive{
			Device:        devPath,
			Description:   describeDrive(vendor, model),
			Size:          size,
			Mountpoint:    mountpoint,
			IsSystemDrive: system || !removable,
		})
	}
	return drives
}

func isVirtualDevice(name string) bool {
	for _, prefix := range []string{"loop", "ram", "dm-", "zram"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func describeDrive(vendor, model string) string {
	desc := strings.TrimSpace(vendor + " " + model)
	if desc == "" {
		return "Unknown device"
	}
	return desc
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readSectorCount(path string) int64 {
	n, err := strconv.ParseInt(readTrimmed(path), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type mountEntry struct {
	device     string
	mountpoint string
}

func readMounts(path string) []mountEntry {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	return parseMounts(f)
}

func parseMounts(r io.Reader) []mountEntry {
	var entries []mountEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		entries = append(entries, mountEntry{device: fields[0], mountpoint: fields[1]})
	}
	return entries
}

// mountState returns the first mountpoint of the device (or one of its
// partitions) and whether any of those mountpoints hosts the running system.
func mountState(mounts []mountEntry, device string) (string, bool) {
	mountpoint := ""
	system := false
	for _, m := range mounts {
		if !strings.HasPrefix(m.device, device) {
			continue
		}
		if mountpoint == "" {
			mountpoint = m.mountpoint
		}
		if isSystemMountpoint(m.mountpoint) {
			system = true
		}
	}
	return mountpoint, system
}

func isSystemMountpoint(mountpoint string) bool {
	switch mountpoint {
	case "/", "/boot", "/boot/efi", "/home", "/usr", "/var":
		return true
	}
	return false
}
