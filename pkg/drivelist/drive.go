// Package drivelist provides background discovery of attached block devices.
// A Scanner runs as a recurring background operation; the flash orchestrator
// suspends it for the duration of a session and resumes it on exit.
package drivelist

// Drive describes an attached block device as produced by the scanner.
// Consumers read drives, they never mutate them.
type Drive struct {
	Device        string
	Description   string
	Size          int64
	Mountpoint    string
	IsSystemDrive bool
}

// Scanner is the background drive discovery contract. Start and Stop are
// idempotent: calling either twice in a row is a no-op.
type Scanner interface {
	Start()
	Stop()
	Drives() []Drive
}
