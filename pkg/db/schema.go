package db

// Schema defines the SQLite schema for flash session history. Every flash
// or download session is a row, updated at each phase boundary.
const Schema = `
CREATE TABLE IF NOT EXISTS flash_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    source TEXT NOT NULL,
    image_path TEXT,
    sha256 TEXT,
    drive_device TEXT NOT NULL,
    drive_description TEXT,
    status TEXT NOT NULL CHECK(status IN (
        'pending', 'downloading', 'validating', 'flashing',
        'succeeded', 'failed', 'cancelled')),
    error_kind TEXT,
    error_message TEXT,
    bytes_written INTEGER,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_uuid ON flash_sessions(uuid);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON flash_sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON flash_sessions(created_at);
`

// Session status constants.
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusValidating  = "validating"
	StatusFlashing    = "flashing"
	StatusSucceeded   = "succeeded"
	StatusFailed      = "failed"
	StatusCancelled   = "cancelled"
)

// TerminalStatuses lists the statuses a finished session may carry.
var TerminalStatuses = []string{StatusSucceeded, StatusFailed, StatusCancelled}

// Session represents one flash session record.
type Session struct {
	ID               int64
	UUID             string
	Source           string
	ImagePath        string
	SHA256           string
	DriveDevice      string
	DriveDescription string
	Status           string
	ErrorKind        string
	ErrorMessage     string
	BytesWritten     int64
	CreatedAt        string
	UpdatedAt        string
}
