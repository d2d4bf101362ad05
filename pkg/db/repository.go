package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/drivescribe/drivescribe/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for flash sessions.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database and ensures the schema exists.
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("database_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("database_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new session record.
func (r *Repository) Create(s *Session) error {
	slog.Info("database_create_session", "uuid", s.UUID, "status", s.Status)

	query := `
		INSERT INTO flash_sessions (uuid, source, image_path, sha256, drive_device,
		                            drive_description, status, error_kind, error_message, bytes_written)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		s.UUID, s.Source, s.ImagePath, s.SHA256, s.DriveDevice,
		s.DriveDescription, s.Status, s.ErrorKind, s.ErrorMessage, s.BytesWritten)
	if err != nil {
		slog.Error("database_insert_failed", "uuid", s.UUID, "error", err)
		return errors.Wrap(err, "failed to insert session")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert id")
	}
	s.ID = id

	slog.Info("database_session_created", "uuid", s.UUID, "session_id", s.ID)
	return nil
}

// GetByUUID retrieves a session by its UUID; nil when not found.
func (r *Repository) GetByUUID(uuid string) (*Session, error) {
	query := `
		SELECT id, uuid, source, image_path, sha256, drive_device, drive_description,
		       status, error_kind, error_message, bytes_written, created_at, updated_at
		FROM flash_sessions WHERE uuid = ?
	`
	s, err := scanSession(r.db.QueryRow(query, uuid))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("database_query_failed", "uuid", uuid, "error", err)
		return nil, errors.Wrap(err, "failed to query session")
	}
	return s, nil
}

// Update rewrites the mutable fields of an existing session record.
func (r *Repository) Update(s *Session) error {
	query := `
		UPDATE flash_sessions
		SET image_path = ?, sha256 = ?, status = ?, error_kind = ?, error_message = ?,
		    bytes_written = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		s.ImagePath, s.SHA256, s.Status, s.ErrorKind, s.ErrorMessage, s.BytesWritten, s.ID)
	if err != nil {
		slog.Error("database_update_failed", "session_id", s.ID, "error", err)
		return errors.Wrap(err, "failed to update session")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("session not found: id=%d", s.ID)
	}

	slog.Info("database_session_updated", "session_id", s.ID, "status", s.Status)
	return nil
}

// UpdateStatus updates the status and error fields of a session.
func (r *Repository) UpdateStatus(id int64, status, errorKind, errorMessage string) error {
	slog.Info("database_update_status", "session_id", id, "status", status)

	query := `
		UPDATE flash_sessions
		SET status = ?, error_kind = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, status, errorKind, errorMessage, id); err != nil {
		slog.Error("database_status_update_failed", "session_id", id, "status", status, "error", err)
		return errors.Wrap(err, "failed to update status")
	}
	return nil
}

// List retrieves all sessions, newest first.
func (r *Repository) List() ([]*Session, error) {
	query := `
		SELECT id, uuid, source, image_path, sha256, drive_device, drive_description,
		       status, error_kind, error_message, bytes_written, created_at, updated_at
		FROM flash_sessions ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		slog.Error("database_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("database_list_complete", "session_count", len(sessions))
	return sessions, nil
}

// DeleteTerminal removes sessions that reached a terminal status. It returns
// the number of rows removed.
func (r *Repository) DeleteTerminal() (int64, error) {
	query := `DELETE FROM flash_sessions WHERE status IN (?, ?, ?)`
	result, err := r.db.Exec(query, StatusSucceeded, StatusFailed, StatusCancelled)
	if err != nil {
		slog.Error("database_prune_failed", "error", err)
		return 0, errors.Wrap(err, "failed to prune sessions")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	slog.Info("database_sessions_pruned", "count", n)
	return n, nil
}

// Delete removes a session by ID.
func (r *Repository) Delete(id int64) error {
	if _, err := r.db.Exec(`DELETE FROM flash_sessions WHERE id = ?`, id); err != nil {
		slog.Error("database_delete_failed", "session_id", id, "error", err)
		return errors.Wrap(err, "failed to delete session")
	}
	slog.Info("database_session_deleted", "session_id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var imagePath, sha, driveDesc, errKind, errMsg sql.NullString
	var bytesWritten sql.NullInt64

	err := row.Scan(
		&s.ID, &s.UUID, &s.Source, &imagePath, &sha, &s.DriveDevice, &driveDesc,
		&s.Status, &errKind, &errMsg, &bytesWritten, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.ImagePath = imagePath.String
	s.SHA256 = sha.String
	s.DriveDescription = driveDesc.String
	s.ErrorKind = errKind.String
	s.ErrorMessage = errMsg.String
	s.BytesWritten = bytesWritten.Int64
	return &s, nil
}
