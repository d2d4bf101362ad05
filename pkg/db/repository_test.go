package db

import (
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	s := &Session{
		UUID:        "11111111-1111-1111-1111-111111111111",
		Source:      "/images/ubuntu.iso",
		DriveDevice: "/dev/sdb",
		Status:      StatusPending,
	}
	if err := repo.Create(s); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if s.ID == 0 {
		t.Fatal("session ID should be assigned on create")
	}

	got, err := repo.GetByUUID(s.UUID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got == nil || got.Source != s.Source || got.DriveDevice != s.DriveDevice {
		t.Errorf("retrieved session mismatch: got %+v, want %+v", got, s)
	}
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByUUID("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing session")
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := newTestRepo(t)

	s := &Session{UUID: "u1", Source: "img.iso", DriveDevice: "/dev/sdb", Status: StatusPending}
	if err := repo.Create(s); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.UpdateStatus(s.ID, StatusFailed, "no_space", "drive too small"); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	got, _ := repo.GetByUUID("u1")
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want %s", got.Status, StatusFailed)
	}
	if got.ErrorKind != "no_space" || got.ErrorMessage != "drive too small" {
		t.Errorf("error fields not persisted: %+v", got)
	}
}

func TestRepository_ListAndPrune(t *testing.T) {
	repo := newTestRepo(t)

	repo.Create(&Session{UUID: "a", Source: "a.iso", DriveDevice: "/dev/sdb", Status: StatusSucceeded})
	repo.Create(&Session{UUID: "b", Source: "b.iso", DriveDevice: "/dev/sdc", Status: StatusFailed})
	repo.Create(&Session{UUID: "c", Source: "c.iso", DriveDevice: "/dev/sdd", Status: StatusFlashing})

	sessions, err := repo.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}

	pruned, err := repo.DeleteTerminal()
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 2 {
		t.Errorf("expected 2 pruned sessions, got %d", pruned)
	}

	remaining, _ := repo.List()
	if len(remaining) != 1 || remaining[0].UUID != "c" {
		t.Errorf("expected only the in-flight session to remain, got %+v", remaining)
	}
}

func TestRepository_Update(t *testing.T) {
	repo := newTestRepo(t)

	s := &Session{UUID: "u2", Source: "img.iso", DriveDevice: "/dev/sdb", Status: StatusPending}
	repo.Create(s)

	s.ImagePath = "/tmp/staging.img"
	s.SHA256 = "abc123"
	s.Status = StatusFlashing
	s.BytesWritten = 4096
	if err := repo.Update(s); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, _ := repo.GetByUUID("u2")
	if got.ImagePath != s.ImagePath || got.SHA256 != s.SHA256 || got.BytesWritten != 4096 {
		t.Errorf("update not persisted: %+v", got)
	}
}
