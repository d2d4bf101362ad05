package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name          string
		done, total   int64
		elapsed       time.Duration
		wantPct       int
		indeterminate bool
	}{
		{"halfway", 50, 100, 2 * time.Second, 50, false},
		{"complete", 100, 100, 2 * time.Second, 100, false},
		{"no speed yet", 10, 100, 100 * time.Millisecond, 10, true},
		{"unknown total", 500, 0, 2 * time.Second, 0, true},
		{"nothing done", 0, 100, 2 * time.Second, 0, true},
		{"overshoot clamps", 150, 100, 2 * time.Second, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := computeProgress(tt.done, tt.total, tt.elapsed)
			if tp.Percentage != tt.wantPct {
				t.Errorf("percentage = %d, want %d", tp.Percentage, tt.wantPct)
			}
			if tp.Indeterminate != tt.indeterminate {
				t.Errorf("indeterminate = %v, want %v", tp.Indeterminate, tt.indeterminate)
			}
		})
	}
}

func TestComputeProgressETA(t *testing.T) {
	tp := computeProgress(50, 100, 2*time.Second)
	// 50 bytes in 2s leaves 50 bytes at 25 B/s.
	if tp.ETASeconds != 2 {
		t.Errorf("eta = %d, want 2", tp.ETASeconds)
	}
	if tp.SpeedBPS != 25 {
		t.Errorf("speed = %f, want 25", tp.SpeedBPS)
	}
}

func TestHTTPClientDownload(t *testing.T) {
	payload := []byte("not really a disk image but good enough for a transfer test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), StagingFilename)

	var ticks []TransferProgress
	result, err := NewHTTPClient().Download(context.Background(), srv.URL, dest, func(tp TransferProgress) {
		ticks = append(ticks, tp)
	})
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	if result.Size != int64(len(payload)) {
		t.Errorf("size = %d, want %d", result.Size, len(payload))
	}

	sum := sha256.Sum256(payload)
	if result.SHA256 != hex.EncodeToString(sum[:]) {
		t.Error("checksum mismatch")
	}

	data, err := os.ReadFile(dest)
	if err != nil || string(data) != string(payload) {
		t.Error("staged file content mismatch")
	}

	if len(ticks) == 0 {
		t.Fatal("expected at least one progress tick")
	}
	if last := ticks[len(ticks)-1]; last.BytesDone != int64(len(payload)) {
		t.Errorf("final tick bytes = %d, want %d", last.BytesDone, len(payload))
	}
}

func TestHTTPClientDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), StagingFilename)
	if _, err := NewHTTPClient().Download(context.Background(), srv.URL, dest, nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
