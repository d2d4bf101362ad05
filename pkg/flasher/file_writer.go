package flasher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/drivescribe/drivescribe/pkg/drivelist"
)

const (
	defaultChunkSize = 1 << 20 // 1 MiB
	tickInterval     = 250 * time.Millisecond
)

// FileWriter writes an image to a block device (or any writable file) in
// chunks, then re-reads the written bytes and compares checksums.
type FileWriter struct {
	chunkSize int
}

// NewFileWriter creates a writer with the default chunk size.
func NewFileWriter() *FileWriter {
	return &FileWriter{chunkSize: defaultChunkSize}
}

// Flash copies imagePath onto drive.Device and verifies the result.
// Progress is reported as EventFlash during the write pass and
// EventValidate during the verification pass.
func (w *FileWriter) Flash(ctx context.Context, imagePath string, drive drivelist.Drive, onProgress func(ProgressEvent)) error {
	src, err := os.Open(imagePath)
	if err != nil {
		return &WriterError{Code: CodeValidation, Err: err}
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return &WriterError{Code: CodeValidation, Err: err}
	}
	total := fi.Size()

	if drive.Size > 0 && total > drive.Size {
		slog.Error("image_larger_than_drive", "image_size", total, "drive_size", drive.Size)
		return &WriterError{Code: CodeNoSpace, Err: fmt.Errorf("image size %d exceeds drive size %d", total, drive.Size)}
	}

	slog.Info("flash_write_start", "image", imagePath, "device", drive.Device, "size", total)

	dst, err := os.OpenFile(drive.Device, os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return classifyOSError(err)
	}

	writeHash := sha256.New()
	written, err := w.copyChunks(ctx, dst, src, writeHash, total, EventFlash, onProgress)
	if err != nil {
		dst.Close()
		return err
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		return classifyOSError(err)
	}
	if err := dst.Close(); err != nil {
		return classifyOSError(err)
	}

	slog.Info("flash_write_complete", "device", drive.Device, "bytes_written", written)

	if err := w.verify(ctx, drive.Device, written, writeHash.Sum(nil), onProgress); err != nil {
		return err
	}

	slog.Info("flash_verify_complete", "device", drive.Device)
	return nil
}

// verify re-reads written bytes from the device and compares checksums.
func (w *FileWriter) verify(ctx context.Context, device string, length int64, want []byte, onProgress func(ProgressEvent)) error {
	f, err := os.Open(device)
	if err != nil {
		return classifyOSError(err)
	}
	defer f.Close()

	readHash := sha256.New()
	if _, err := w.copyChunks(ctx, io.Discard, io.LimitReader(f, length), readHash, length, EventValidate, onProgress); err != nil {
		return err
	}

	if !bytes.Equal(readHash.Sum(nil), want) {
		slog.Error("flash_verify_mismatch", "device", device)
		return &WriterError{Code: CodeValidation, Err: fmt.Errorf("checksum mismatch after write to %s", device)}
	}
	return nil
}

// copyChunks copies src to dst while hashing, emitting throttled progress
// events of the given type.
func (w *FileWriter) copyChunks(ctx context.Context, dst io.Writer, src io.Reader, h hash.Hash, total int64, kind EventType, onProgress func(ProgressEvent)) (int64, error) {
	chunkSize := w.chunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	buf := make([]byte, chunkSize)

	var done int64
	started := time.Now()
	lastTick := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return done, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return done, classifyOSError(err)
			}
			h.Write(buf[:n])
			done += int64(n)

			if onProgress != nil && time.Since(lastTick) >= tickInterval {
				lastTick = time.Now()
				onProgress(makeEvent(kind, done, total, started))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return done, classifyOSError(readErr)
		}
	}

	if onProgress != nil {
		onProgress(makeEvent(kind, done, total, started))
	}
	return done, nil
}

func makeEvent(kind EventType, done, total int64, started time.Time) ProgressEvent {
	ev := ProgressEvent{Type: kind, BytesWritten: done, Indeterminate: true}

	if total > 0 {
		ev.Percentage = int(done * 100 / total)
	}

	elapsed := time.Since(started).Seconds()
	if elapsed > 0.5 && done > 0 {
		ev.SpeedBPS = float64(done) / elapsed
		ev.Indeterminate = false
		if total > done && ev.SpeedBPS > 0 {
			ev.ETASeconds = int(float64(total-done) / ev.SpeedBPS)
		}
	}
	return ev
}

// classifyOSError maps OS-level failures onto the closed writer code set.
func classifyOSError(err error) *WriterError {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return &WriterError{Code: CodeNoSpace, Err: err}
	case errors.Is(err, syscall.EIO):
		return &WriterError{Code: CodeIO, Err: err}
	case errors.Is(err, syscall.ENXIO), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENOENT):
		return &WriterError{Code: CodeUnplugged, Err: err}
	default:
		return &WriterError{Code: "EUNKNOWN", Err: err}
	}
}
