// Package storage provides the remote transfer collaborators that stream an
// image source into the fixed local staging file, reporting progress.
package storage

import (
	"context"
	"time"
)

// StagingFilename is the fixed name the download phase stages images under.
const StagingFilename = "drivescribe-staging.img"

// TransferProgress is a single progress tick from a running transfer.
// BytesTotal is zero when the remote side did not announce a length; such
// transfers stay Indeterminate.
type TransferProgress struct {
	BytesDone     int64
	BytesTotal    int64
	Percentage    int
	SpeedBPS      float64
	ETASeconds    int
	Indeterminate bool
}

// DownloadResult contains transfer metadata for a completed download.
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Downloader streams a remote source into a local file. onTick may be nil.
type Downloader interface {
	Download(ctx context.Context, source, localPath string, onTick func(TransferProgress)) (*DownloadResult, error)
}

// meter is an io.Writer that counts transferred bytes and emits throttled
// progress ticks.
type meter struct {
	total    int64
	done     int64
	started  time.Time
	lastTick time.Time
	interval time.Duration
	onTick   func(TransferProgress)
}

func newMeter(total int64, onTick func(TransferProgress)) *meter {
	return &meter{
		total:    total,
		started:  time.Now(),
		interval: 250 * time.Millisecond,
		onTick:   onTick,
	}
}

func (m *meter) Write(p []byte) (int, error) {
	m.done += int64(len(p))
	if m.onTick != nil && time.Since(m.lastTick) >= m.interval {
		m.lastTick = time.Now()
		m.onTick(m.progress())
	}
	return len(p), nil
}

// finish emits the terminal tick so consumers always observe completion.
func (m *meter) finish() {
	if m.onTick != nil {
		m.onTick(m.progress())
	}
}

func (m *meter) progress() TransferProgress {
	return computeProgress(m.done, m.total, time.Since(m.started))
}

// computeProgress normalizes raw transfer counters into a progress tick.
func computeProgress(done, total int64, elapsed time.Duration) TransferProgress {
	tp := TransferProgress{
		BytesDone:     done,
		BytesTotal:    total,
		Indeterminate: true,
	}

	if total > 0 {
		tp.Percentage = int(done * 100 / total)
		if tp.Percentage > 100 {
			tp.Percentage = 100
		}
	}

	secs := elapsed.Seconds()
	if secs > 0.5 && done > 0 {
		tp.SpeedBPS = float64(done) / secs
		if total > 0 {
			tp.Indeterminate = false
			if remaining := total - done; remaining > 0 && tp.SpeedBPS > 0 {
				tp.ETASeconds = int(float64(remaining) / tp.SpeedBPS)
			}
		}
	}
	return tp
}
