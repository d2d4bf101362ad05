package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/drivescribe/drivescribe/pkg/errors"
)

// HTTPClient downloads images over plain http(s).
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTP downloader.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{client: http.DefaultClient}
}

// Download streams the URL to localPath, computing its SHA256 and emitting
// progress ticks. Servers that omit Content-Length produce indeterminate
// ticks throughout.
func (c *HTTPClient) Download(ctx context.Context, url, localPath string, onTick func(TransferProgress)) (*DownloadResult, error) {
	slog.Info("http_download_start", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("http_download_failed", "url", url, "error", err)
		return nil, errors.Wrap(err, "failed to fetch image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("http_download_bad_status", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status %d fetching image", resp.StatusCode)
	}

	var total int64
	if resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("staging_file_creation_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to create staging file")
	}
	defer f.Close()

	hash := sha256.New()
	m := newMeter(total, onTick)

	size, err := io.Copy(io.MultiWriter(f, hash, m), resp.Body)
	if err != nil {
		slog.Error("http_download_failed", "url", url, "error", err)
		return nil, errors.Wrap(err, "failed to download image")
	}
	m.finish()

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("http_download_complete",
		"url", url,
		"size_mb", size/1024/1024,
		"local_path", localPath,
		"sha256", checksum[:16]+"...",
	)

	return &DownloadResult{
		LocalPath: localPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}
