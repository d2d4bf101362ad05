package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/drivescribe/drivescribe/pkg/errors"
)

// S3Client downloads image objects from an S3 bucket with anonymous access.
type S3Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewS3Client creates an anonymous S3 downloader for the bucket.
func NewS3Client(ctx context.Context, bucket, region string) (*S3Client, error) {
	slog.Info("s3_client_init", "bucket", bucket, "region", region)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &S3Client{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucket,
	}, nil
}

// Download streams the object to localPath, computing its SHA256 and
// emitting progress ticks as bytes arrive.
func (c *S3Client) Download(ctx context.Context, key, localPath string, onTick func(TransferProgress)) (*DownloadResult, error) {
	slog.Info("s3_download_start", "bucket", c.bucket, "key", key)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	var total int64
	if result.ContentLength != nil {
		total = *result.ContentLength
	}

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("staging_file_creation_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to create staging file")
	}
	defer f.Close()

	hash := sha256.New()
	m := newMeter(total, onTick)

	size, err := io.Copy(io.MultiWriter(f, hash, m), result.Body)
	if err != nil {
		slog.Error("s3_download_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to download object")
	}
	m.finish()

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("s3_download_complete",
		"key", key,
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
