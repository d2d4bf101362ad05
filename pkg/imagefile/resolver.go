package imagefile

import (
	"context"
	"log/slog"
	"os"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/drivescribe/drivescribe/pkg/errors"
)

// Resolver builds descriptors from on-disk image files.
type Resolver struct{}

// NewResolver creates a metadata resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// GetImageMetadata stats the file and probes it for a partition table.
// It fails when the file cannot be read; probe failures only clear HasMBR,
// since a missing partition table is a warning, not an error.
func (r *Resolver) GetImageMetadata(ctx context.Context, path string) (*Descriptor, error) {
	fi, err := os.Stat(path)
	if err != nil {
		slog.Error("image_metadata_stat_failed", "path", path, "error", err)
		return nil, errors.Wrap(err, "failed to stat image")
	}
	if fi.IsDir() {
		slog.Error("image_metadata_is_directory", "path", path)
		return nil, errors.Wrap(os.ErrInvalid, "image path is a directory")
	}

	d := &Descriptor{
		Path:        path,
		Size:        fi.Size(),
		HasMBR:      hasPartitionTable(path),
		BmapPresent: fileExists(path + ".bmap"),
	}

	slog.Info("image_metadata_resolved",
		"path", path,
		"size", d.Size,
		"has_mbr", d.HasMBR,
		"bmap_present", d.BmapPresent,
	)

	return d, nil
}

// hasPartitionTable probes the image for an MBR or GPT partition table.
func hasPartitionTable(path string) bool {
	disk, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		slog.Info("partition_table_probe_open_failed", "path", path, "error", err)
		return false
	}
	defer disk.Close()

	table, err := disk.GetPartitionTable()
	if err != nil || table == nil {
		return false
	}
	return true
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
