package commands

import (
	"fmt"
	"path/filepath"

	"github.com/drivescribe/drivescribe/internal/config"
	"github.com/drivescribe/drivescribe/pkg/db"
	"github.com/drivescribe/drivescribe/pkg/errors"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past flash sessions and their status",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	// Ensure database directory exists
	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	sessions, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(sessions) == 0 {
		fmt.Println("No flash sessions found")
		return nil
	}

	fmt.Printf("%-10s %-30s %-12s %-16s %-20s\n", "SESSION", "IMAGE", "STATUS", "DEVICE", "STARTED")
	fmt.Println("------------------------------------------------------------------------------------------------")

	for _, s := range sessions {
		image := s.ImagePath
		if image == "" {
			image = s.Source
		}
		image = filepath.Base(image)

		status := s.Status
		if s.Status == db.StatusFailed && s.ErrorKind != "" {
			status = fmt.Sprintf("%s (%s)", s.Status, s.ErrorKind)
		}

		fmt.Printf("%-10s %-30s %-12s %-16s %-20s\n",
			shortUUID(s.UUID), image, status, s.DriveDevice, s.CreatedAt)
	}

	return nil
}

func shortUUID(u string) string {
	if len(u) > 8 {
		return u[:8]
	}
	return u
}
