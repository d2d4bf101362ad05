package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/drivescribe/drivescribe/internal/config"
	"github.com/drivescribe/drivescribe/pkg/db"
	"github.com/drivescribe/drivescribe/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	cleanupStaging bool
	cleanupHistory bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up staged downloads and finished session history",
	Long: `Clean up local resources:
  --staging   Remove staged image downloads from the work directory
  --history   Delete finished (succeeded, failed, cancelled) sessions`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupStaging, "staging", false, "Remove staged downloads")
	cleanupCmd.Flags().BoolVar(&cleanupHistory, "history", false, "Delete finished sessions from history")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if !cleanupStaging && !cleanupHistory {
		return fmt.Errorf("must specify --staging or --history")
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if cleanupStaging {
		if err := cleanupStagedDownloads(cfg); err != nil {
			return err
		}
	}

	if cleanupHistory {
		if err := cleanupFinishedSessions(cfg); err != nil {
			return err
		}
	}

	return nil
}

func cleanupStagedDownloads(cfg *config.Config) error {
	downloadDir := filepath.Join(cfg.WorkDir, "downloads")

	entries, err := os.ReadDir(downloadDir)
	if os.IsNotExist(err) {
		fmt.Println("✅ No staged downloads")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read download directory")
	}

	fmt.Printf("🧹 Cleaning %d staged downloads...\n", len(entries))

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(downloadDir, entry.Name())
		if err := os.Remove(p); err != nil {
			fmt.Printf("⚠️  Failed to remove %s: %v\n", entry.Name(), err)
			continue
		}
		fmt.Printf("🗑️  Removed: %s\n", entry.Name())
		removed++
	}

	fmt.Printf("✅ Removed %d staged downloads\n", removed)
	return nil
}

func cleanupFinishedSessions(cfg *config.Config) error {
	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	deleted, err := repo.DeleteTerminal()
	if err != nil {
		return errors.Wrap(err, "history cleanup failed")
	}

	fmt.Printf("✅ Deleted %d finished sessions\n", deleted)
	return nil
}
