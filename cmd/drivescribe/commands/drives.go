package commands

import (
	"fmt"
	"time"

	"github.com/drivescribe/drivescribe/internal/config"
	"github.com/drivescribe/drivescribe/pkg/drivelist"
	"github.com/drivescribe/drivescribe/pkg/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var drivesCmd = &cobra.Command{
	Use:   "drives",
	Short: "List attached drives",
	RunE:  runDrives,
}

func init() {
	rootCmd.AddCommand(drivesCmd)
}

func runDrives(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	scanner := drivelist.NewScanner(time.Duration(cfg.ScanIntervalSeconds) * time.Second)
	scanner.Start()
	defer scanner.Stop()

	drives := scanner.Drives()
	if len(drives) == 0 {
		fmt.Println("No drives found")
		return nil
	}

	fmt.Printf("%-16s %-30s %-12s %-20s %-8s\n", "DEVICE", "DESCRIPTION", "SIZE", "MOUNTPOINT", "SYSTEM")
	fmt.Println("----------------------------------------------------------------------------------------")

	for _, d := range drives {
		mountpoint := d.Mountpoint
		if mountpoint == "" {
			mountpoint = "-"
		}
		system := "no"
		if d.IsSystemDrive {
			system = "yes"
		}

		fmt.Printf("%-16s %-30s %-12s %-20s %-8s\n",
			d.Device, d.Description, humanize.Bytes(uint64(d.Size)), mountpoint, system)
	}

	return nil
}
