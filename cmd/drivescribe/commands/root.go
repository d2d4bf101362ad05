package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "drivescribe",
	Short: "DriveScribe - write disk images to removable drives",
	Long:  `Flashes disk images onto removable drives, with remote image download, image validation, and post-write verification.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("sqlite-path", ".artifacts/sessions.db", "SQLite database path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm.db", "FSM BoltDB path")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region for s3:// sources")
	rootCmd.PersistentFlags().String("work-dir", "/tmp/drivescribe", "Working directory for staged downloads")
	rootCmd.PersistentFlags().Int64("max-image-size", 64*1024*1024*1024, "Max image size in bytes")
	rootCmd.PersistentFlags().Int("max-reselects", 5, "Max reselection rounds at a risk prompt")
	rootCmd.PersistentFlags().Bool("unmount-on-success", true, "Unmount the drive after a successful flash")
	rootCmd.PersistentFlags().Bool("auto-accept-risk", false, "Accept risk warnings without prompting")
	rootCmd.PersistentFlags().Int("scan-interval-seconds", 2, "Drive scan interval in seconds")
	rootCmd.PersistentFlags().Int("fsm-max-retries", 5, "Max FSM state retries")

	viper.BindPFlag("sqlite-path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("work-dir", rootCmd.PersistentFlags().Lookup("work-dir"))
	viper.BindPFlag("max-image-size", rootCmd.PersistentFlags().Lookup("max-image-size"))
	viper.BindPFlag("max-reselects", rootCmd.PersistentFlags().Lookup("max-reselects"))
	viper.BindPFlag("unmount-on-success", rootCmd.PersistentFlags().Lookup("unmount-on-success"))
	viper.BindPFlag("auto-accept-risk", rootCmd.PersistentFlags().Lookup("auto-accept-risk"))
	viper.BindPFlag("scan-interval-seconds", rootCmd.PersistentFlags().Lookup("scan-interval-seconds"))
	viper.BindPFlag("fsm-max-retries", rootCmd.PersistentFlags().Lookup("fsm-max-retries"))
}
