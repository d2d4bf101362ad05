package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/drivescribe/drivescribe/internal/config"
	"github.com/drivescribe/drivescribe/pkg/db"
	"github.com/drivescribe/drivescribe/pkg/drivelist"
	"github.com/drivescribe/drivescribe/pkg/errors"
	"github.com/drivescribe/drivescribe/pkg/flasher"
	"github.com/drivescribe/drivescribe/pkg/imagefile"
	"github.com/drivescribe/drivescribe/pkg/notify"
	"github.com/drivescribe/drivescribe/pkg/progress"
	"github.com/drivescribe/drivescribe/pkg/selection"
	"github.com/drivescribe/drivescribe/pkg/session"
	"github.com/drivescribe/drivescribe/pkg/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
)

var flashForce bool

var flashCmd = &cobra.Command{
	Use:   "flash <image-or-url> <device>",
	Short: "Flash an image onto a removable drive",
	Long: `Flashes a disk image onto a drive. The source may be a local file,
an http(s) URL, or an s3://bucket/key object; remote sources are staged
into the work directory before writing.`,
	Args: cobra.ExactArgs(2),
	RunE: runFlash,
}

func init() {
	rootCmd.AddCommand(flashCmd)
	flashCmd.Flags().BoolVar(&flashForce, "force", false, "Allow flashing a system drive")
}

func runFlash(cmd *cobra.Command, args []string) error {
	rawSource, device := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	// Ensure all necessary directories exist
	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	scanner := drivelist.NewScanner(time.Duration(cfg.ScanIntervalSeconds) * time.Second)
	scanner.Start()
	defer scanner.Stop()

	drive, err := lookupDrive(scanner, device)
	if err != nil {
		return err
	}
	if drive.IsSystemDrive && !flashForce {
		return fmt.Errorf("%s looks like a system drive; pass --force to flash it anyway", device)
	}

	store := selection.NewStore()
	req, downloader, err := buildRequest(ctx, cfg, store, rawSource, drive)
	if err != nil {
		return err
	}

	notifier := notify.NewSlogNotifier()
	diag := notify.NewSlogSink()
	resolver := imagefile.NewResolver()

	var prompt selection.Prompt = selection.NewTerminalPrompt(os.Stdin, os.Stdout)
	if cfg.AutoAcceptRisk {
		prompt = selection.AutoAcceptPrompt{}
	}
	source := selection.NewTerminalSource(os.Stdin, os.Stdout, resolver)
	selector := selection.NewSelector(store, resolver, prompt, source, notifier, diag, cfg.MaxReselects)

	state := progress.NewState()
	writer := flasher.NewFileWriter()

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := session.NewMachine(repo, downloader, selector, writer, state,
		cfg.WorkDir, cfg.MaxImageSize, cfg.FSMMaxRetries)
	runner, err := session.NewFSMRunner(ctx, manager, machine)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	orch := session.NewOrchestrator(runner, repo, state, scanner, notifier, diag)

	// First interrupt cancels the session; a second one kills the process.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		fmt.Println("\nCancelling...")
		orch.Cancel()
		cancel()
		<-sigs
		os.Exit(1)
	}()

	done := make(chan struct{})
	go printProgress(state, cfg.UnmountOnSuccess, done)

	resp, err := orch.Run(ctx, req)
	close(done)
	fmt.Println()

	if resp == nil && err == nil {
		return fmt.Errorf("another flash session is already running")
	}
	if err != nil {
		return errors.Wrap(err, "flash failed")
	}

	switch resp.Status {
	case db.StatusCancelled:
		fmt.Println("Flash cancelled.")
	default:
		fmt.Printf("Done. %s written to %s\n", resp.ImageBase, drive.Device)
	}
	return nil
}

// lookupDrive finds the requested device among the attached drives.
func lookupDrive(scanner drivelist.Scanner, device string) (drivelist.Drive, error) {
	for _, d := range scanner.Drives() {
		if d.Device == device {
			return d, nil
		}
	}
	return drivelist.Drive{}, fmt.Errorf("drive %s not found; run `drivescribe drives` to list attached drives", device)
}

// buildRequest parses the source argument into a session request and, for
// remote sources, the downloader that will fetch it.
func buildRequest(ctx context.Context, cfg *config.Config, store *selection.Store,
	rawSource string, drive drivelist.Drive) (*session.FlashRequest, storage.Downloader, error) {
	req := &session.FlashRequest{
		SessionID: uuid.New().String(),
		Drive:     drive,
	}

	switch {
	case strings.HasPrefix(rawSource, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(rawSource, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, nil, fmt.Errorf("invalid S3 source %q, expected s3://bucket/key", rawSource)
		}
		client, err := storage.NewS3Client(ctx, bucket, cfg.S3Region)
		if err != nil {
			return nil, nil, errors.Wrap(err, "S3 client failed")
		}
		store.SetCustom(selection.CustomImage{URL: rawSource, Name: path.Base(key)})
		req.Source = key
		return req, client, nil

	case strings.HasPrefix(rawSource, "http://"), strings.HasPrefix(rawSource, "https://"):
		store.SetCustom(selection.CustomImage{URL: rawSource, Name: path.Base(rawSource)})
		req.Source = rawSource
		return req, storage.NewHTTPClient(), nil

	default:
		abs, err := filepath.Abs(rawSource)
		if err != nil {
			return nil, nil, errors.Wrap(err, "invalid image path")
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, nil, errors.Wrap(err, "image not found")
		}
		req.ImagePath = abs
		return req, nil, nil
	}
}

// printProgress renders the live progress line until done is closed.
func printProgress(state *progress.State, unmountOnSuccess bool, done <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := state.Snapshot()
			if !snap.Flashing && !snap.Downloading {
				continue
			}
			label := progress.ButtonLabel(snap, unmountOnSuccess)
			if snap.HasRecord && !snap.Record.Indeterminate && snap.Record.ETASeconds > 0 {
				fmt.Printf("\r%-40s eta %ds   ", label, snap.Record.ETASeconds)
			} else {
				fmt.Printf("\r%-40s", label)
			}
		}
	}
}
