package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/drivescribe/drivescribe/pkg/db"
	"github.com/drivescribe/drivescribe/pkg/drivelist"
	"github.com/drivescribe/drivescribe/pkg/flasher"
	"github.com/drivescribe/drivescribe/pkg/notify"
	"github.com/drivescribe/drivescribe/pkg/progress"
	"github.com/drivescribe/drivescribe/pkg/selection"
)

type countingScanner struct {
	stops, starts int
}

func (s *countingScanner) Start()                  { s.starts++ }
func (s *countingScanner) Stop()                   { s.stops++ }
func (s *countingScanner) Drives() []drivelist.Drive { return nil }

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Send(title string, opts notify.Options) {
	n.sent = append(n.sent, title+": "+opts.Body)
}

type recordingSink struct {
	reported []error
	events   []string
}

func (s *recordingSink) Report(err error) {
	s.reported = append(s.reported, err)
}

func (s *recordingSink) LogEvent(name string, fields map[string]any) {
	s.events = append(s.events, name)
}

type stubRunner struct {
	err    error
	called int
	during func(state *progress.State)
}

func (r *stubRunner) Run(ctx context.Context, req *FlashRequest, resp *FlashResponse) error {
	r.called++
	resp.ImageBase = "ubuntu.iso"
	if r.during != nil {
		r.during(nil)
	}
	return r.err
}

type fixture struct {
	orch     *Orchestrator
	state    *progress.State
	scanner  *countingScanner
	notifier *recordingNotifier
	sink     *recordingSink
	runner   *stubRunner
}

func newFixture(runnerErr error) *fixture {
	f := &fixture{
		state:    progress.NewState(),
		scanner:  &countingScanner{},
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
		runner:   &stubRunner{err: runnerErr},
	}
	f.orch = NewOrchestrator(f.runner, nil, f.state, f.scanner, f.notifier, f.sink)
	return f
}

func testRequest() *FlashRequest {
	return &FlashRequest{
		SessionID: "test-session",
		ImagePath: "/images/ubuntu.iso",
		Drive:     drivelist.Drive{Device: "/dev/sdb", Description: "SanDisk Ultra"},
	}
}

func TestRunSuccess(t *testing.T) {
	f := newFixture(nil)

	resp, err := f.orch.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != db.StatusSucceeded {
		t.Errorf("status = %s, want %s", resp.Status, db.StatusSucceeded)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one success notification, got %d", len(f.notifier.sent))
	}
	if !strings.Contains(f.notifier.sent[0], "ubuntu.iso") || !strings.Contains(f.notifier.sent[0], "SanDisk Ultra") {
		t.Errorf("success notification should name image and drive: %q", f.notifier.sent[0])
	}
	if len(f.sink.reported) != 0 {
		t.Error("success should not produce diagnostic reports")
	}
}

func TestRunAlwaysReleasesStateAndScanner(t *testing.T) {
	tests := []struct {
		name      string
		runnerErr error
	}{
		{"success", nil},
		{"writer failure", &flasher.WriterError{Code: flasher.CodeIO}},
		{"synchronous failure", errors.New("fsm start failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.runnerErr)

			f.orch.Run(context.Background(), testRequest())

			if f.state.Active() {
				t.Error("flashing flag must be cleared after any terminal outcome")
			}
			if f.scanner.stops != f.scanner.starts {
				t.Errorf("scanner stop count %d != start count %d", f.scanner.stops, f.scanner.starts)
			}
			if f.scanner.stops != 1 {
				t.Errorf("scanner should be suspended exactly once per session, got %d", f.scanner.stops)
			}
		})
	}
}

func TestRunMutualExclusion(t *testing.T) {
	f := newFixture(nil)

	// Hold the state as if a session were active.
	if !f.state.TryBegin() {
		t.Fatal("setup: TryBegin failed")
	}

	resp, err := f.orch.Run(context.Background(), testRequest())
	if resp != nil || err != nil {
		t.Fatalf("second session should be a silent no-op, got resp=%v err=%v", resp, err)
	}
	if f.runner.called != 0 {
		t.Error("runner must not be invoked while a session is active")
	}
	if f.scanner.stops != 0 || f.scanner.starts != 0 {
		t.Error("refused session must not touch the drive scanner")
	}
}

func TestRunClassifiedFailureNoSpace(t *testing.T) {
	f := newFixture(&flasher.WriterError{Code: flasher.CodeNoSpace, Err: errors.New("write: no space left on device")})

	resp, err := f.orch.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected failure to propagate")
	}
	if resp.Status != db.StatusFailed {
		t.Errorf("status = %s, want %s", resp.Status, db.StatusFailed)
	}
	if resp.ErrorKind != flasher.FailureNoSpace.String() {
		t.Errorf("error kind = %s, want %s", resp.ErrorKind, flasher.FailureNoSpace)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one failure notification, got %d", len(f.notifier.sent))
	}
	if !strings.Contains(f.notifier.sent[0], "Not enough space") {
		t.Errorf("expected the no-space message, got %q", f.notifier.sent[0])
	}
	if len(f.sink.reported) != 0 {
		t.Error("classified failures must not be reported to the diagnostic sink")
	}
}

func TestRunUnrecognizedFailureReportsDiagnostic(t *testing.T) {
	f := newFixture(&flasher.WriterError{Code: "ESOMETHING", Err: errors.New("mystery")})

	resp, _ := f.orch.Run(context.Background(), testRequest())
	if resp.ErrorKind != flasher.FailureUnknown.String() {
		t.Errorf("error kind = %s, want unknown", resp.ErrorKind)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one generic failure notification, got %d", len(f.notifier.sent))
	}
	if len(f.sink.reported) != 1 {
		t.Errorf("unrecognized failures must produce exactly one diagnostic report, got %d", len(f.sink.reported))
	}
}

func TestRunCancelledSuppressesNotifications(t *testing.T) {
	f := newFixture(nil)
	f.runner.during = func(*progress.State) { f.state.RequestCancel() }

	resp, err := f.orch.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("cancelled session should not return an error: %v", err)
	}
	if resp.Status != db.StatusCancelled {
		t.Errorf("status = %s, want %s", resp.Status, db.StatusCancelled)
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("cancelled session must suppress all notifications, got %v", f.notifier.sent)
	}
	if f.scanner.stops != f.scanner.starts {
		t.Error("cancelled session must still resume drive scanning")
	}
}

func TestRunFailureAfterCancelIsRecordedNotShown(t *testing.T) {
	f := newFixture(&flasher.WriterError{Code: flasher.CodeIO, Err: errors.New("read error")})
	f.runner.during = func(*progress.State) { f.state.RequestCancel() }

	resp, err := f.orch.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("cancelled session should not surface the error: %v", err)
	}
	if resp.Status != db.StatusCancelled {
		t.Errorf("status = %s, want %s", resp.Status, db.StatusCancelled)
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("no notification may escape a cancelled session, got %v", f.notifier.sent)
	}
	// The failure is still observable in the diagnostic log.
	found := false
	for _, ev := range f.sink.events {
		if ev == "session_error_after_cancel" {
			found = true
		}
	}
	if !found {
		t.Error("post-cancellation failure should be logged to the diagnostic sink")
	}
}

func TestRunSelectionFailureIsNotDoubleNotified(t *testing.T) {
	f := newFixture(&selection.InvalidImageError{Path: "notes.txt"})

	resp, err := f.orch.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected failure to propagate")
	}
	if resp.ErrorKind != flasher.FailureInvalidImage.String() {
		t.Errorf("error kind = %s, want %s", resp.ErrorKind, flasher.FailureInvalidImage)
	}
	// The selector already surfaced the error at the point of detection.
	if len(f.notifier.sent) != 0 {
		t.Errorf("validation failure must not be re-notified by the orchestrator, got %v", f.notifier.sent)
	}
	if len(f.sink.reported) != 0 {
		t.Error("classified validation failures must not trigger diagnostic reports")
	}
}

func TestRunSequentialSessions(t *testing.T) {
	f := newFixture(nil)

	for i := 0; i < 3; i++ {
		resp, err := f.orch.Run(context.Background(), testRequest())
		if err != nil || resp == nil {
			t.Fatalf("session %d should run after the previous one finished", i)
		}
	}
	if f.runner.called != 3 {
		t.Errorf("expected 3 sequential sessions, got %d", f.runner.called)
	}
	if f.scanner.stops != 3 || f.scanner.starts != 3 {
		t.Errorf("scanner counts = %d/%d, want 3/3", f.scanner.stops, f.scanner.starts)
	}
}
