package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/drivescribe/drivescribe/pkg/imagefile"
	"github.com/drivescribe/drivescribe/pkg/notify"
)

type fakeResolver struct {
	descriptor *imagefile.Descriptor
	err        error
}

func (f *fakeResolver) GetImageMetadata(ctx context.Context, path string) (*imagefile.Descriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := *f.descriptor
	d.Path = path
	return &d, nil
}

type fakePrompt struct {
	answers      []bool
	descriptions []string
	err          error
}

func (f *fakePrompt) Display(ctx context.Context, opts PromptOptions) (bool, error) {
	f.descriptions = append(f.descriptions, opts.Description)
	if f.err != nil {
		return false, f.err
	}
	if len(f.answers) == 0 {
		return false, nil
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer, nil
}

type fakeSource struct {
	candidates []imagefile.Descriptor
	calls      int
}

func (f *fakeSource) Next(ctx context.Context) (*imagefile.Descriptor, error) {
	if f.calls >= len(f.candidates) {
		return nil, errors.New("no more candidates")
	}
	c := f.candidates[f.calls]
	f.calls++
	return &c, nil
}

type recordingNotifier struct {
	titles []string
}

func (r *recordingNotifier) Send(title string, opts notify.Options) {
	r.titles = append(r.titles, title)
}

type recordingSink struct {
	reported []error
	events   []string
}

func (r *recordingSink) Report(err error) {
	r.reported = append(r.reported, err)
}

func (r *recordingSink) LogEvent(name string, fields map[string]any) {
	r.events = append(r.events, name)
}

func newTestSelector(prompt Prompt, source CandidateSource) (*Selector, *Store, *recordingNotifier, *recordingSink) {
	store := NewStore()
	notifier := &recordingNotifier{}
	sink := &recordingSink{}
	sel := NewSelector(store, &fakeResolver{}, prompt, source, notifier, sink, 3)
	return sel, store, notifier, sink
}

func TestSelectRejectsUnsupportedFormat(t *testing.T) {
	sel, store, notifier, _ := newTestSelector(&fakePrompt{}, &fakeSource{})

	_, err := sel.Select(context.Background(), imagefile.Descriptor{Path: "document.pdf", HasMBR: true})

	var invalid *InvalidImageError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidImageError, got %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Error("selection state must be unchanged on rejection")
	}
	if len(notifier.titles) != 1 {
		t.Errorf("expected one user-facing error, got %d", len(notifier.titles))
	}
}

func TestSelectCleanImageCommitsWithoutPrompt(t *testing.T) {
	prompt := &fakePrompt{}
	sel, store, _, sink := newTestSelector(prompt, &fakeSource{})

	committed, err := sel.Select(context.Background(), imagefile.Descriptor{Path: "ubuntu.iso", HasMBR: true, Size: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prompt.descriptions) != 0 {
		t.Error("clean image should not trigger a confirmation prompt")
	}

	got, ok := store.Get()
	if !ok || got.Path != committed.Path || got.Size != 42 {
		t.Errorf("committed descriptor not in store: %+v", got)
	}
	if len(sink.events) != 1 || sink.events[0] != "image_selected" {
		t.Errorf("expected image_selected event, got %v", sink.events)
	}
}

func TestWindowsWarningTakesPrecedence(t *testing.T) {
	prompt := &fakePrompt{}
	sel, _, _, _ := newTestSelector(prompt, &fakeSource{})

	// Both heuristics would fire; only the Windows warning may appear.
	_, err := sel.Select(context.Background(), imagefile.Descriptor{Path: "windows10.iso", HasMBR: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prompt.descriptions) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(prompt.descriptions))
	}
	if prompt.descriptions[0] != warningWindowsImage {
		t.Errorf("expected windows warning, got %q", prompt.descriptions[0])
	}
}

func TestMissingPartitionTableWarning(t *testing.T) {
	prompt := &fakePrompt{}
	sel, _, _, _ := newTestSelector(prompt, &fakeSource{})

	_, err := sel.Select(context.Background(), imagefile.Descriptor{Path: "custom-firmware.img", HasMBR: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prompt.descriptions) != 1 || prompt.descriptions[0] != warningNoPartitionTable {
		t.Errorf("expected exactly the partition table warning, got %v", prompt.descriptions)
	}
}

func TestDeclineLoopsIntoReselection(t *testing.T) {
	prompt := &fakePrompt{answers: []bool{true, false}}
	source := &fakeSource{candidates: []imagefile.Descriptor{
		{Path: "fedora.img", HasMBR: false},
	}}
	sel, store, _, _ := newTestSelector(prompt, source)

	committed, err := sel.Select(context.Background(), imagefile.Descriptor{Path: "win10.iso", HasMBR: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if committed.Path != "fedora.img" {
		t.Errorf("expected reselected candidate, got %s", committed.Path)
	}
	if source.calls != 1 {
		t.Errorf("expected one reselection, got %d", source.calls)
	}
	if got, ok := store.Get(); !ok || got.Path != "fedora.img" {
		t.Errorf("store should hold the reselected image, got %+v", got)
	}
}

func TestReselectBudgetIsBounded(t *testing.T) {
	// User keeps declining; the loop must stop at the budget instead of
	// recursing forever.
	prompt := &fakePrompt{answers: []bool{true, true, true, true, true, true}}
	source := &fakeSource{candidates: []imagefile.Descriptor{
		{Path: "win7.iso"}, {Path: "win8.iso"}, {Path: "win10.iso"}, {Path: "winxp.iso"},
	}}
	sel, store, _, _ := newTestSelector(prompt, source)

	_, err := sel.Select(context.Background(), imagefile.Descriptor{Path: "windows.iso"})

	var tooMany *ErrTooManyReselects
	if !errors.As(err, &tooMany) {
		t.Fatalf("expected ErrTooManyReselects, got %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Error("abandoned selection must leave the store empty")
	}
}

func TestPromptErrorIsReported(t *testing.T) {
	promptErr := errors.New("prompt broke")
	sel, _, _, sink := newTestSelector(&fakePrompt{err: promptErr}, &fakeSource{})

	_, err := sel.Select(context.Background(), imagefile.Descriptor{Path: "win10.iso"})
	if !errors.Is(err, promptErr) {
		t.Fatalf("expected prompt error, got %v", err)
	}
	if len(sink.reported) != 1 {
		t.Errorf("prompt failure should be reported to the diagnostic sink, got %d reports", len(sink.reported))
	}
}

func TestSelectByPathMetadataFailure(t *testing.T) {
	store := NewStore()
	notifier := &recordingNotifier{}
	resolver := &fakeResolver{err: errors.New("unreadable file")}
	sel := NewSelector(store, resolver, &fakePrompt{}, &fakeSource{}, notifier, &recordingSink{}, 3)

	_, err := sel.SelectByPath(context.Background(), "/images/broken.iso")

	var openErr *OpenImageError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected OpenImageError, got %v", err)
	}
	if openErr.Basename != "broken.iso" {
		t.Errorf("basename = %q, want broken.iso", openErr.Basename)
	}
	if _, ok := store.Get(); ok {
		t.Error("metadata failure must not touch selection state")
	}
	if len(notifier.titles) != 1 {
		t.Errorf("expected one user-facing error, got %d", len(notifier.titles))
	}
}

func TestSelectByPathCommits(t *testing.T) {
	store := NewStore()
	resolver := &fakeResolver{descriptor: &imagefile.Descriptor{HasMBR: true, Size: 1024}}
	sel := NewSelector(store, resolver, &fakePrompt{}, &fakeSource{}, &recordingNotifier{}, &recordingSink{}, 3)

	committed, err := sel.SelectByPath(context.Background(), "/images/ubuntu.iso")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if committed.Path != "/images/ubuntu.iso" {
		t.Errorf("unexpected committed path %s", committed.Path)
	}
	if sel.ImageBasename() != "ubuntu.iso" {
		t.Errorf("basename = %q, want ubuntu.iso", sel.ImageBasename())
	}
}

func TestReselectClearsStore(t *testing.T) {
	store := NewStore()
	store.Set(imagefile.Descriptor{Path: "old.iso"})
	sel := NewSelector(store, &fakeResolver{}, &fakePrompt{}, &fakeSource{}, &recordingNotifier{}, &recordingSink{}, 3)

	sel.Reselect()
	if _, ok := store.Get(); ok {
		t.Error("reselect should clear the store")
	}
	if sel.ImageBasename() != "" {
		t.Error("basename should be empty with no selection")
	}
}
