// Package notify defines the notification and diagnostic sinks consumed by
// the flash pipeline, with slog-backed default implementations.
package notify

import (
	"log/slog"
	"sort"
)

// Options carries optional notification fields.
type Options struct {
	Body string
	Icon string
}

// Notifier delivers user-facing notifications at session boundaries.
type Notifier interface {
	Send(title string, opts Options)
}

// Sink receives diagnostic reports and structured events. Report is reserved
// for errors the pipeline could not classify; LogEvent records notable
// lifecycle events for later analysis.
type Sink interface {
	Report(err error)
	LogEvent(name string, fields map[string]any)
}

// SlogNotifier writes notifications to the default slog logger.
type SlogNotifier struct{}

// NewSlogNotifier creates a log-backed notifier.
func NewSlogNotifier() *SlogNotifier {
	return &SlogNotifier{}
}

func (n *SlogNotifier) Send(title string, opts Options) {
	slog.Info("notification", "title", title, "body", opts.Body)
}

// SlogSink writes diagnostic reports and events to the default slog logger.
type SlogSink struct{}

// NewSlogSink creates a log-backed diagnostic sink.
func NewSlogSink() *SlogSink {
	return &SlogSink{}
}

func (s *SlogSink) Report(err error) {
	slog.Error("diagnostic_report", "error", err)
}

func (s *SlogSink) LogEvent(name string, fields map[string]any) {
	// Sort keys so repeated events log fields in a stable order.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	slog.Info(name, args...)
}
