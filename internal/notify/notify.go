// Package notify delivers user-facing error notices, chiefly failed data
// service calls, to logs and chat.
package notify

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

// Level describes the urgency of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one notification.
type Notice struct {
	Level   Level
	Title   string
	Message string
	Source  string // view id or subsystem that raised it
	// Context is the original request context of a failed call.
	Context map[string]string
	Err     error
}

// Notifier sends notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// FromError builds an error notice. A *perrors.RemoteError contributes its
// operation and request context.
func FromError(source string, err error) Notice {
	n := Notice{
		Level:   LevelError,
		Title:   "Request failed",
		Message: err.Error(),
		Source:  source,
		Err:     err,
	}
	var re *perrors.RemoteError
	if errors.As(err, &re) {
		n.Title = "Data service " + re.Op + " failed"
		n.Context = re.Context
	}
	if errors.Is(err, perrors.ErrInvalidInput) {
		n.Level = LevelWarning
	}
	return n
}

// sortedKeys returns the context keys in stable order.
func (n Notice) sortedKeys() []string {
	keys := make([]string, 0, len(n.Context))
	for k := range n.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MultiNotifier fans out to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines ns, skipping nils.
func NewMultiNotifier(ns ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range ns {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify delivers to every notifier and returns the joined errors.
func (m *MultiNotifier) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, nt := range m.notifiers {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier logs notices.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier writing to logger.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

// Notify logs n at a level matching its urgency.
func (l *LogNotifier) Notify(_ context.Context, n Notice) error {
	var ev *zerolog.Event
	switch n.Level {
	case LevelError:
		ev = l.logger.Error()
	case LevelWarning:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Info()
	}
	ev = ev.Str("title", n.Title).Str("source", n.Source)
	for _, k := range n.sortedKeys() {
		ev = ev.Str("ctx_"+k, n.Context[k])
	}
	if n.Err != nil {
		ev = ev.Err(n.Err)
	}
	ev.Msg(n.Message)
	return nil
}
