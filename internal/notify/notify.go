// Package notify delivers the aggregated usage report.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/beeep"
)

// Notifier sends a titled message somewhere a person will see it.
type Notifier interface {
	Send(ctx context.Context, title, body string) error
}

// Supported notifier names.
const (
	NameConsole = "console"
	NameDesktop = "desktop"
)

// Console writes notifications to a writer.
type Console struct {
	w io.Writer
}

// NewConsole creates a Console notifier.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Send implements Notifier.
func (c *Console) Send(_ context.Context, title, body string) error {
	if _, err := fmt.Fprintf(c.w, "%s\n%s\n", title, body); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// DefaultDesktopBodyLimit caps the desktop notification body, in runes.
const DefaultDesktopBodyLimit = 240

// Desktop shows a native desktop notification.
type Desktop struct {
	notify    func(title, body string) error
	bodyLimit int
}

// NewDesktop creates a Desktop notifier backed by beeep.
func NewDesktop() *Desktop {
	return &Desktop{
		notify: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
		bodyLimit: DefaultDesktopBodyLimit,
	}
}

// Send implements Notifier. Long bodies are truncated.
func (d *Desktop) Send(_ context.Context, title, body string) error {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) > d.bodyLimit {
		body = string([]rune(body)[:d.bodyLimit]) + "…"
	}
	if err := d.notify(title, body); err != nil {
		return fmt.Errorf("desktop notification failed: %w", err)
	}
	return nil
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Send implements Notifier. Every notifier is tried; errors are joined.
func (m Multi) Send(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds a notifier from a list of names. An empty list yields nil,
// which callers treat as no notification.
func New(names []string, console io.Writer) (Notifier, error) {
	var out Multi
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case NameConsole:
			out = append(out, NewConsole(console))
		case NameDesktop:
			out = append(out, NewDesktop())
		default:
			return nil, fmt.Errorf("unknown notifier %q", name)
		}
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	}
	return out, nil
}
