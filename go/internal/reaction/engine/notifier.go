package engine

import (
	"context"
	"errors"

	"github.com/mcdev12/reflex/go/internal/reaction/events"
)

// Notifier receives every event the engine emits. Notify is called from the
// engine's run loop and must not block for long.
type Notifier interface {
	Notify(ctx context.Context, ev events.Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev events.Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev events.Event) error {
	return f(ctx, ev)
}

// MultiNotifier fans an event out to several notifiers. Every notifier is
// called even if an earlier one fails.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev events.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, events.Event) error { return nil }
