package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sink consumes dispatched notifications. Implementations doing slow I/O
// must return promptly (hand the work to their own goroutine): dispatch runs
// on the reader goroutine and a stalled sink would stall detection.
// Defined consumer-side per Go convention.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher fans accepted notifications out to registered sinks in
// registration order. A failing or panicking sink never prevents the
// remaining sinks from running and never reaches the reader loop.
type Dispatcher struct {
	mu    sync.Mutex
	sinks []Sink
}

// Add registers a sink. Adding a sink that is already registered is a no-op.
func (d *Dispatcher) Add(s Sink) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.sinks {
		if existing == s {
			return
		}
	}
	d.sinks = append(d.sinks, s)
}

// Remove unregisters a sink. Unknown sinks are ignored.
func (d *Dispatcher) Remove(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.sinks {
		if existing == s {
			d.sinks = append(d.sinks[:i], d.sinks[i+1:]...)
			return
		}
	}
}

// Dispatch delivers n to every registered sink, in order.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	d.mu.Lock()
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.Unlock()

	for _, s := range sinks {
		dispatchOne(ctx, s, n)
	}
}

func dispatchOne(ctx context.Context, s Sink, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sink panicked", "sink", sinkName(s), "panic", r)
		}
	}()

	if err := s.Send(ctx, n); err != nil {
		slog.Error("sink failed", "sink", sinkName(s), "kind", n.Kind, "error", err)
	}
}

// sinkName prefers a sink-provided name and falls back to the Go type.
func sinkName(s Sink) string {
	type named interface{ Name() string }
	if n, ok := s.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
