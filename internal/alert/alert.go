// Package alert tracks the current alert level derived from dispatched
// notifications. It stands in for the original status-light window: a
// single-producer/single-consumer channel feeds a consumer goroutine, so the
// monitor's reader is never blocked by state handling.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chime/internal/monitor"
)

// Level is the severity the alert currently displays.
type Level string

const (
	LevelIdle   Level = "idle"
	LevelChat   Level = "chat"
	LevelUrgent Level = "urgent"
)

// State is a consistent snapshot of the alert.
type State struct {
	Level     Level     `json:"level"`
	Muted     bool      `json:"muted"`
	ChangedAt time.Time `json:"changed_at"`
}

// Alerter consumes notifications and maintains the alert level. Chat raises
// idle to chat but never downgrades urgent; urgent always wins; only Reset
// (or the auto-reset timer) returns to idle.
type Alerter struct {
	events    chan monitor.Notification
	autoReset time.Duration

	mu     sync.Mutex
	state  State
	onMute func(muted bool)

	startOnce sync.Once
	done      chan struct{}
}

// New creates an idle Alerter. autoReset <= 0 disables the inactivity reset.
func New(autoReset time.Duration) *Alerter {
	return &Alerter{
		events:    make(chan monitor.Notification, 16),
		autoReset: autoReset,
		state:     State{Level: LevelIdle, ChangedAt: time.Now()},
		done:      make(chan struct{}),
	}
}

// OnMute registers a callback fired after every mute toggle. Set before
// Start.
func (a *Alerter) OnMute(fn func(muted bool)) {
	a.mu.Lock()
	a.onMute = fn
	a.mu.Unlock()
}

// Start launches the consumer goroutine. It exits when ctx is cancelled.
func (a *Alerter) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go a.run(ctx)
	})
}

// Send implements monitor.Sink. It never blocks: when the consumer is
// behind, the event is dropped; a later snapshot shows the same level
// anyway.
func (a *Alerter) Send(_ context.Context, n monitor.Notification) error {
	select {
	case a.events <- n:
	default:
		slog.Debug("alert event dropped, consumer behind", "kind", n.Kind)
	}
	return nil
}

// Name identifies the sink in dispatcher logs.
func (a *Alerter) Name() string { return "alert" }

func (a *Alerter) run(ctx context.Context) {
	defer close(a.done)

	var resetC <-chan time.Time
	var resetT *time.Timer
	if a.autoReset > 0 {
		resetT = time.NewTimer(a.autoReset)
		resetT.Stop()
		resetC = resetT.C
		defer resetT.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-a.events:
			a.raise(n.Kind)
			if resetT != nil {
				resetT.Stop()
				resetT.Reset(a.autoReset)
			}
		case <-resetC:
			slog.Debug("alert auto-reset")
			a.Reset()
		}
	}
}

// raise escalates the level for a notification kind.
func (a *Alerter) raise(kind monitor.Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.state.Level
	switch kind {
	case monitor.KindUrgent:
		next = LevelUrgent
	case monitor.KindChat:
		if a.state.Level != LevelUrgent {
			next = LevelChat
		}
	default:
		return
	}

	if next != a.state.Level {
		slog.Info("alert level changed", "from", a.state.Level, "to", next)
		a.state.Level = next
		a.state.ChangedAt = time.Now()
	}
}

// Reset returns the alert to idle.
func (a *Alerter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Level == LevelIdle {
		return
	}
	slog.Info("alert reset", "from", a.state.Level)
	a.state.Level = LevelIdle
	a.state.ChangedAt = time.Now()
}

// ToggleMute flips the mute flag, fires the mute callback, and returns the
// new state.
func (a *Alerter) ToggleMute() bool {
	a.mu.Lock()
	a.state.Muted = !a.state.Muted
	muted := a.state.Muted
	fn := a.onMute
	a.mu.Unlock()

	slog.Info("mute toggled", "muted", muted)
	if fn != nil {
		fn(muted)
	}
	return muted
}

// Muted reports the current mute flag.
func (a *Alerter) Muted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Muted
}

// Snapshot returns a copy of the current state.
func (a *Alerter) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
