package monitor

import "time"

// Debounce suppresses duplicate detections inside a fixed window. Exactly
// one candidate is accepted per window regardless of burst size: a rejected
// attempt leaves the window untouched, so a burst of lines cannot keep
// pushing acceptance into the future.
type Debounce struct {
	window       time.Duration
	lastAccepted time.Time
}

// NewDebounce creates a gate with the given minimum interval between
// accepted notifications.
func NewDebounce(window time.Duration) *Debounce {
	return &Debounce{window: window}
}

// Accept reports whether a candidate observed at now should be processed.
// On acceptance the window restarts from now; on rejection state is
// unchanged.
func (d *Debounce) Accept(now time.Time) bool {
	if !d.lastAccepted.IsZero() && now.Sub(d.lastAccepted) < d.window {
		return false
	}
	d.lastAccepted = now
	return true
}
