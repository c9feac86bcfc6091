package notify

import (
	"context"
	"fmt"

	"chime/internal/monitor"
	"chime/internal/store"
)

// HistorySink records every dispatched notification in the store. The
// insert is synchronous: a local write is cheap next to the reader's I/O
// wait, and it keeps history ordered exactly like dispatch.
type HistorySink struct {
	store store.Store
}

// NewHistory creates a HistorySink backed by st.
func NewHistory(st store.Store) *HistorySink {
	return &HistorySink{store: st}
}

// Name identifies the sink in dispatcher logs.
func (h *HistorySink) Name() string { return "history" }

// Send implements monitor.Sink.
func (h *HistorySink) Send(_ context.Context, n monitor.Notification) error {
	err := h.store.Insert(&store.NotificationRecord{
		Kind:       string(n.Kind),
		RawLine:    n.RawLine,
		ObservedAt: n.ObservedAt,
	})
	if err != nil {
		return fmt.Errorf("recording notification: %w", err)
	}
	return nil
}
