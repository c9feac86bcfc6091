// Package api exposes the HTTP control surface: status and history reads,
// alert reset, mute toggle, and notification simulation.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"chime/internal/alert"
	"chime/internal/monitor"
	"chime/internal/notify"
	"chime/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Deps carries everything the handlers need.
type Deps struct {
	Monitor *monitor.Monitor
	Alert   *alert.Alerter
	Store   store.Store
	Webhook *notify.WebhookSink
	Token   string
	Version string
}

// NewRouter builds the chi router. Reads under /health are open; everything
// else is rate limited and the mutating endpoints require the API token.
func NewRouter(d *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	limiter := IPRateLimit(10, 20)
	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Get("/status", d.handleStatus)
		r.Get("/notifications", d.handleNotifications)
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Use(BearerAuth(d.Token))
		r.Post("/reset", d.handleReset)
		r.Post("/mute", d.handleMute)
		r.Post("/simulate", d.handleSimulate)
	})

	return r
}

type statusResponse struct {
	Running bool           `json:"running"`
	Level   alert.Level    `json:"level"`
	Muted   bool           `json:"muted"`
	Counts  map[string]int `json:"counts_24h,omitempty"`
	Version string         `json:"version,omitempty"`
}

func (d *Deps) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := d.Alert.Snapshot()

	resp := statusResponse{
		Running: d.Monitor.Running(),
		Level:   state.Level,
		Muted:   state.Muted,
		Version: d.Version,
	}

	counts, err := d.Store.CountByKind(time.Now().Add(-24 * time.Hour))
	if err != nil {
		slog.Warn("counting notifications for status", "error", err)
	} else {
		resp.Counts = counts
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *Deps) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := d.Store.List(store.Filter{
		Kind:  r.URL.Query().Get("kind"),
		Limit: limit,
	})
	if err != nil {
		slog.Error("listing notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "listing notifications failed")
		return
	}
	if records == nil {
		records = []store.NotificationRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": records})
}

func (d *Deps) handleReset(w http.ResponseWriter, r *http.Request) {
	d.Alert.Reset()

	if d.Webhook.Enabled() {
		if err := d.Webhook.SendClear(); err != nil {
			slog.Warn("clear webhook failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"level": alert.LevelIdle})
}

func (d *Deps) handleMute(w http.ResponseWriter, r *http.Request) {
	muted := d.Alert.ToggleMute()
	writeJSON(w, http.StatusOK, map[string]any{"muted": muted})
}

func (d *Deps) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	kind := monitor.Kind(req.Kind)
	if kind != monitor.KindChat && kind != monitor.KindUrgent {
		writeError(w, http.StatusBadRequest, `kind must be "chat" or "urgent"`)
		return
	}

	accepted := d.Monitor.Inject(kind)
	writeJSON(w, http.StatusOK, map[string]any{"accepted": accepted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
