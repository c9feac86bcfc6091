package notify

import (
	"context"
	"log/slog"
	"os/exec"

	"chime/internal/monitor"
)

// DefaultPlayer is the audio player used when none is configured.
const DefaultPlayer = "afplay"

// SoundConfig selects the player binary and the file played per event.
// Empty file paths silence that event.
type SoundConfig struct {
	Enabled      bool
	Player       string
	ChatSound    string
	UrgentSound  string
	MutedSound   string
	UnmutedSound string
}

// SoundSink plays a notification sound through an external player as a
// fire-and-forget subprocess. It consults a mute predicate before playing,
// so a muted alert stays silent without unregistering the sink.
type SoundSink struct {
	cfg   SoundConfig
	muted func() bool
}

// NewSound creates a SoundSink. muted may be nil (never muted).
func NewSound(cfg SoundConfig, muted func() bool) *SoundSink {
	if cfg.Player == "" {
		cfg.Player = DefaultPlayer
	}
	return &SoundSink{cfg: cfg, muted: muted}
}

// Name identifies the sink in dispatcher logs.
func (s *SoundSink) Name() string { return "sound" }

// Send implements monitor.Sink.
func (s *SoundSink) Send(_ context.Context, n monitor.Notification) error {
	if !s.cfg.Enabled {
		return nil
	}
	if s.muted != nil && s.muted() {
		slog.Debug("sound suppressed, alert muted", "kind", n.Kind)
		return nil
	}

	file := s.cfg.ChatSound
	if n.Kind == monitor.KindUrgent {
		file = s.cfg.UrgentSound
	}
	s.play(file)
	return nil
}

// PlayMuteFeedback plays the mute or unmute confirmation sound. Feedback
// plays regardless of the mute flag, since it announces the flag change.
func (s *SoundSink) PlayMuteFeedback(muted bool) {
	if !s.cfg.Enabled {
		return
	}
	if muted {
		s.play(s.cfg.MutedSound)
		return
	}
	s.play(s.cfg.UnmutedSound)
}

func (s *SoundSink) play(file string) {
	if file == "" {
		return
	}
	go func() {
		if err := exec.Command(s.cfg.Player, file).Run(); err != nil {
			slog.Warn("sound playback failed", "player", s.cfg.Player, "file", file, "error", err)
		}
	}()
}
