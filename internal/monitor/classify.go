package monitor

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Kind is the urgency classification of a detected notification.
type Kind string

const (
	KindChat    Kind = "chat"
	KindUrgent  Kind = "urgent"
	KindUnknown Kind = "unknown"
)

// Notification represents one accepted chat-app notification.
type Notification struct {
	Kind       Kind
	ObservedAt time.Time
	RawLine    string
}

// LineMatch identifies which pattern a log line matched.
type LineMatch int

const (
	// MatchNone means the line matched no known pattern.
	MatchNone LineMatch = iota
	// MatchSound means the line named the notification sound being played.
	MatchSound
	// MatchCandidate means the line signaled a new notification for the
	// watched application.
	MatchCandidate
)

// pendingHint is the single-slot state carried between a sound line and the
// notification line it belongs to. At most one hint is outstanding; a new
// sound line overwrites an unconsumed one.
type pendingHint struct {
	set  bool
	kind Kind
}

// Classifier maps raw log lines to structured signals. The notification
// event line carries no urgency information, so urgency is correlated from
// the sound line the application plays around the same time. The two lines
// need not be adjacent; unrelated lines in between are ignored.
type Classifier struct {
	soundRe *regexp.Regexp
	eventRe *regexp.Regexp

	mu             sync.Mutex
	urgentPatterns []string
	chatPatterns   []string

	pending pendingHint
}

// NewClassifier builds a Classifier for the two application identifiers.
// The substring lists decide how a sound token maps to a Kind; urgent wins,
// anything else defaults to chat.
func NewClassifier(appID, appIDClassic string, urgentPatterns, chatPatterns []string) *Classifier {
	apps := regexp.QuoteMeta(appID) + "|" + regexp.QuoteMeta(appIDClassic)

	return &Classifier{
		// Example: Playing notification sound { nam: a8_teams_basic_notification_r4_ping } for com.microsoft.teams2
		soundRe: regexp.MustCompile(`(?i)Playing notification sound \{ nam: ([^\s}]+) \} for (?:` + apps + `)`),
		// Example: Queuing action present for app com.microsoft.teams2 items: ["761F-2077"]
		eventRe:        regexp.MustCompile(`(?i)Queuing action present for app (?:` + apps + `)\s+items:`),
		urgentPatterns: lowerAll(urgentPatterns),
		chatPatterns:   lowerAll(chatPatterns),
	}
}

// Classify inspects one log line. For a sound line it stores the derived
// urgency as the pending hint and reports it. For a notification event line
// it consumes the pending hint (chat when none is outstanding) and reports
// the resolved kind. Consuming always clears the hint, whether or not the
// caller ultimately accepts the candidate.
func (c *Classifier) Classify(line string) (LineMatch, Kind) {
	if m := c.soundRe.FindStringSubmatch(line); m != nil {
		kind := c.classifyToken(m[1])
		c.pending = pendingHint{set: true, kind: kind}
		slog.Debug("notification sound detected", "sound", m[1], "kind", kind)
		return MatchSound, kind
	}

	if c.eventRe.MatchString(line) {
		kind := KindChat
		if c.pending.set {
			kind = c.pending.kind
		}
		c.pending = pendingHint{}
		return MatchCandidate, kind
	}

	return MatchNone, KindUnknown
}

// ClearPending drops any unconsumed hint.
func (c *Classifier) ClearPending() {
	c.pending = pendingHint{}
}

// SetPatterns replaces the sound substring lists. Safe to call while the
// monitor is running.
func (c *Classifier) SetPatterns(urgentPatterns, chatPatterns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urgentPatterns = lowerAll(urgentPatterns)
	c.chatPatterns = lowerAll(chatPatterns)
}

// classifyToken maps a sound name to a Kind by case-insensitive substring
// match. The chat list is informative only: a token matching no urgent
// pattern is chat regardless, so a renamed sound never drops a notification.
func (c *Classifier) classifyToken(token string) Kind {
	lower := strings.ToLower(token)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.urgentPatterns {
		if strings.Contains(lower, p) {
			return KindUrgent
		}
	}
	for _, p := range c.chatPatterns {
		if strings.Contains(lower, p) {
			slog.Debug("chat sound pattern matched", "pattern", p, "sound", token)
			break
		}
	}
	return KindChat
}

func lowerAll(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
