// Package monitor watches the OS unified log for signs that the chat
// application received a message, classifies each detection by urgency, and
// fans the result out to registered sinks.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultDebounceWindow is the minimum interval between two accepted
	// notifications.
	DefaultDebounceWindow = time.Second

	// stopGrace is how long a stopping subprocess gets between SIGTERM and
	// SIGKILL, and how long Stop waits for the reader goroutine.
	stopGrace = 2 * time.Second
)

// Defaults for the watched application. All overridable via Config.
const (
	DefaultProcessName  = "NotificationCenter"
	DefaultAppID        = "com.microsoft.teams2"
	DefaultAppIDClassic = "com.microsoft.teams"
)

// DefaultUrgentSoundPatterns and DefaultChatSoundPatterns classify sound
// tokens when the config provides no lists of its own.
var (
	DefaultUrgentSoundPatterns = []string{"urgent", "prioritize", "escalate", "alarm"}
	DefaultChatSoundPatterns   = []string{"basic", "ping", "notify"}
)

// Config controls what the monitor watches and how it classifies.
type Config struct {
	ProcessName  string
	AppID        string
	AppIDClassic string

	DebounceWindow      time.Duration
	UrgentSoundPatterns []string
	ChatSoundPatterns   []string

	// LogCommand overrides the platform log stream invocation. Used by
	// tests; when empty the macOS `log stream` command is built from the
	// fields above.
	LogCommand []string
}

func (c *Config) applyDefaults() {
	if c.ProcessName == "" {
		c.ProcessName = DefaultProcessName
	}
	if c.AppID == "" {
		c.AppID = DefaultAppID
	}
	if c.AppIDClassic == "" {
		c.AppIDClassic = DefaultAppIDClassic
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if len(c.UrgentSoundPatterns) == 0 {
		c.UrgentSoundPatterns = DefaultUrgentSoundPatterns
	}
	if len(c.ChatSoundPatterns) == 0 {
		c.ChatSoundPatterns = DefaultChatSoundPatterns
	}
}

// Monitor owns one log stream subprocess per Start/Stop cycle and runs the
// classify → debounce → dispatch pipeline on a dedicated reader goroutine.
// Start and Stop are idempotent; there is no auto-restart, a monitor whose
// subprocess died is restarted by calling Start again.
type Monitor struct {
	cfg        Config
	classifier *Classifier
	dispatcher *Dispatcher
	now        func() time.Time

	// gateMu covers the debounce gate: the reader goroutine and Inject
	// callers both consult it.
	gateMu sync.Mutex
	gate   *Debounce

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped Monitor.
func New(cfg Config) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		cfg:        cfg,
		classifier: NewClassifier(cfg.AppID, cfg.AppIDClassic, cfg.UrgentSoundPatterns, cfg.ChatSoundPatterns),
		gate:       NewDebounce(cfg.DebounceWindow),
		dispatcher: &Dispatcher{},
		now:        time.Now,
	}
}

// AddSink registers a sink for dispatched notifications.
func (m *Monitor) AddSink(s Sink) { m.dispatcher.Add(s) }

// RemoveSink unregisters a sink.
func (m *Monitor) RemoveSink(s Sink) { m.dispatcher.Remove(s) }

// SetSoundPatterns replaces the classifier substring lists on a live
// monitor. Used by config hot reload.
func (m *Monitor) SetSoundPatterns(urgent, chat []string) {
	m.classifier.SetPatterns(urgent, chat)
}

// Running reports whether the reader goroutine is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start spawns the log stream subprocess and the reader goroutine. Calling
// Start on a running monitor is a no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := m.command(ctx)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("starting log stream: %w", err)
	}

	slog.Info("log stream started", "pid", cmd.Process.Pid, "process", m.cfg.ProcessName)

	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx, cmd, stdout, stderr, m.done)
	return nil
}

// Stop terminates the subprocess (SIGTERM, then SIGKILL after a grace
// period) and waits for the reader goroutine with a bounded timeout.
// Calling Stop on a stopped monitor is a no-op; Stop is safe to call
// concurrently with the reader's own exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * stopGrace):
		slog.Warn("monitor reader did not exit in time")
	}

	slog.Info("monitor stopped")
}

// Inject pushes a synthetic notification through the debounce gate and the
// dispatcher, exactly as if its line had been read from the stream. Reports
// whether the gate accepted it. Used by the demo mode and the simulate
// endpoint.
func (m *Monitor) Inject(kind Kind) bool {
	if kind != KindChat && kind != KindUrgent {
		return false
	}

	now := m.now()
	m.gateMu.Lock()
	accepted := m.gate.Accept(now)
	m.gateMu.Unlock()
	if !accepted {
		return false
	}

	slog.Info("notification injected", "kind", kind)
	m.dispatcher.Dispatch(context.Background(), Notification{Kind: kind, ObservedAt: now})
	return true
}

// command builds the subprocess invocation. The predicate filters the
// unified log down to NotificationCenter events naming either application
// identifier.
func (m *Monitor) command(ctx context.Context) *exec.Cmd {
	var cmd *exec.Cmd
	if len(m.cfg.LogCommand) > 0 {
		cmd = exec.CommandContext(ctx, m.cfg.LogCommand[0], m.cfg.LogCommand[1:]...)
	} else {
		predicate := fmt.Sprintf(
			"process == %q AND (eventMessage CONTAINS %q OR eventMessage CONTAINS %q)",
			m.cfg.ProcessName, m.cfg.AppID, m.cfg.AppIDClassic)
		cmd = exec.CommandContext(ctx, "log", "stream",
			"--predicate", predicate,
			"--info",
			"--style", "compact")
	}

	// Graceful shutdown: context cancellation sends SIGTERM, and WaitDelay
	// escalates to SIGKILL if the process lingers.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace

	return cmd
}

// run is the reader goroutine: consume lines until the stream closes, then
// reap the subprocess and flip the monitor back to stopped.
func (m *Monitor) run(ctx context.Context, cmd *exec.Cmd, stdout, stderr io.Reader, done chan struct{}) {
	defer close(done)

	go m.captureStderr(stderr)
	m.readLines(ctx, stdout)

	err := cmd.Wait()

	m.mu.Lock()
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	switch {
	case !wasRunning || ctx.Err() != nil:
		slog.Info("log stream reader ended")
	case err != nil:
		// Unexpected subprocess death. Detection stops until an operator
		// restarts the monitor.
		slog.Error("log stream exited unexpectedly", "error", err)
	default:
		slog.Warn("log stream ended without being stopped")
	}
}

// readLines feeds each stream line through the pipeline until EOF or
// cancellation.
func (m *Monitor) readLines(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		m.processLine(ctx, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		slog.Warn("log stream read error", "error", err)
	}
}

// processLine runs one line through classify → debounce → dispatch.
func (m *Monitor) processLine(ctx context.Context, line string) {
	match, kind := m.classifier.Classify(line)
	if match != MatchCandidate {
		return
	}

	now := m.now()
	m.gateMu.Lock()
	accepted := m.gate.Accept(now)
	m.gateMu.Unlock()
	if !accepted {
		slog.Debug("notification debounced", "kind", kind)
		return
	}

	n := Notification{Kind: kind, ObservedAt: now, RawLine: line}
	slog.Info("notification detected", "kind", kind)
	m.dispatcher.Dispatch(ctx, n)
}

func (m *Monitor) captureStderr(r io.Reader) {
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return
	}
	slog.Debug("log stream stderr", "stderr", truncate(string(data), 500))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
