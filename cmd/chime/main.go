package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chime/internal/alert"
	"chime/internal/api"
	"chime/internal/config"
	"chime/internal/monitor"
	"chime/internal/notify"
	"chime/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:], false)
	case "demo":
		cmdRun(os.Args[2:], true)
	case "check":
		cmdCheck(os.Args[2:])
	case "version":
		fmt.Printf("chime %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: chime <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run       Monitor the notification log stream\n")
	fmt.Fprintf(os.Stderr, "  demo      Run with simulated notifications instead of the log stream\n")
	fmt.Fprintf(os.Stderr, "  check     Validate configuration\n")
	fmt.Fprintf(os.Stderr, "  version   Print version\n")
}

func cmdRun(args []string, demo bool) {
	name := "run"
	if demo {
		name = "demo"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting chime",
		"version", version,
		"demo", demo,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, config.ResolvePath(*configPath), demo); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	_, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("configuration is valid")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}

	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			slog.Warn("failed to open log file, using stdout only", "path", cfg.Server.LogFile, "error", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}

	logger := slog.New(slog.NewMultiHandler(handlers...))
	slog.SetDefault(logger)
}

func run(ctx context.Context, cfg *config.Config, configFile string, demo bool) error {
	// --- SQLite Store ---
	dbPath := config.ExpandHome(cfg.Database.Path)
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	slog.Info("database opened", "path", dbPath)

	retention := time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour
	go db.StartPruneLoop(ctx, time.Hour, retention)

	// --- Alert State ---
	alerter := alert.New(cfg.Alert.AutoReset)
	alerter.Start(ctx)

	// --- Sinks ---
	sound := notify.NewSound(notify.SoundConfig{
		Enabled:      cfg.Sound.Enabled,
		Player:       cfg.Sound.Player,
		ChatSound:    config.ExpandHome(cfg.Sound.ChatSound),
		UrgentSound:  config.ExpandHome(cfg.Sound.UrgentSound),
		MutedSound:   config.ExpandHome(cfg.Sound.MutedSound),
		UnmutedSound: config.ExpandHome(cfg.Sound.UnmutedSound),
	}, alerter.Muted)
	alerter.OnMute(sound.PlayMuteFeedback)

	webhook := notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.BearerToken, cfg.Webhook.Payloads())
	if webhook.Enabled() {
		slog.Info("webhook sink enabled", "url", cfg.Webhook.URL)
	}

	// --- Monitor ---
	mon := monitor.New(monitor.Config{
		ProcessName:         cfg.Monitor.ProcessName,
		AppID:               cfg.Monitor.AppID,
		AppIDClassic:        cfg.Monitor.AppIDClassic,
		DebounceWindow:      cfg.Monitor.DebounceWindow,
		UrgentSoundPatterns: cfg.Monitor.UrgentSoundPatterns,
		ChatSoundPatterns:   cfg.Monitor.ChatSoundPatterns,
	})
	mon.AddSink(alerter)
	mon.AddSink(notify.NewHistory(db))
	mon.AddSink(sound)
	mon.AddSink(webhook)

	if demo {
		go demoInjector(ctx, mon)
		slog.Info("demo mode: injecting simulated notifications")
	} else {
		if err := mon.Start(); err != nil {
			return fmt.Errorf("starting log stream monitor: %w", err)
		}
		defer mon.Stop()
	}

	// --- Config Hot Reload ---
	if configFile != "" {
		go func() {
			err := config.Watch(ctx, configFile, func(next *config.Config) {
				mon.SetSoundPatterns(next.Monitor.UrgentSoundPatterns, next.Monitor.ChatSoundPatterns)
				slog.Info("sound patterns reloaded",
					"urgent", next.Monitor.UrgentSoundPatterns,
					"chat", next.Monitor.ChatSoundPatterns)
			})
			if err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	// --- API Token ---
	token := cfg.Server.APIToken
	if token == "" {
		token, err = api.LoadOrCreateToken(config.Dir())
		if err != nil {
			return fmt.Errorf("loading API token: %w", err)
		}
	}

	// --- HTTP Server ---
	router := api.NewRouter(&api.Deps{
		Monitor: mon,
		Alert:   alerter,
		Store:   db,
		Webhook: webhook,
		Token:   token,
		Version: version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("chime is ready", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// demoInjector feeds the pipeline with random notifications at 5-15s
// intervals, roughly 30% of them urgent.
func demoInjector(ctx context.Context, mon *monitor.Monitor) {
	for {
		delay := 5*time.Second + rand.N(10*time.Second)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		kind := monitor.KindChat
		if rand.Float64() < 0.3 {
			kind = monitor.KindUrgent
		}
		if mon.Inject(kind) {
			slog.Info("demo notification injected", "kind", kind)
		}
	}
}
