package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dir returns the user configuration directory for chime.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "chime")
}

// searchPaths returns the ordered list of config file locations to try.
func searchPaths() []string {
	paths := []string{
		"/etc/chime/chime.yaml",
		filepath.Join(Dir(), "chime.yaml"),
		"chime.yaml",
	}

	if envPath := os.Getenv("CHIME_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	return paths
}

// Load reads configuration from YAML files and environment variables.
// Files are loaded in order (each overrides the previous):
// /etc/chime/chime.yaml < ~/.config/chime/chime.yaml < ./chime.yaml < $CHIME_CONFIG
func Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range searchPaths() {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ResolvePath returns the config file the watcher should follow: the
// explicit path when given, otherwise the first existing search path.
// Empty when no config file exists at all.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables have higher priority than YAML
// config values.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("CHIME_WEBHOOK_URL"); url != "" {
		cfg.Webhook.URL = url
	}
	if bearer := os.Getenv("CHIME_WEBHOOK_BEARER"); bearer != "" {
		cfg.Webhook.BearerToken = bearer
	}
	if token := os.Getenv("CHIME_API_TOKEN"); token != "" {
		cfg.Server.APIToken = token
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config search paths
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	slog.Debug("loading config file", "path", path)

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host == "0.0.0.0" {
		return fmt.Errorf("server.host must not be 0.0.0.0, the control surface is meant for localhost only")
	}

	if cfg.Monitor.AppID == "" || cfg.Monitor.AppIDClassic == "" {
		return fmt.Errorf("monitor.app_id and monitor.app_id_classic must both be set")
	}

	if cfg.Monitor.DebounceWindow <= 0 {
		return fmt.Errorf("monitor.debounce_window must be positive, got %s", cfg.Monitor.DebounceWindow)
	}

	if cfg.Database.RetentionDays < 1 {
		return fmt.Errorf("database.retention_days must be at least 1, got %d", cfg.Database.RetentionDays)
	}

	cfg.Database.Path = ExpandHome(cfg.Database.Path)
	cfg.Sound.ChatSound = ExpandHome(cfg.Sound.ChatSound)
	cfg.Sound.UrgentSound = ExpandHome(cfg.Sound.UrgentSound)
	cfg.Sound.MutedSound = ExpandHome(cfg.Sound.MutedSound)
	cfg.Sound.UnmutedSound = ExpandHome(cfg.Sound.UnmutedSound)

	return nil
}
