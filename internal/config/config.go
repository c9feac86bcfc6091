package config

import (
	"time"

	"chime/internal/monitor"
)

// Config is the root configuration for chime.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Alert    AlertConfig    `yaml:"alert"`
	Sound    SoundConfig    `yaml:"sound"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Database DatabaseConfig `yaml:"database"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	APIToken string `yaml:"api_token"`
}

type MonitorConfig struct {
	ProcessName         string        `yaml:"process_name"`
	AppID               string        `yaml:"app_id"`
	AppIDClassic        string        `yaml:"app_id_classic"`
	DebounceWindow      time.Duration `yaml:"debounce_window"`
	UrgentSoundPatterns []string      `yaml:"urgent_sound_patterns"`
	ChatSoundPatterns   []string      `yaml:"chat_sound_patterns"`
}

type AlertConfig struct {
	// AutoReset returns the alert to idle after this much inactivity.
	// Zero means manual reset only.
	AutoReset time.Duration `yaml:"auto_reset"`
}

type SoundConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Player       string `yaml:"player"`
	ChatSound    string `yaml:"chat_sound"`
	UrgentSound  string `yaml:"urgent_sound"`
	MutedSound   string `yaml:"muted_sound"`
	UnmutedSound string `yaml:"unmuted_sound"`
}

type WebhookConfig struct {
	URL            string         `yaml:"url"`
	BearerToken    string         `yaml:"bearer_token"`
	PayloadMessage map[string]any `yaml:"payload_message"`
	PayloadUrgent  map[string]any `yaml:"payload_urgent"`
	PayloadClear   map[string]any `yaml:"payload_clear"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8360,
			LogLevel: "info",
		},
		Monitor: MonitorConfig{
			ProcessName:         monitor.DefaultProcessName,
			AppID:               monitor.DefaultAppID,
			AppIDClassic:        monitor.DefaultAppIDClassic,
			DebounceWindow:      monitor.DefaultDebounceWindow,
			UrgentSoundPatterns: monitor.DefaultUrgentSoundPatterns,
			ChatSoundPatterns:   monitor.DefaultChatSoundPatterns,
		},
		Sound: SoundConfig{
			Enabled: true,
			Player:  "afplay",
		},
		Database: DatabaseConfig{
			Path:          "~/.config/chime/chime.db",
			RetentionDays: 90,
		},
	}
}

// Payloads returns the webhook payload overrides keyed by event name,
// omitting unset ones.
func (w WebhookConfig) Payloads() map[string]map[string]any {
	payloads := make(map[string]map[string]any)
	if w.PayloadMessage != nil {
		payloads["message"] = w.PayloadMessage
	}
	if w.PayloadUrgent != nil {
		payloads["urgent"] = w.PayloadUrgent
	}
	if w.PayloadClear != nil {
		payloads["clear"] = w.PayloadClear
	}
	return payloads
}
