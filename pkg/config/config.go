// Package config loads and persists the staychat client configuration.
//
// Configuration lives in a JSON file (default ~/.staychat/config.json) and
// every field can be overridden through STAYCHAT_* environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/safestay/staychat/pkg/identity"
)

type Config struct {
	Server        ServerConfig       `json:"server"`
	Auth          AuthConfig         `json:"auth"`
	Chat          ChatConfig         `json:"chat"`
	Notifications NotificationConfig `json:"notifications"`
}

type ServerConfig struct {
	BaseURL     string `env:"STAYCHAT_SERVER_BASE_URL"     json:"base_url"`
	SocketURL   string `env:"STAYCHAT_SERVER_SOCKET_URL"   json:"socket_url"`
	HTTPTimeout int    `env:"STAYCHAT_SERVER_HTTP_TIMEOUT" json:"http_timeout"` // seconds
}

type AuthConfig struct {
	Token string             `env:"STAYCHAT_AUTH_TOKEN" json:"token,omitempty"`
	User  *identity.Identity `json:"user,omitempty"`
}

type ChatConfig struct {
	JoinTimeout   int `env:"STAYCHAT_CHAT_JOIN_TIMEOUT"    json:"join_timeout"`  // seconds
	ReadyTimeout  int `env:"STAYCHAT_CHAT_READY_TIMEOUT"   json:"ready_timeout"` // seconds
	DedupWindowMs int `env:"STAYCHAT_CHAT_DEDUP_WINDOW_MS" json:"dedup_window_ms"`
}

type NotificationConfig struct {
	Enabled bool `env:"STAYCHAT_NOTIFICATIONS_ENABLED" json:"enabled"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://localhost:5000/api",
			SocketURL:   "ws://localhost:5000/socket",
			HTTPTimeout: 15,
		},
		Chat: ChatConfig{
			JoinTimeout:   10,
			ReadyTimeout:  5,
			DedupWindowMs: 1000,
		},
		Notifications: NotificationConfig{Enabled: true},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file yet: defaults plus env overrides.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Server.HTTPTimeout) * time.Second
}

func (c *Config) JoinTimeout() time.Duration {
	return time.Duration(c.Chat.JoinTimeout) * time.Second
}

func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Chat.ReadyTimeout) * time.Second
}

func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Chat.DedupWindowMs) * time.Millisecond
}
