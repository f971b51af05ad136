package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the full on-disk configuration.
type Settings struct {
	Server    ServerSettings    `yaml:"server"`
	Database  DatabaseSettings  `yaml:"database"`
	Auth      AuthSettings      `yaml:"auth"`
	Rooms     RoomsSettings     `yaml:"rooms"`
	Chain     ChainSettings     `yaml:"chain"`
	PriceFeed PriceFeedSettings `yaml:"priceFeed"`
	Thumbs    ThumbsSettings    `yaml:"thumbnails"`
	Logging   LoggingSettings   `yaml:"logging"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"baseUrl"`
}

// DatabaseSettings configures the SQLite store.
type DatabaseSettings struct {
	Path string `yaml:"path"`
}

// AuthSettings configures session tokens and the seeded operator account.
type AuthSettings struct {
	Secret        string `yaml:"secret"`
	AdminUsername string `yaml:"adminUsername"`
	TokenHours    int    `yaml:"tokenHours"`
	CookieHours   int    `yaml:"cookieHours"`
}

// RoomsSettings configures the external room/media service.
type RoomsSettings struct {
	BaseURL         string `yaml:"baseUrl"`
	APIKey          string `yaml:"apiKey"`
	SyncIntervalSec int    `yaml:"syncIntervalSeconds"`
}

// ChainSettings configures the blockchain RPC endpoint.
type ChainSettings struct {
	RPCEndpoint string `yaml:"rpcEndpoint"`
}

// PriceFeedSettings configures the spot-price HTTP API.
type PriceFeedSettings struct {
	URL                string `yaml:"url"`
	RevalidateSeconds  int    `yaml:"revalidateSeconds"`
	RefreshIntervalSec int    `yaml:"goalRefreshIntervalSeconds"`
}

// ThumbsSettings configures thumbnail content storage.
type ThumbsSettings struct {
	Dir           string `yaml:"dir"`
	CacheTTLMin   int    `yaml:"cacheTtlMinutes"`
	MaxUploadByte int64  `yaml:"maxUploadBytes"`
}

// LoggingSettings configures rotated file logging.
type LoggingSettings struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// DefaultSettings returns the settings used when no config file exists yet.
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Addr:    ":8080",
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseSettings{
			Path: "data/tokencast.db",
		},
		Auth: AuthSettings{
			AdminUsername: "operator",
			TokenHours:    1,
			CookieHours:   24,
		},
		Rooms: RoomsSettings{
			SyncIntervalSec: 15,
		},
		PriceFeed: PriceFeedSettings{
			RevalidateSeconds:  30,
			RefreshIntervalSec: 60,
		},
		Thumbs: ThumbsSettings{
			Dir:           "data/thumbnails",
			CacheTTLMin:   0, // entries live until restart unless configured
			MaxUploadByte: 5 * 1024 * 1024,
		},
		Logging: LoggingSettings{
			File:       "data/logs/tokencast.log",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// SyncInterval returns the viewer reconciliation interval.
func (s *Settings) SyncInterval() time.Duration {
	sec := s.Rooms.SyncIntervalSec
	if sec <= 0 {
		sec = 15
	}
	return time.Duration(sec) * time.Second
}

// GoalRefreshInterval returns the market-cap goal refresh interval.
func (s *Settings) GoalRefreshInterval() time.Duration {
	sec := s.PriceFeed.RefreshIntervalSec
	if sec <= 0 {
		sec = 60
	}
	return time.Duration(sec) * time.Second
}

// Manager loads and persists settings from a YAML file. Load caches the
// parsed settings; Save rewrites the file and refreshes the cache.
type Manager struct {
	path string

	mu     sync.RWMutex
	cached *Settings
}

// NewManager creates a manager for the settings file at path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load returns the current settings, reading the file on first use. A missing
// file yields defaults.
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	if m.cached != nil {
		defer m.mu.RUnlock()
		return m.cached, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil {
		return m.cached, nil
	}

	settings := DefaultSettings()
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.cached = settings
			return settings, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	m.cached = settings
	return settings, nil
}

// Save writes settings to disk and refreshes the cache.
func (m *Manager) Save(settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	m.mu.Lock()
	m.cached = settings
	m.mu.Unlock()
	return nil
}
