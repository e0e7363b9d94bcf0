package global

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"todoagent/internal/fsutil"
	"todoagent/internal/gateway"
)

const (
	configTOMLFileName = "config.toml"

	DefaultWebhookTimeoutSeconds = 30
	DefaultDetailPage            = "/task-details.html"
)

type WebhookSettings struct {
	URL            string `json:"url" toml:"url"`
	TimeoutSeconds int    `json:"timeout_seconds" toml:"timeout_seconds"`
}

type Settings struct {
	Webhook    WebhookSettings `json:"webhook" toml:"webhook"`
	DetailPage string          `json:"detail_page" toml:"detail_page"`
}

// ConfigStore keeps Settings in <dir>/config.toml. A non-empty URLOverride or
// a positive TimeoutOverride, normally taken from the environment, wins over
// the file.
type ConfigStore struct {
	dir             string
	URLOverride     string
	TimeoutOverride int

	mu sync.Mutex
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) Path() string {
	return filepath.Join(s.dir, configTOMLFileName)
}

func (s *ConfigStore) LoadOrInit() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrInitLocked()
}

func (s *ConfigStore) loadOrInitLocked() (Settings, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Settings{}, err
	}

	path := s.Path()
	if b, err := os.ReadFile(path); err == nil {
		var cfg Settings
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
		return normalizeSettings(cfg), nil
	} else if !os.IsNotExist(err) {
		return Settings{}, err
	}

	cfg := normalizeSettings(Settings{})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Settings{}, err
	}
	cfg = normalizeSettings(cfg)
	if err := writeTOMLAtomically(s.Path(), cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// Effective is the stored settings with the environment override applied.
func (s *ConfigStore) Effective() (Settings, error) {
	cfg, err := s.LoadOrInit()
	if err != nil {
		return Settings{}, err
	}
	if u := strings.TrimSpace(s.URLOverride); u != "" {
		cfg.Webhook.URL = u
	}
	if s.TimeoutOverride > 0 {
		cfg.Webhook.TimeoutSeconds = s.TimeoutOverride
	}
	return cfg, nil
}

// WebhookConfig makes the store a live gateway.ConfigSource; edits saved
// through the settings API apply to the next dispatch.
func (s *ConfigStore) WebhookConfig() (gateway.Config, error) {
	cfg, err := s.Effective()
	if err != nil {
		return gateway.Config{}, err
	}
	return gateway.Config{
		URL:     cfg.Webhook.URL,
		Timeout: time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second,
	}, nil
}

func normalizeSettings(cfg Settings) Settings {
	cfg.Webhook.URL = strings.TrimSpace(cfg.Webhook.URL)
	if cfg.Webhook.TimeoutSeconds <= 0 {
		cfg.Webhook.TimeoutSeconds = DefaultWebhookTimeoutSeconds
	}
	cfg.DetailPage = strings.TrimSpace(cfg.DetailPage)
	if cfg.DetailPage == "" {
		cfg.DetailPage = DefaultDetailPage
	}
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, b, 0o644)
}
