package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel             string
	LocalHost            string
	LocalPort            int
	DataDir              string
	StaticDir            string
	WebhookURL           string
	WebhookTimeoutSecond int
	DBDSN                string
}

var (
	cacheTTL         = 10 * time.Second
	nowFunc          = time.Now
	cacheMu          sync.RWMutex
	cachedCfg        Config
	cachedAt         time.Time
	cacheValid       bool
	defaultLocalPort = "3000"
	dotenvOnce       sync.Once
	dotenvFiles      = []string{".env"}
)

// LoadConfig reads the environment, after loading an optional .env file once
// per process. Variables already set win over .env entries.
func LoadConfig() Config {
	loadDotenv()
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	loadDotenv()
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadDotenv() {
	dotenvOnce.Do(func() {
		for _, f := range dotenvFiles {
			if _, err := os.Stat(f); err != nil {
				continue
			}
			_ = godotenv.Load(f)
		}
	})
}

func loadFromEnv() Config {
	level := strings.TrimSpace(os.Getenv("TODOAGENT_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	localHost := strings.TrimSpace(os.Getenv("TODOAGENT_HOST"))
	if localHost == "" {
		localHost = "127.0.0.1"
	}
	localPort := atoiOrDefault(defaultLocalPort, 3000)
	if p := strings.TrimSpace(os.Getenv("TODOAGENT_PORT")); p != "" {
		// Keep parsing strict but fallback to default on malformed values.
		if n := atoiOrDefault(p, localPort); n > 0 {
			localPort = n
		}
	}
	timeout := 0
	if v := strings.TrimSpace(os.Getenv("TODOAGENT_WEBHOOK_TIMEOUT_SECONDS")); v != "" {
		timeout = atoiOrDefault(v, 0)
	}

	return Config{
		LogLevel:             level,
		LocalHost:            localHost,
		LocalPort:            localPort,
		DataDir:              strings.TrimSpace(os.Getenv("TODOAGENT_DATA_DIR")),
		StaticDir:            strings.TrimSpace(os.Getenv("TODOAGENT_STATIC_DIR")),
		WebhookURL:           strings.TrimSpace(os.Getenv("TODOAGENT_WEBHOOK_URL")),
		WebhookTimeoutSecond: timeout,
		DBDSN:                strings.TrimSpace(os.Getenv("TODOAGENT_DB_DSN")),
	}
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
