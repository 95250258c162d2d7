package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Upstream struct {
		BaseURL        string        `envconfig:"TME_BASE_URL" default:"https://t.me"`
		DefaultChannel string        `envconfig:"DEFAULT_CHANNEL"`
		LinkNeedle     string        `envconfig:"DEEP_LINK_NEEDLE"`
		EmbedTimeout   time.Duration `envconfig:"EMBED_FETCH_TIMEOUT" default:"2500ms"`
	} `envconfig:""`

	Feed struct {
		DefaultLimit  int           `envconfig:"FEED_DEFAULT_LIMIT" default:"20"`
		PageCacheTTL  time.Duration `envconfig:"PAGE_CACHE_TTL" default:"3s"`
		PageCacheSize int           `envconfig:"PAGE_CACHE_SIZE" default:"1024"`
		EmbedCacheTTL time.Duration `envconfig:"EMBED_CACHE_TTL" default:"2m"`
		EmbedPerPage  int           `envconfig:"EMBED_MAX_PER_REQUEST" default:"5"`
	} `envconfig:""`

	Proxy struct {
		AllowedHosts []string `envconfig:"PROXY_ALLOWED_HOSTS" default:"telesco.pe,telegram-cdn.org"`
	} `envconfig:""`

	Sync struct {
		PollInterval time.Duration `envconfig:"SYNC_POLL_INTERVAL" default:"3s"`
		APIBaseURL   string        `envconfig:"SYNC_API_URL" default:"http://localhost:8080"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
