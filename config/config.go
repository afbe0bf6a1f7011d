package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// Comma separated list of origins allowed by the CORS middleware
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

		LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/flatfinder.db"`
	}

	Search struct {
		// Restrict every search to approved HDB listings
		DomainConstants bool `env:"SEARCH_DOMAIN_CONSTANTS" envDefault:"true"`

		// Upper bound for a single listing store query
		QueryTimeout time.Duration `env:"SEARCH_QUERY_TIMEOUT" envDefault:"15s"`

		// Idle search sessions are discarded after this long
		SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"30m"`
		JanitorInterval time.Duration `env:"SESSION_JANITOR_INTERVAL" envDefault:"1m"`

		// Optional JSON file replacing the built-in town and unit type catalog
		CatalogPath string `env:"CATALOG_PATH"`
	}

	Events struct {
		BufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"256"`
	}

	// BatchProcessing configuration for bulk listing imports
	BatchProcessing struct {
		// Maximum number of listings accepted in a single import batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of pending batches the import queue holds
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"16"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries
		RetryDelay time.Duration `env:"BATCH_RETRY_DELAY" envDefault:"5s"`
	}

	Telegram TelegramConfig

	Geocoding GeocodingConfig
}

// GeocodingConfig controls the lookup of coordinates for approved listings
type GeocodingConfig struct {
	Enabled bool   `env:"GEOCODING_ENABLED" envDefault:"false"`
	BaseURL string `env:"GEOCODING_URL" envDefault:"https://nominatim.openstreetmap.org"`

	// Directory holding the on-disk address cache, empty disables persistence
	CacheDir string `env:"GEOCODING_CACHE_DIR" envDefault:"database/geocode_cache"`

	// Minimum spacing between requests, Nominatim allows one per second
	RequestInterval time.Duration `env:"GEOCODING_REQUEST_INTERVAL" envDefault:"1s"`
}

// TelegramConfig holds the bot credentials used for new listing notifications
type TelegramConfig struct {
	Enabled    bool   `env:"TELEGRAM_ENABLED" envDefault:"false"`
	BotToken   string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID     string `env:"TELEGRAM_CHAT_ID"`
	APIBaseURL string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
}

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
