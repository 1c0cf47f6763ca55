package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Port the API server listens on
	Port int `env:"PORT" envDefault:"8080"`

	// DatabasePath is the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"prospector.db"`

	// AllowedOrigins for CORS, comma separated
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// SeedDatabase loads demo records into an empty database at startup
	SeedDatabase bool `env:"SEED_DATABASE" envDefault:"true"`

	// WeeklyGoal is the target number of completed actions per week
	WeeklyGoal int `env:"WEEKLY_GOAL" envDefault:"25"`

	// Auth configuration
	Auth struct {
		// Issuer is the identity provider's issuer URL
		Issuer string `env:"AUTH_ISSUER"`

		// JWKSURL is the issuer's JSON Web Key Set endpoint
		JWKSURL string `env:"AUTH_JWKS_URL"`

		// Disabled skips signature verification (development only)
		Disabled bool `env:"AUTH_DISABLED" envDefault:"false"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of queued batches before pushes are rejected
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	// Telegram alert configuration
	Telegram struct {
		// BotToken enables alerts when set
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`

		// ChatID receives the alerts
		ChatID string `env:"TELEGRAM_CHAT_ID"`

		// PriorityThreshold is the minimum action priority that triggers an alert
		PriorityThreshold int `env:"TELEGRAM_PRIORITY_THRESHOLD" envDefault:"8"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
