package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is populated from the environment. A .env file in the working
// directory is loaded first when present.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`
	StoragePath  string `env:"STORAGE_PATH" envDefault:"quaver.json"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogFile   string `env:"LOG_FILE" envDefault:"quaver.log"`

	SearchLimit      int           `env:"SEARCH_LIMIT" envDefault:"5"`
	PreviewLimit     int           `env:"QUEUE_PREVIEW_LIMIT" envDefault:"20"`
	SelectionTimeout time.Duration `env:"SELECTION_TIMEOUT" envDefault:"300s"`
	ReconnectGrace   time.Duration `env:"RECONNECT_GRACE" envDefault:"5s"`
}

func New() (*Config, error) {
	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
