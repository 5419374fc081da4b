package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Port       string `env:"PORT" envDefault:"8201"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9201"`

	Eyeson EyesonConfig
	Log    LogConfig
}

type EyesonConfig struct {
	APIKey  string `env:"EYESON_API_KEY,required,notEmpty"`
	BaseURL string `env:"EYESON_BASE_URL" envDefault:"https://api.eyeson.team"`

	// WebhookURL - registered on serve start and cleared on shutdown when set
	WebhookURL   string   `env:"EYESON_WEBHOOK_URL"`
	WebhookTypes []string `env:"EYESON_WEBHOOK_TYPES" envSeparator:"," envDefault:"room_update,recording_update"`

	// DemoUser - name used by the forward server when joining rooms
	DemoUser string `env:"EYESON_DEMO_USER" envDefault:"eyeson-go-demo"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

func New() (*Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &c, nil
}
