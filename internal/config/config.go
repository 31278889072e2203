package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      App
	Telegram Telegram
	Sale     Sale
	Probe    Probe
	Metrics  Metrics
}

type App struct {
	Name    string `env:"APP_NAME" envDefault:"mess-market"`
	Version string `env:"APP_VERSION" envDefault:"dev"`
}

type Probe struct {
	ListenAddress string `env:"PROBE_LISTEN_ADDRESS" envDefault:":8091"`
}

type Metrics struct {
	ListenAddress string `env:"METRICS_LISTEN_ADDRESS" envDefault:":8092"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	config.Sale.applyDefaults()

	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("validator.Struct: %w", err)
	}

	return config, nil
}
