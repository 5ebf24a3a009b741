// Package config содержит логику чтения конфигурации сервиса магазина Eguva.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	MercadoPagoAccessToken   string `env:"MERCADOPAGO_ACCESS_TOKEN"`
	MercadoPagoWebhookSecret string `env:"MERCADOPAGO_WEBHOOK_SECRET"`

	// FrontendURL используется для back_urls при создании preference.
	// BackendURL — публичный адрес сервиса для notification_url вебхуков;
	// для localhost notification_url не отправляется.
	FrontendURL string `env:"FRONTEND_URL"`
	BackendURL  string `env:"BACKEND_URL"`

	AuthSecret string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envFrontendURL := cfg.FrontendURL
	envBackendURL := cfg.BackendURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.FrontendURL, "f", "http://localhost:5173", "frontend base URL for payment back urls")
	flag.StringVar(&cfg.BackendURL, "b", "", "public backend base URL for webhook notifications")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envFrontendURL != "" {
		cfg.FrontendURL = envFrontendURL
	}
	if envBackendURL != "" {
		cfg.BackendURL = envBackendURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "eguva-secret"
	}

	return cfg, nil
}
