// Package config содержит логику чтения конфигурации сервиса ателье.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса ателье.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	AuthSecret     string `env:"AUTH_SECRET"`
	MailAPIKey     string `env:"MAIL_API_KEY"`
	MailBaseURL    string `env:"MAIL_BASE_URL"`
	MailFrom       string `env:"MAIL_FROM"`
	MailBackoffice string `env:"MAIL_BACKOFFICE"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
}

// Origins возвращает список разрешённых origin для CORS.
func (c *Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envValues := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for signing auth cookies")
	flag.StringVar(&cfg.MailAPIKey, "m", "", "mail provider API key")
	flag.StringVar(&cfg.MailBaseURL, "mail-url", "https://api.resend.com", "mail provider base URL")
	flag.StringVar(&cfg.MailFrom, "mail-from", "L'Atelier des Arts <no-reply@latelierdesarts.fr>", "sender address for outgoing mail")
	flag.StringVar(&cfg.MailBackoffice, "mail-backoffice", "contact@latelierdesarts.fr", "back office address for registrations and contact form")
	flag.StringVar(&cfg.AllowedOrigins, "o", "", "comma-separated list of allowed CORS origins")

	flag.Parse()

	if envValues.RunAddress != "" {
		cfg.RunAddress = envValues.RunAddress
	}
	if envValues.DatabaseURI != "" {
		cfg.DatabaseURI = envValues.DatabaseURI
	}
	if envValues.AuthSecret != "" {
		cfg.AuthSecret = envValues.AuthSecret
	}
	if envValues.MailAPIKey != "" {
		cfg.MailAPIKey = envValues.MailAPIKey
	}
	if envValues.MailBaseURL != "" {
		cfg.MailBaseURL = envValues.MailBaseURL
	}
	if envValues.MailFrom != "" {
		cfg.MailFrom = envValues.MailFrom
	}
	if envValues.MailBackoffice != "" {
		cfg.MailBackoffice = envValues.MailBackoffice
	}
	if envValues.AllowedOrigins != "" {
		cfg.AllowedOrigins = envValues.AllowedOrigins
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	// Сервис не может работать без БД, почтового ключа и секрета подписи:
	// падаем на старте с понятной диагностикой, а не молча.
	if cfg.DatabaseURI == "" {
		return nil, errors.New("DATABASE_URI is required")
	}
	if cfg.MailAPIKey == "" {
		return nil, errors.New("MAIL_API_KEY is required")
	}
	if cfg.AuthSecret == "" {
		return nil, errors.New("AUTH_SECRET is required")
	}

	return cfg, nil
}
