// Package config содержит логику чтения конфигурации клиента магазина билетов.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации клиента магазина билетов.
type Config struct {
	APIAddress     string        `env:"API_ADDRESS"`
	StateFile      string        `env:"STATE_FILE"`
	SessionFile    string        `env:"SESSION_FILE"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Parse считывает конфигурацию из .env, переменных окружения и флагов
// командной строки. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envAPIAddress := cfg.APIAddress
	envStateFile := cfg.StateFile
	envSessionFile := cfg.SessionFile
	envTimeout := cfg.RequestTimeout

	flag.StringVar(&cfg.APIAddress, "a", "http://localhost:8080", "ticketing API address")
	flag.StringVar(&cfg.StateFile, "s", "", "path to the local cart state file")
	flag.StringVar(&cfg.SessionFile, "c", "", "path to the session cookie file")
	flag.DurationVar(&cfg.RequestTimeout, "t", 5*time.Second, "API request timeout")

	flag.Parse()

	if envAPIAddress != "" {
		cfg.APIAddress = envAPIAddress
	}
	if envStateFile != "" {
		cfg.StateFile = envStateFile
	}
	if envSessionFile != "" {
		cfg.SessionFile = envSessionFile
	}
	if envTimeout != 0 {
		cfg.RequestTimeout = envTimeout
	}

	if cfg.APIAddress == "" {
		cfg.APIAddress = "http://localhost:8080"
	}
	if cfg.StateFile == "" {
		cfg.StateFile = defaultStateFile()
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	return cfg, nil
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cart.json"
	}
	return filepath.Join(home, ".worldcup", "cart.json")
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(home, ".worldcup", "session.json")
}
