// Package config содержит логику чтения конфигурации кассового сервиса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации кассового сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	CatalogPath string `env:"CATALOG_PATH"`
	DataDir     string `env:"DATA_DIR"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Пустой DatabaseURI отключает зеркало в PostgreSQL.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envCatalogPath := cfg.CatalogPath
	envDataDir := cfg.DataDir

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the document mirror")
	flag.StringVar(&cfg.CatalogPath, "c", "products.json", "catalog file path or http(s) URL")
	flag.StringVar(&cfg.DataDir, "s", "data", "directory for state files")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envCatalogPath != "" {
		cfg.CatalogPath = envCatalogPath
	}
	if envDataDir != "" {
		cfg.DataDir = envDataDir
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
