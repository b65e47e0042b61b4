package config

import (
	pkgconfig "github.com/Skotchmaster/sweet_shop/pkg/config"
)

type Config struct {
	pkgconfig.Config
	PageSize int
}

func Load() *Config {
	cfg := &Config{
		Config:   pkgconfig.Load(),
		PageSize: pkgconfig.EnvIntDefault("CATALOG_PAGE_SIZE", 6),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "catalog"
	}

	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	return cfg
}
