package config

import (
	pkgconfig "github.com/Skotchmaster/sweet_shop/pkg/config"
)

type Config struct {
	pkgconfig.Config
}

func Load() *Config {
	cfg := &Config{Config: pkgconfig.Load()}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cart"
	}

	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	return cfg
}
