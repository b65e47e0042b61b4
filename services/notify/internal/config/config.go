package config

import (
	pkgconfig "github.com/Skotchmaster/sweet_shop/pkg/config"
)

type Config struct {
	pkgconfig.Config
	ConsumerGroup  string
	AllowedOrigins []string
}

func Load() *Config {
	cfg := &Config{
		Config:         pkgconfig.Load(),
		ConsumerGroup:  pkgconfig.EnvDefault("NOTIFY_CONSUMER_GROUP", "notify"),
		AllowedOrigins: pkgconfig.CSV(pkgconfig.EnvDefault("WS_ALLOWED_ORIGINS", "")),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "notify"
	}

	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	return cfg
}

// CheckOrigin allows every origin when no list is configured.
func (c *Config) CheckOrigin(origin string) bool {
	if len(c.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
