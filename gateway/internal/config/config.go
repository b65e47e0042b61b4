package config

import (
	"os"

	pkgconfig "github.com/Skotchmaster/sweet_shop/pkg/config"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	AuthURL    string
	CatalogURL string
	CartURL    string
	OrderURL   string
	NotifyURL  string

	JWTSecret    []byte
	SecureCookie bool
}

func Load() *Config {
	cfg := &Config{
		ListenAddr: pkgconfig.EnvDefault("GATEWAY_ADDR", ":8080"),
		LogLevel:   pkgconfig.EnvDefault("LOG_LEVEL", "info"),
		AuthURL:    os.Getenv("AUTH_URL"),
		CatalogURL: os.Getenv("CATALOG_URL"),
		CartURL:    os.Getenv("CART_URL"),
		OrderURL:   os.Getenv("ORDER_URL"),
		NotifyURL:  os.Getenv("NOTIFY_URL"),
		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),

		SecureCookie: pkgconfig.EnvDefault("COOKIE_SECURE", "true") == "true",
	}

	pkgconfig.MustURL(cfg.AuthURL, "AUTH_URL")
	pkgconfig.MustURL(cfg.CatalogURL, "CATALOG_URL")
	pkgconfig.MustURL(cfg.CartURL, "CART_URL")
	pkgconfig.MustURL(cfg.OrderURL, "ORDER_URL")
	pkgconfig.MustURL(cfg.NotifyURL, "NOTIFY_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	return cfg
}
